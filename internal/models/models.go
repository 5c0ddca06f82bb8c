// Package models はアプリケーションで使用するデータ構造を定義します
package models

// User はルームに参加している接続の情報を表します
type User struct {
	ConnectionId string `json:"id"`       // 接続ごとに一意な識別子
	UserName     string `json:"username"` // 表示名（前後の空白を除いた入力そのまま）
	Room         string `json:"room"`     // 参加しているルーム名（正規化済み）
}

// MessageKind はメッセージの種類です
type MessageKind string

const (
	KindText     MessageKind = "text"
	KindLocation MessageKind = "location"
)

// Message はルームに配信されるメッセージを表します
// 配信ごとに生成され、保存されることはありません
type Message struct {
	Kind      MessageKind `json:"-"`
	UserName  string      `json:"username"`
	Text      string      `json:"text,omitempty"` // KindText のときの本文
	URL       string      `json:"url,omitempty"`  // KindLocation のときの地図URL
	CreatedAt int64       `json:"createdAt"`      // 作成日時（Unixミリ秒）
}

// RosterEntry は参加者一覧の1件です
type RosterEntry struct {
	UserName string `json:"username"`
}

// RoomData はルームの参加者一覧のスナップショットです
type RoomData struct {
	Room  string        `json:"room"`
	Users []RosterEntry `json:"users"`
}

// NewRoomData は参加者名の一覧から RoomData を作成します
func NewRoomData(room string, usernames []string) RoomData {
	users := make([]RosterEntry, 0, len(usernames))
	for _, name := range usernames {
		users = append(users, RosterEntry{UserName: name})
	}
	return RoomData{Room: room, Users: users}
}

// RoomSummary はルーム一覧APIで返すルームの概要です
type RoomSummary struct {
	Room  string `json:"room"`
	Users int    `json:"users"`
}
