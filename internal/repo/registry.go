package repo

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/cases"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
)

// Registry は接続IDとユーザー・ルームの対応をメモリ上で管理します
// すべての操作は1つのロックの下で行われ、他の操作と不可分です
type Registry struct {
	mu    sync.RWMutex
	users map[string]models.User // 接続ID -> ユーザー
	rooms map[string][]string    // ルーム名 -> 接続ID（参加順）
	names map[string]string      // ルーム名+正規化ユーザー名 -> 接続ID
}

// NewRegistry は空の Registry を作成します
func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]models.User),
		rooms: make(map[string][]string),
		names: make(map[string]string),
	}
}

// NormalizeRoom はルーム名の前後の空白を削除し、大文字小文字を畳み込みます
func NormalizeRoom(room string) string {
	return fold(strings.TrimSpace(room))
}

// fold は大文字小文字を区別しない比較用の文字列を返します
// cases.Caser はゴルーチン間で共有できないため毎回作成します
func fold(s string) string {
	return cases.Fold().String(s)
}

func nameKey(room, username string) string {
	return room + "\x00" + fold(username)
}

// AddUser はユーザーをルームに登録します
// ユーザー名とルーム名は前後の空白を削除してから検証します
// 同じルームに同じユーザー名（大文字小文字を区別しない）がいる場合は ErrUsernameTaken を返します
func (r *Registry) AddUser(connectionId, username, room string) (models.User, error) {
	username = strings.TrimSpace(username)
	room = NormalizeRoom(room)
	if username == "" || room == "" {
		return models.User{}, ErrInvalidUser
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[connectionId]; exists {
		return models.User{}, ErrConnectionTaken
	}
	key := nameKey(room, username)
	if _, exists := r.names[key]; exists {
		return models.User{}, ErrUsernameTaken
	}

	user := models.User{ConnectionId: connectionId, UserName: username, Room: room}
	r.users[connectionId] = user
	r.rooms[room] = append(r.rooms[room], connectionId)
	r.names[key] = connectionId
	return user, nil
}

// RemoveUser はユーザーの登録を解除し、解除したユーザーを返します
// 未登録の接続IDの場合は false を返します（参加前の切断などで起こり得ます）
func (r *Registry) RemoveUser(connectionId string) (models.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[connectionId]
	if !exists {
		return models.User{}, false
	}
	delete(r.users, connectionId)
	delete(r.names, nameKey(user.Room, user.UserName))

	ids := r.rooms[user.Room]
	for i, id := range ids {
		if id == connectionId {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	// 最後の参加者が抜けたらルームも消えます
	if len(ids) == 0 {
		delete(r.rooms, user.Room)
	} else {
		r.rooms[user.Room] = ids
	}
	return user, true
}

// GetUser は接続IDに対応するユーザーを返します
func (r *Registry) GetUser(connectionId string) (models.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, exists := r.users[connectionId]
	return user, exists
}

// GetUsersInRoom はルームの参加者名を参加順に返します
func (r *Registry) GetUsersInRoom(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.rooms[NormalizeRoom(room)]
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, r.users[id].UserName)
	}
	return names
}

// ConnectionsInRoom はルームに参加している接続IDを参加順に返します
// 返すスライスはコピーなので、ロックの外で使っても安全です
func (r *Registry) ConnectionsInRoom(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.rooms[NormalizeRoom(room)]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// Rooms は参加者のいるルームの一覧をルーム名順に返します
func (r *Registry) Rooms() []models.RoomSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.RoomSummary, 0, len(r.rooms))
	for room, ids := range r.rooms {
		out = append(out, models.RoomSummary{Room: room, Users: len(ids)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Room < out[j].Room })
	return out
}

// Count は登録中のユーザー数を返します
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
