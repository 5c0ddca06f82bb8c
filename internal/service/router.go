package service

import (
	"log/slog"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/repo"
)

// 配信イベント名
const (
	EventMessage         = "message"
	EventLocationMessage = "locationMessage"
	EventRoomData        = "roomData"
)

// Outbound は1つの接続へ送るイベントです
type Outbound struct {
	Event   string `json:"type"`
	Payload any    `json:"payload"`
}

// Transport は接続IDを指定してイベントを届ける送信路です
// 切断済みや送信できない接続にはエラーを返します
type Transport interface {
	Deliver(connectionId string, out Outbound) error
}

type audienceKind int

const (
	audienceSender audienceKind = iota
	audienceRoom
	audienceRoomExceptSender
)

// Audience はイベントの宛先の集合を表します
type Audience struct {
	kind   audienceKind
	sender string
	room   string
}

// ToSender は送信者本人だけを宛先にします
func ToSender(connectionId string) Audience {
	return Audience{kind: audienceSender, sender: connectionId}
}

// ToRoom はルームの参加者全員（送信者を含む）を宛先にします
func ToRoom(room string) Audience {
	return Audience{kind: audienceRoom, room: room}
}

// ToRoomExceptSender はルームの参加者のうち送信者以外を宛先にします
func ToRoomExceptSender(room, connectionId string) Audience {
	return Audience{kind: audienceRoomExceptSender, room: room, sender: connectionId}
}

// roomMembers はルームの接続ID一覧を返すもの（通常は repo.Registry）
type roomMembers interface {
	ConnectionsInRoom(room string) []string
}

var _ roomMembers = (*repo.Registry)(nil)

// RoomRouter は宛先を解決してイベントを配信します
type RoomRouter struct {
	members   roomMembers
	transport Transport
	logger    *slog.Logger
}

// NewRoomRouter は RoomRouter を作成します
func NewRoomRouter(members roomMembers, transport Transport, logger *slog.Logger) *RoomRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RoomRouter{members: members, transport: transport, logger: logger}
}

func (r *RoomRouter) resolve(a Audience) []string {
	switch a.kind {
	case audienceSender:
		return []string{a.sender}
	case audienceRoom:
		return r.members.ConnectionsInRoom(a.room)
	case audienceRoomExceptSender:
		ids := r.members.ConnectionsInRoom(a.room)
		out := ids[:0]
		for _, id := range ids {
			if id != a.sender {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

// Dispatch は宛先の各接続へイベントを届け、届いた件数を返します
// 宛先の一覧はスナップショットで、配信はロックの外で行います
// 届かなかった接続は記録して読み飛ばします
func (r *RoomRouter) Dispatch(a Audience, event string, payload any) int {
	out := Outbound{Event: event, Payload: payload}
	delivered := 0
	for _, id := range r.resolve(a) {
		if err := r.transport.Deliver(id, out); err != nil {
			r.logger.Debug("delivery skipped", "connection_id", id, "event", event, "err", err)
			continue
		}
		delivered++
	}
	return delivered
}
