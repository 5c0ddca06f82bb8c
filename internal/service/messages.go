package service

import (
	"strconv"
	"time"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
)

// adminName はシステム通知の送信者名
const adminName = "Admin"

const mapsURLPrefix = "https://google.com/maps?q="

// Clock は現在時刻を返すインターフェース
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock は実時間を返す Clock です
func SystemClock() Clock { return systemClock{} }

// MessageFactory は配信用のメッセージを作成します
type MessageFactory struct {
	clock Clock
}

// NewMessageFactory は MessageFactory を作成します
// clock が nil の場合は実時間を使います
func NewMessageFactory(clock Clock) *MessageFactory {
	if clock == nil {
		clock = systemClock{}
	}
	return &MessageFactory{clock: clock}
}

func (f *MessageFactory) now() int64 {
	return f.clock.Now().UnixMilli()
}

// NewTextMessage はテキストメッセージを作成します
// 本文は検証も加工もせずそのまま使います
func (f *MessageFactory) NewTextMessage(username, text string) models.Message {
	return models.Message{
		Kind:      models.KindText,
		UserName:  username,
		Text:      text,
		CreatedAt: f.now(),
	}
}

// NewLocationMessage は位置情報メッセージを作成します
// 座標の範囲は検証しません
func (f *MessageFactory) NewLocationMessage(username string, latitude, longitude float64) models.Message {
	return models.Message{
		Kind:      models.KindLocation,
		UserName:  username,
		URL:       mapsURL(latitude, longitude),
		CreatedAt: f.now(),
	}
}

func mapsURL(latitude, longitude float64) string {
	return mapsURLPrefix +
		strconv.FormatFloat(latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(longitude, 'f', -1, 64)
}
