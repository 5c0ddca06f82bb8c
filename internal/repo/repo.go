package repo

import (
	"context"
	"errors"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
)

// 参加登録時のエラー（メッセージはそのままクライアントへの応答に使われます）
var (
	ErrInvalidUser     = errors.New("Username and room are required!")
	ErrUsernameTaken   = errors.New("Username is in use!")
	ErrConnectionTaken = errors.New("connection already joined a room")
)

// RosterMirror は参加者情報を外部ストアへ書き出すためのインターフェース
// チャットの配信はメモリ上の Registry のみを参照し、ミラーは外部からの参照用です
type RosterMirror interface {
	AddUser(ctx context.Context, user models.User, ttlSec int) error
	RemoveUser(ctx context.Context, user models.User) error
	ListUser(ctx context.Context, room string) ([]string, error)
	Ping(ctx context.Context) error
}
