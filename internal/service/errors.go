package service

import (
	"errors"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/repo"
)

// カスタムエラー定義
// メッセージはそのままクライアントへの応答（ack）に使われます
var (
	ErrInvalidUser   = errors.New("Username and room are required!")
	ErrUsernameTaken = errors.New("Username is in use!")
	ErrProfanity     = errors.New("Profanity is not allowed!")
	ErrNotJoined     = errors.New("join a room first")
	ErrAlreadyJoined = errors.New("already joined a room")
	ErrDisconnected  = errors.New("connection closed")
)

// mapRegistryError はリポジトリ層のエラーをサービス層のエラーに変換します
func mapRegistryError(err error) error {
	switch {
	case errors.Is(err, repo.ErrInvalidUser):
		return ErrInvalidUser
	case errors.Is(err, repo.ErrUsernameTaken):
		return ErrUsernameTaken
	case errors.Is(err, repo.ErrConnectionTaken):
		return ErrAlreadyJoined
	default:
		return err
	}
}
