package handlers

import "fmt"

// validateRoom はルーム名のバリデーションを行います
// ルーム名が空の場合はエラーを返します
func validateRoom(room string) error {
	if normalizeID(room) == "" {
		return fmt.Errorf("room required")
	}
	return nil
}
