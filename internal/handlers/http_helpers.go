package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
)

// errorResponse はエラーレスポンスの構造
type errorResponse struct {
	Message string `json:"message"` // エラーメッセージ
}

// respondJSON はJSONレスポンスを返します
// payloadがnilの場合は空のレスポンスを返します
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

// respondError はエラーレスポンスを返します
func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, errorResponse{Message: msg})
}

// decodePayload はWebSocketフレームのペイロードをデコードします
// ペイロードがない、または型が合わない場合は errInvalidEvent を返します
func decodePayload(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return errInvalidEvent
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errInvalidEvent
	}
	return nil
}

// normalizeID はIDの前後の空白を削除して正規化します
func normalizeID(id string) string {
	return strings.TrimSpace(id)
}
