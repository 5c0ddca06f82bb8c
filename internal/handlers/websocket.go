package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/idgen"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/service"
)

const (
	writeWait  = 10 * time.Second    // 1フレームの書き込みにかけられる時間
	pongWait   = 60 * time.Second    // 次のpongを待つ時間
	pingPeriod = (pongWait * 9) / 10 // pingの送信間隔（pongWaitより短くする）
)

// 受信イベントのタイプ
const (
	eventJoin         = "join"
	eventSendMessage  = "sendMessage"
	eventSendLocation = "sendLocation"
	eventAck          = "ack"
)

var errInvalidEvent = errors.New("invalid event")

// inboundFrame はクライアントから受信するフレームの構造
type inboundFrame struct {
	Type    string          `json:"type"`    // イベントタイプ（join / sendMessage / sendLocation）
	AckID   int64           `json:"ackId"`   // 応答に載せて返す番号
	Payload json.RawMessage `json:"payload"` // イベントごとのペイロード
}

// ackFrame は受信フレーム1つに対して必ず1回返す応答
type ackFrame struct {
	Type  string `json:"type"`
	AckID int64  `json:"ackId"`
	Error string `json:"error,omitempty"` // 失敗時のみ
}

// JoinPayload はルーム参加時のペイロード
type JoinPayload struct {
	UserName string `json:"username"`
	Room     string `json:"room"`
}

// LocationPayload は位置情報送信時のペイロード
type LocationPayload struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// WebSocketHandler はWebSocket接続を処理するハンドラー
type WebSocketHandler struct {
	svc            *service.ChatService // ビジネスロジックを担当するサービス
	hub            *Hub                 // 接続を管理するハブ
	upgrader       websocket.Upgrader   // HTTPからWebSocketへのアップグレーダー
	maxMessageSize int64                // 受信フレームの最大バイト数
	logger         *slog.Logger
}

// NewWebSocketHandler は新しいWebSocketHandlerを作成します
// allowedOrigins に "*" が含まれる場合はすべてのオリジンを許可します
func NewWebSocketHandler(s *service.ChatService, hub *Hub, allowedOrigins []string, maxMessageSize int64, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		svc: s,
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		maxMessageSize: maxMessageSize,
		logger:         logger,
	}
}

// originChecker は許可リストに基づいてOriginヘッダーを検証します
// Originヘッダーのないリクエスト（ブラウザ以外のクライアント）は許可します
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// HandleWebSocket はWebSocket接続を処理します
// 接続後、以下の処理を行います:
// 1. HTTPからWebSocketへのアップグレード
// 2. 接続IDの採番とハブへの登録
// 3. 送信用goroutineの起動と受信ループ
// 4. 切断時の退出処理とクリーンアップ
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}

	client := newClient(idgen.NewConnectionID(), conn)
	h.hub.register(client)
	session := h.svc.Connect(client.id)
	h.logger.Info("websocket connected", "connection_id", client.id, "remote", r.RemoteAddr)

	go h.writePump(client)

	defer func() {
		session.Disconnect(context.Background())
		h.hub.unregister(client)
		h.logger.Info("websocket disconnected", "connection_id", client.id)
	}()

	h.readPump(r.Context(), client, session)
}

// readPump はフレームを1つずつ読み、処理してから応答を返します
func (h *WebSocketHandler) readPump(ctx context.Context, c *Client, session *service.Session) {
	c.conn.SetReadLimit(h.maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", "connection_id", c.id, "err", err)
			}
			return
		}

		ack := h.handleFrame(ctx, session, data)
		frame, err := json.Marshal(ack)
		if err != nil {
			h.logger.Error("failed to encode ack", "connection_id", c.id, "err", err)
			continue
		}
		if err := c.enqueue(frame); err != nil {
			h.logger.Debug("ack dropped", "connection_id", c.id, "ack_id", ack.AckID, "err", err)
		}
	}
}

// handleFrame は1つのフレームを処理して応答を作ります
// イベント処理中のパニックは応答のエラーに変換し、接続は維持します
func (h *WebSocketHandler) handleFrame(ctx context.Context, session *service.Session, data []byte) (ack ackFrame) {
	ack.Type = eventAck

	var in inboundFrame
	if err := json.Unmarshal(data, &in); err != nil || in.Type == "" {
		ack.Error = errInvalidEvent.Error()
		return ack
	}
	ack.AckID = in.AckID

	defer func() {
		if rec := recover(); rec != nil {
			h.logger.Error("panic while handling event", "connection_id", session.ConnectionID(), "type", in.Type, "panic", rec)
			ack.Error = "internal error"
		}
	}()

	if err := h.dispatch(ctx, session, in); err != nil {
		ack.Error = err.Error()
	}
	return ack
}

// dispatch はイベントタイプに応じてセッションの操作を呼び出します
func (h *WebSocketHandler) dispatch(ctx context.Context, session *service.Session, in inboundFrame) error {
	switch in.Type {
	case eventJoin:
		var p JoinPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		return session.Join(ctx, p.UserName, p.Room)
	case eventSendMessage:
		var text string
		if err := decodePayload(in.Payload, &text); err != nil {
			return err
		}
		return session.SendMessage(ctx, text)
	case eventSendLocation:
		var p LocationPayload
		if err := decodePayload(in.Payload, &p); err != nil {
			return err
		}
		if p.Latitude == nil || p.Longitude == nil {
			return errInvalidEvent
		}
		return session.SendLocation(ctx, *p.Latitude, *p.Longitude)
	default:
		return fmt.Errorf("unknown event: %s", in.Type)
	}
}

// writePump は送信待ちのフレームを順番に書き込み、定期的にpingを送ります
func (h *WebSocketHandler) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// ハブ側で送信チャネルが閉じられた
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				h.logger.Debug("websocket write failed", "connection_id", c.id, "err", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
