package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/service"
)

// 1接続あたりの送信バッファ（フレーム数）
const sendBufferSize = 256

var (
	errUnknownConnection = errors.New("unknown connection")
	errClientClosed      = errors.New("connection closed")
	errSendBufferFull    = errors.New("send buffer full")
)

// Client は1つのWebSocket接続を表します
// 送信はすべて send チャネルを通して writePump が行います
type Client struct {
	id   string          // 接続ID
	conn *websocket.Conn // WebSocket接続
	send chan []byte     // 送信待ちのフレーム（FIFO）

	mu     sync.Mutex
	closed bool
}

func newClient(id string, conn *websocket.Conn) *Client {
	return &Client{id: id, conn: conn, send: make(chan []byte, sendBufferSize)}
}

// enqueue はフレームを送信待ちに積みます
// バッファが一杯の場合や切断済みの場合はブロックせずにエラーを返します
func (c *Client) enqueue(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClientClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return errSendBufferFull
	}
}

// close は送信チャネルを閉じます。2回目以降は何もしません
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub は接続IDとWebSocket接続の対応を管理します
// service.Transport を実装し、RoomRouter からの配信を各接続に振り分けます
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

var _ service.Transport = (*Hub)(nil)

// NewHub は空の Hub を作成します
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
	}
	h.mu.Unlock()
	c.close()
}

// Deliver はイベントをJSONにして接続の送信待ちに積みます
func (h *Hub) Deliver(connectionId string, out service.Outbound) error {
	h.mu.RLock()
	c, ok := h.clients[connectionId]
	h.mu.RUnlock()
	if !ok {
		return errUnknownConnection
	}
	frame, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return c.enqueue(frame)
}

// Count は接続中のクライアント数を返します
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown はすべての接続の送信チャネルを閉じます
// writePump がクローズフレームを送り、読み取り側の終了で切断処理が走ります
func (h *Hub) Shutdown() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
	h.logger.Info("hub shutdown", "connections", len(clients))
}
