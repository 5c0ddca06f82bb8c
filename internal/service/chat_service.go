// Package service はビジネスロジックを担当します
// ルームへの参加・メッセージ送信・切断など、接続ごとのイベント処理を提供します
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/repo"
)

// ミラーへの書き込みにかける最大時間
const mirrorTimeout = 2 * time.Second

// Classifier は本文が不適切かどうかを判定します
type Classifier interface {
	IsFlagged(text string) bool
}

// ChatService はルームの参加者管理とメッセージ配信をまとめます
type ChatService struct {
	registry   *repo.Registry    // 参加者の登録簿（唯一の正）
	router     *RoomRouter       // 宛先解決と配信
	factory    *MessageFactory   // メッセージ作成
	classifier Classifier        // 不適切表現の判定
	mirror     repo.RosterMirror // 参加者一覧のミラー（nilなら無効）
	rosterTTL  int               // ミラーするキーのTTL（秒）
	logger     *slog.Logger
}

// Options は ChatService の任意設定です
type Options struct {
	Mirror    repo.RosterMirror
	RosterTTL int
	Logger    *slog.Logger
}

// NewChatService は新しい ChatService を作成します
func NewChatService(registry *repo.Registry, router *RoomRouter, factory *MessageFactory, classifier Classifier, opts Options) *ChatService {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		registry:   registry,
		router:     router,
		factory:    factory,
		classifier: classifier,
		mirror:     opts.Mirror,
		rosterTTL:  opts.RosterTTL,
		logger:     logger,
	}
}

// Connect は新しい接続のセッションを作成します
// セッションは未参加の状態から始まります
func (s *ChatService) Connect(connectionId string) *Session {
	return &Session{svc: s, connectionId: connectionId}
}

// Rooms は参加者のいるルームの概要を返します
func (s *ChatService) Rooms() []models.RoomSummary {
	return s.registry.Rooms()
}

// Roster はルームの参加者名を参加順に返します
func (s *ChatService) Roster(room string) (string, []string) {
	normalized := repo.NormalizeRoom(room)
	return normalized, s.registry.GetUsersInRoom(normalized)
}

// Users は登録中のユーザー数を返します
func (s *ChatService) Users() int {
	return s.registry.Count()
}

// MirrorStatus はミラーの状態を "disabled"、"ok"、"error" のいずれかで返します
func (s *ChatService) MirrorStatus(ctx context.Context) string {
	if s.mirror == nil {
		return "disabled"
	}
	if err := s.mirror.Ping(ctx); err != nil {
		s.logger.Warn("roster mirror ping failed", "err", err)
		return "error"
	}
	return "ok"
}

func (s *ChatService) roomData(room string) models.RoomData {
	return models.NewRoomData(room, s.registry.GetUsersInRoom(room))
}

// mirrorJoin と mirrorLeave は参加者の変更をミラーへ書き出します
// 失敗してもチャットの配信には影響させません
func (s *ChatService) mirrorJoin(ctx context.Context, user models.User) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()
	if err := s.mirror.AddUser(ctx, user, s.rosterTTL); err != nil {
		s.logger.Warn("roster mirror add failed", "connection_id", user.ConnectionId, "room", user.Room, "err", err)
	}
}

func (s *ChatService) mirrorLeave(ctx context.Context, user models.User) {
	if s.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mirrorTimeout)
	defer cancel()
	if err := s.mirror.RemoveUser(ctx, user); err != nil {
		s.logger.Warn("roster mirror remove failed", "connection_id", user.ConnectionId, "room", user.Room, "err", err)
	}
}

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateDisconnected
)

// Session は1つの接続のライフサイクルを管理します
// 状態は 未参加 -> 参加中 -> 切断済み の順に進み、切断済みが終端です
// イベントはセッションのロックの下で1つずつ処理されます
type Session struct {
	svc          *ChatService
	connectionId string

	mu    sync.Mutex
	state sessionState
}

// ConnectionID はセッションの接続IDを返します
func (ss *Session) ConnectionID() string {
	return ss.connectionId
}

// Join はユーザー名とルーム名でルームに参加します
// 処理の流れ:
// 1. 登録簿にユーザーを追加（検証と重複チェック）
// 2. 本人に歓迎メッセージを送信
// 3. 他の参加者に参加を通知
// 4. 全員に参加者一覧を送信
func (ss *Session) Join(ctx context.Context, username, room string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	switch ss.state {
	case stateJoined:
		return ErrAlreadyJoined
	case stateDisconnected:
		return ErrDisconnected
	}

	s := ss.svc
	user, err := s.registry.AddUser(ss.connectionId, username, room)
	if err != nil {
		return mapRegistryError(err)
	}
	ss.state = stateJoined

	s.router.Dispatch(ToSender(ss.connectionId), EventMessage, s.factory.NewTextMessage(adminName, "Welcome"))
	s.router.Dispatch(ToRoomExceptSender(user.Room, ss.connectionId), EventMessage,
		s.factory.NewTextMessage(adminName, user.UserName+" has joined!"))
	s.router.Dispatch(ToRoom(user.Room), EventRoomData, s.roomData(user.Room))

	s.logger.Info("user joined", "connection_id", ss.connectionId, "username", user.UserName, "room", user.Room)
	s.mirrorJoin(ctx, user)
	return nil
}

// joinedUser は参加中のユーザーを返します
// 登録簿にいない場合は ok が false になります
func (ss *Session) joinedUser() (models.User, bool, error) {
	switch ss.state {
	case stateUnjoined:
		return models.User{}, false, ErrNotJoined
	case stateDisconnected:
		return models.User{}, false, ErrDisconnected
	}
	user, ok := ss.svc.registry.GetUser(ss.connectionId)
	return user, ok, nil
}

// SendMessage はルームの全員にテキストメッセージを送信します
// 不適切な表現を含む場合は誰にも送信せず ErrProfanity を返します
func (ss *Session) SendMessage(ctx context.Context, text string) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	user, ok, err := ss.joinedUser()
	if err != nil {
		return err
	}
	s := ss.svc
	if s.classifier != nil && s.classifier.IsFlagged(text) {
		return ErrProfanity
	}
	if !ok {
		s.logger.Debug("message from unregistered connection dropped", "connection_id", ss.connectionId)
		return nil
	}
	s.router.Dispatch(ToRoom(user.Room), EventMessage, s.factory.NewTextMessage(user.UserName, text))
	return nil
}

// SendLocation はルームの全員に位置情報メッセージを送信します
func (ss *Session) SendLocation(ctx context.Context, latitude, longitude float64) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	user, ok, err := ss.joinedUser()
	if err != nil {
		return err
	}
	s := ss.svc
	if !ok {
		s.logger.Debug("location from unregistered connection dropped", "connection_id", ss.connectionId)
		return nil
	}
	s.router.Dispatch(ToRoom(user.Room), EventLocationMessage, s.factory.NewLocationMessage(user.UserName, latitude, longitude))
	return nil
}

// Disconnect は接続の終了を処理します
// どの状態からでも呼び出せ、2回目以降は何もしません
// 参加中だった場合は残りの参加者に退出を通知し、参加者一覧を送信します
func (ss *Session) Disconnect(ctx context.Context) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.state == stateDisconnected {
		return
	}
	ss.state = stateDisconnected

	s := ss.svc
	user, ok := s.registry.RemoveUser(ss.connectionId)
	if !ok {
		return
	}

	s.router.Dispatch(ToRoom(user.Room), EventMessage, s.factory.NewTextMessage(adminName, user.UserName+" has left"))
	s.router.Dispatch(ToRoom(user.Room), EventRoomData, s.roomData(user.Room))

	s.logger.Info("user left", "connection_id", ss.connectionId, "username", user.UserName, "room", user.Room)
	s.mirrorLeave(ctx, user)
}
