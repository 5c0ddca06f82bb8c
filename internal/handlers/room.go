package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/service"
)

// ヘルスチェックでミラーへpingする際のタイムアウト
const healthPingTimeout = time.Second

// RoomHandler はルームの参加者一覧とヘルスチェックのHTTPハンドラー
type RoomHandler struct {
	svc        *service.ChatService
	hub        *Hub
	instanceId string // このプロセスの識別子
}

func NewRoomHandler(s *service.ChatService, hub *Hub, instanceId string) *RoomHandler {
	return &RoomHandler{svc: s, hub: hub, instanceId: instanceId}
}

type roomsResponse struct {
	Rooms []models.RoomSummary `json:"rooms"`
}

type rosterResponse struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type healthResponse struct {
	Status       string `json:"status"`
	Instance     string `json:"instance"`
	Connections  int    `json:"connections"`
	Rooms        int    `json:"rooms"`
	RosterMirror string `json:"rosterMirror"`
}

// List は参加者のいるルームの一覧を返します
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, roomsResponse{Rooms: h.svc.Rooms()})
}

// Get は指定されたルームの参加者名を参加順に返します
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	room := normalizeID(chi.URLParam(r, "room"))
	if err := validateRoom(room); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, users := h.svc.Roster(room)
	if len(users) == 0 {
		respondError(w, http.StatusNotFound, "room not found")
		return
	}
	respondJSON(w, http.StatusOK, rosterResponse{Room: name, Users: users})
}

// Health はインスタンスの稼働状況とミラーの状態を返します
func (h *RoomHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	respondJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Instance:     h.instanceId,
		Connections:  h.hub.Count(),
		Rooms:        len(h.svc.Rooms()),
		RosterMirror: h.svc.MirrorStatus(ctx),
	})
}
