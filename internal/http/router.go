package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/handlers"
)

func NewRouter(h *handlers.RoomHandler, wsHandler *handlers.WebSocketHandler, allowedOrigins []string, publicDir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: !allowsAll(allowedOrigins),
			MaxAge:           300,
		}))
	}

	r.Get("/api/v1/healthz", h.Health)

	r.Route("/api/v1/rooms", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/{room}", h.Get)
	})

	// WebSocketエンドポイント
	r.Get("/ws", wsHandler.HandleWebSocket)

	// ブラウザ用クライアントの静的ファイル
	if publicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(publicDir)))
	}

	return r
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
