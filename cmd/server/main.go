package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/config"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/filter"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/handlers"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/idgen"
	httpx "github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/http"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/repo"
	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/service"
)

func main() {
	cfg := config.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	// 参加者一覧のミラー（REDIS_ADDR 未設定なら無効）
	var mirror repo.RosterMirror
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			PoolSize:     10,              // 接続プールサイズ
			MinIdleConns: 2,               // 最小アイドル接続数
			MaxRetries:   3,               // リトライ回数
			DialTimeout:  5 * time.Second, // 接続タイムアウト
			ReadTimeout:  2 * time.Second, // 読み込みタイムアウト
			WriteTimeout: 2 * time.Second, // 書き込みタイムアウト
		})
		defer rdb.Close()

		// 接続できなくてもチャットは動かす
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable, roster mirror will retry per write", "addr", cfg.RedisAddr, "err", err)
		} else {
			logger.Info("connected to redis", "addr", cfg.RedisAddr)
		}
		mirror = repo.NewRedisRosterRepo(rdb)
	}

	registry := repo.NewRegistry()
	hub := handlers.NewHub(logger)
	router := service.NewRoomRouter(registry, hub, logger)
	svc := service.NewChatService(registry, router, service.NewMessageFactory(service.SystemClock()), filter.New(), service.Options{
		Mirror:    mirror,
		RosterTTL: cfg.RosterTTL,
		Logger:    logger,
	})

	instanceId := idgen.NewInstanceID()
	roomHandler := handlers.NewRoomHandler(svc, hub, instanceId)
	wsHandler := handlers.NewWebSocketHandler(svc, hub, cfg.AllowedOrigin, cfg.MaxMessageSize, logger)
	h := httpx.NewRouter(roomHandler, wsHandler, cfg.AllowedOrigin, cfg.PublicDir)

	srv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown用のシグナルチャネル
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// サーバーを別goroutineで起動
	go func() {
		logger.Info("listening", "addr", cfg.APIAddr, "public_dir", cfg.PublicDir, "instance", instanceId)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// シャットダウンシグナルを待つ
	<-sigChan
	logger.Info("shutdown signal received, shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown はハイジャック済みのWebSocket接続を待たないため、先にハブを閉じる
	hub.Shutdown()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}

	logger.Info("server stopped")
}
