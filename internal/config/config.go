// Package config はアプリケーションの設定を管理します
// 環境変数から設定を読み込み、デフォルト値を提供します
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
)

const (
	defaultPort           = "3000"   // PORT未設定時のリッスンポート
	defaultPublicDir      = "public" // 静的ファイルのディレクトリ
	defaultRosterTTLSec   = 60 * 60  // Redisに書き出す参加者一覧のTTL（1時間）
	defaultMaxMessageSize = 4096     // 受信フレームの最大バイト数
)

// defaultAllowedOrigins はCORSとWebSocketで許可するデフォルトのオリジン一覧
var defaultAllowedOrigins = []string{
	"http://localhost:3000",
}

// Config はアプリケーションの設定を保持します
type Config struct {
	APIAddr        string     // サーバーのリッスンアドレス
	PublicDir      string     // 静的ファイルのディレクトリ
	AllowedOrigin  []string   // CORSで許可するオリジン一覧（"*"で全許可）
	RedisAddr      string     // 参加者一覧ミラー用Redisの接続先（空なら無効）
	RosterTTL      int        // ミラーするキーのTTL（秒）
	MaxMessageSize int64      // 受信フレームの最大バイト数
	LogLevel       slog.Level // ログレベル
}

// Load は環境変数から設定を読み込みます
// 環境変数が設定されていない場合はデフォルト値を使用します
func Load() Config {
	port := envOr("PORT", defaultPort)
	return Config{
		APIAddr:        envOr("API_ADDR", ":"+port),
		PublicDir:      envOr("PUBLIC_DIR", defaultPublicDir),
		AllowedOrigin:  envCSV("CORS_ALLOWED_ORIGINS", defaultAllowedOrigins),
		RedisAddr:      strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		RosterTTL:      envInt("ROSTER_TTL_SEC", defaultRosterTTLSec),
		MaxMessageSize: int64(envInt("MAX_MESSAGE_SIZE", defaultMaxMessageSize)),
		LogLevel:       envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// envOr は環境変数から文字列を取得します
// 環境変数が設定されていない場合はデフォルト値を返します
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envInt は環境変数から正の整数を取得します
// 環境変数が設定されていない、または無効な値の場合はデフォルト値を返します
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil || i <= 0 {
			slog.Warn("invalid integer config, fallback to default", "key", key, "value", v, "default", def)
			return def
		}
		return i
	}
	return def
}

// envCSV は環境変数からカンマ区切りの文字列リストを取得します
// 環境変数が設定されていない、または空の場合はデフォルト値を返します
func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}

// envLevel は環境変数からログレベルを取得します
func envLevel(key string, def slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(v)); err != nil {
		slog.Warn("invalid log level, fallback to default", "key", key, "value", v, "default", def.String())
		return def
	}
	return lvl
}
