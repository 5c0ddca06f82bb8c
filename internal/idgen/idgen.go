package idgen

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID は単調増加するULIDを生成します
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), entropy).String()
}

// NewConnectionID はWebSocket接続に割り当てる識別子を生成します
func NewConnectionID() string {
	return "conn_" + NewULID()
}

// NewInstanceID はプロセスごとに1つ割り当てるサーバーインスタンスの識別子を生成します
func NewInstanceID() string {
	return uuid.NewString()
}
