package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SteamVC/SteamVC_Chat/backend/api-server/internal/models"
)

// RedisRosterRepo はルームの参加者一覧をRedisへミラーします
type RedisRosterRepo struct{ rdb *redis.Client }

func NewRedisRosterRepo(rdb *redis.Client) *RedisRosterRepo {
	return &RedisRosterRepo{rdb: rdb}
}

// rooms:<room>:users は接続IDを参加時刻でスコア付けしたsorted set
func usersKey(room string) string {
	return fmt.Sprintf("rooms:%s:users", room)
}
func userKey(room, connectionId string) string {
	return fmt.Sprintf("users:%s:%s", room, connectionId)
}

func sec(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func (rr *RedisRosterRepo) AddUser(ctx context.Context, user models.User, ttlSec int) error {
	b, err := json.Marshal(user)
	if err != nil {
		return err
	}
	d := sec(ttlSec)
	pipe := rr.rdb.TxPipeline()
	pipe.Set(ctx, userKey(user.Room, user.ConnectionId), b, d)
	pipe.ZAdd(ctx, usersKey(user.Room), redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: user.ConnectionId,
	})
	// TTLが0以下なら期限なし
	if d > 0 {
		pipe.Expire(ctx, usersKey(user.Room), d)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror add user %s: %w", user.ConnectionId, err)
	}
	return nil
}

func (rr *RedisRosterRepo) RemoveUser(ctx context.Context, user models.User) error {
	pipe := rr.rdb.TxPipeline()
	pipe.ZRem(ctx, usersKey(user.Room), user.ConnectionId)
	pipe.Del(ctx, userKey(user.Room, user.ConnectionId))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("mirror remove user %s: %w", user.ConnectionId, err)
	}
	return nil
}

// ListUser はミラーされた参加者名を参加順に返します
// TTL切れでユーザーキーだけ消えている接続は読み飛ばします
func (rr *RedisRosterRepo) ListUser(ctx context.Context, room string) ([]string, error) {
	ids, err := rr.rdb.ZRange(ctx, usersKey(room), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKey(room, id)
	}

	vals, err := rr.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	res := make([]string, 0, len(ids))
	for _, val := range vals {
		b, ok := val.(string)
		if !ok {
			continue
		}
		var u models.User
		if json.Unmarshal([]byte(b), &u) == nil {
			res = append(res, u.UserName)
		}
	}
	return res, nil
}

func (rr *RedisRosterRepo) Ping(ctx context.Context) error {
	return rr.rdb.Ping(ctx).Err()
}
