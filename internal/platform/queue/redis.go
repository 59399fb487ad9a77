// Package queue holds the Redis connection shared by the sync queue, the
// per-user sync lock and the dashboard cache.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cpdash/internal/platform/config"
	"cpdash/internal/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RDB *redis.Client

func ConnectRedis() error {
	cfg := config.AppConfig
	RDB = redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("could not connect to Redis at %s: %w", cfg.RedisAddr, err)
	}
	logger.Log.Info("connected to Redis", zap.String("addr", cfg.RedisAddr), zap.Int("db", cfg.RedisDB))
	return nil
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		logger.Log.Info("redis connection closed")
	}
}

// Pop blocks up to timeout for the next ID on list. It returns "" and no
// error when the wait times out.
func Pop(ctx context.Context, rdb redis.Cmdable, list string, timeout time.Duration) (string, error) {
	res, err := rdb.BRPop(ctx, timeout, list).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// res is [list, value]
	if len(res) < 2 {
		return "", nil
	}
	return res[1], nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
else
    return 0
end
`)

// Lock is a single-holder Redis lease identified by a random token.
type Lock struct {
	rdb   redis.Scripter
	key   string
	token string
}

// TryLock takes key for ttl. ok is false when someone else holds it.
func TryLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (lock *Lock, ok bool, err error) {
	token := uuid.NewString()
	ok, err = rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return nil, ok, err
	}
	return &Lock{rdb: rdb, key: key, token: token}, true, nil
}

func (l *Lock) Key() string { return l.key }

// Release drops the lock if it is still ours. held is false when the lease
// had already expired or passed to another holder.
func (l *Lock) Release(ctx context.Context) (held bool, err error) {
	n, err := releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Schedule parks id in the delayed sorted set until at.
func Schedule(ctx context.Context, rdb redis.Cmdable, delayed, id string, at time.Time) error {
	return rdb.ZAdd(ctx, delayed, redis.Z{Score: float64(at.UnixMilli()), Member: id}).Err()
}

var promoteScript = redis.NewScript(`
local ids = redis.call("zrangebyscore", KEYS[1], "-inf", ARGV[1])
for _, id in ipairs(ids) do
    redis.call("zrem", KEYS[1], id)
    redis.call("lpush", KEYS[2], id)
end
return #ids
`)

// PromoteDue moves every delayed ID whose time has come onto list and
// reports how many moved.
func PromoteDue(ctx context.Context, rdb redis.Scripter, delayed, list string, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, rdb, []string{delayed, list}, now.UnixMilli()).Int()
	if err != nil {
		return 0, err
	}
	return n, nil
}
