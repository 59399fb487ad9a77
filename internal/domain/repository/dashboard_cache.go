package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DashboardCache keeps rendered per-user dashboard payloads in Redis.
type DashboardCache interface {
	Get(ctx context.Context, userID, view string, dest any) (bool, error)
	Set(ctx context.Context, userID, view string, value any) error
	Invalidate(ctx context.Context, userID string) error
}

// Views stored per user; Invalidate drops all of them.
var dashboardViews = []string{"stats", "analytics", "insights"}

type redisDashboardCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisDashboardCache(rdb *redis.Client, ttl time.Duration) DashboardCache {
	return &redisDashboardCache{rdb: rdb, ttl: ttl}
}

func dashboardKey(userID, view string) string {
	return fmt.Sprintf("dashboard:%s:%s", userID, view)
}

func (c *redisDashboardCache) Get(ctx context.Context, userID, view string, dest any) (bool, error) {
	raw, err := c.rdb.Get(ctx, dashboardKey(userID, view)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redisDashboardCache.Get: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("redisDashboardCache.Get decode: %w", err)
	}
	return true, nil
}

func (c *redisDashboardCache) Set(ctx context.Context, userID, view string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("redisDashboardCache.Set encode: %w", err)
	}
	if err := c.rdb.Set(ctx, dashboardKey(userID, view), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("redisDashboardCache.Set: %w", err)
	}
	return nil
}

func (c *redisDashboardCache) Invalidate(ctx context.Context, userID string) error {
	keys := make([]string, 0, len(dashboardViews))
	for _, v := range dashboardViews {
		keys = append(keys, dashboardKey(userID, v))
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redisDashboardCache.Invalidate: %w", err)
	}
	return nil
}
