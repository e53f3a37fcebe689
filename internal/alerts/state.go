package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jbkim/weather-batch/internal/database"
)

// DedupGuard caches recently raised (city, type) pairs in Redis so the
// hot path can suppress duplicates without hitting the database. Keys
// expire with the dedup window; the database query stays authoritative
// when the cache misses or Redis is down.
type DedupGuard struct {
	redis  *redis.Client
	window time.Duration
}

func NewDedupGuard(redisClient *redis.Client, window time.Duration) *DedupGuard {
	return &DedupGuard{redis: redisClient, window: window}
}

func dedupKey(cityCode string, alertType database.AlertType) string {
	return fmt.Sprintf("alert_dedup:%s:%s", cityCode, alertType)
}

// SeenRecently reports whether an alert of this city and type was raised
// inside the dedup window.
func (g *DedupGuard) SeenRecently(ctx context.Context, cityCode string, alertType database.AlertType) (bool, error) {
	n, err := g.redis.Exists(ctx, dedupKey(cityCode, alertType)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup state in Redis: %w", err)
	}
	return n > 0, nil
}

// Record marks a (city, type) pair as alerted. The entry expires on its
// own after the dedup window.
func (g *DedupGuard) Record(ctx context.Context, cityCode string, alertType database.AlertType, alertTime time.Time) error {
	value := alertTime.UTC().Format(time.RFC3339)
	if err := g.redis.Set(ctx, dedupKey(cityCode, alertType), value, g.window).Err(); err != nil {
		return fmt.Errorf("failed to set dedup state in Redis: %w", err)
	}
	return nil
}

// Clear drops the cached pair, letting the next evaluation fall through
// to the database query.
func (g *DedupGuard) Clear(ctx context.Context, cityCode string, alertType database.AlertType) error {
	return g.redis.Del(ctx, dedupKey(cityCode, alertType)).Err()
}
