package live

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Tracker counts distinct sessions seen in a trailing window. It backs the
// liveness endpoint, which callers poll every few seconds; implementations
// are expected to be cheap rather than exact-forever.
type Tracker interface {
	// Touch records session activity at the given instant.
	Touch(ctx context.Context, tenantID, sessionID string, at time.Time) error

	// CountSince returns the number of distinct sessions active since the
	// given instant.
	CountSince(ctx context.Context, tenantID string, since time.Time) (int, error)
}

// RedisTracker keeps one sorted set per tenant scored by last-seen unix
// time. Counting trims entries older than the window first, so the set
// stays bounded by actual concurrent visitors.
type RedisTracker struct {
	client *redis.Client
	window time.Duration
}

// NewRedisTracker creates a Redis-backed session tracker.
func NewRedisTracker(client *redis.Client, window time.Duration) *RedisTracker {
	return &RedisTracker{
		client: client,
		window: window,
	}
}

func sessionKey(tenantID string) string {
	return fmt.Sprintf("live:sessions:%s", tenantID)
}

func (t *RedisTracker) Touch(ctx context.Context, tenantID, sessionID string, at time.Time) error {
	key := sessionKey(tenantID)

	pipe := t.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(at.Unix()),
		Member: sessionID,
	})
	// Keys self-expire if a tenant stops sending traffic entirely.
	pipe.Expire(ctx, key, t.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record live session: %w", err)
	}
	return nil
}

func (t *RedisTracker) CountSince(ctx context.Context, tenantID string, since time.Time) (int, error) {
	key := sessionKey(tenantID)
	cutoff := "(" + strconv.FormatInt(since.Unix(), 10)

	pipe := t.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", cutoff)
	card := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to count live sessions: %w", err)
	}
	return int(card.Val()), nil
}
