package metricsstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RefreshLock marks a refresh as running across all replicas. It is held only while a
// refresh runs; the cooldown between refreshes comes from the document write time.
type RefreshLock interface {
	// TryAcquire claims the lock for at most ttl. When the lock is held elsewhere token
	// is empty and remaining is the time until the current claim expires.
	TryAcquire(ctx context.Context, ttl time.Duration) (token string, remaining time.Duration, err error)
	// Release drops the claim identified by token. A claim that already expired or was
	// taken over by another caller is left alone.
	Release(ctx context.Context, token string) error
}

// releaseScript deletes the key only while it still holds the caller's token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisRefreshLock implements RefreshLock with SET NX PX and a compare-and-delete release
type RedisRefreshLock struct {
	client *redis.Client
	key    string
}

// NewRedisRefreshLock creates a lock stored under key
func NewRedisRefreshLock(client *redis.Client, key string) *RedisRefreshLock {
	if key == "" {
		key = "stackpulse:refresh-lock"
	}
	return &RedisRefreshLock{client: client, key: key}
}

// NewRedisClient parses url and verifies the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// TryAcquire implements RefreshLock. Each successful claim gets a fresh token.
func (l *RedisRefreshLock) TryAcquire(ctx context.Context, ttl time.Duration) (string, time.Duration, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil {
		return "", 0, fmt.Errorf("redis setnx failed: %w", err)
	}
	if ok {
		return token, 0, nil
	}

	remaining, err := l.client.PTTL(ctx, l.key).Result()
	if err != nil {
		return "", 0, fmt.Errorf("redis pttl failed: %w", err)
	}
	if remaining < 0 {
		// Key expired between the two calls or carries no TTL.
		remaining = ttl
	}
	return "", remaining, nil
}

// Release implements RefreshLock
func (l *RedisRefreshLock) Release(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis release failed: %w", err)
	}
	return nil
}

// Ping checks the redis connection
func (l *RedisRefreshLock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
