package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/allisson/medledger/internal/errors"
)

const (
	redisKeyPrefix = "medledger:lock:"

	// DefaultLeaseTTL bounds how long a crashed holder keeps a key locked.
	DefaultLeaseTTL = 30 * time.Second

	retryInterval  = 10 * time.Millisecond
	releaseTimeout = 2 * time.Second
)

// releaseScript deletes the key only while it still carries the caller's token, so a
// holder whose lease expired never releases someone else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// NewRedisClient parses url, connects and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

type redisLocker struct {
	client  *redis.Client
	timeout time.Duration
	ttl     time.Duration
}

// NewRedis creates a KeyedLocker shared by every process using the same Redis server.
// Locks are leases: a holder that dies releases its keys after ttl.
func NewRedis(client *redis.Client, timeout, ttl time.Duration) KeyedLocker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ttl <= 0 {
		ttl = DefaultLeaseTTL
	}
	return &redisLocker{client: client, timeout: timeout, ttl: ttl}
}

// Lock polls SET NX until the key is free or the wait times out.
func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(err, "lock aborted")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	redisKey := redisKeyPrefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		acquired, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to acquire lock")
		}
		if acquired {
			return func() { l.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.Wrap(ctx.Err(), "failed to acquire lock")
		case <-ticker.C:
		}
	}
}

// release runs detached from the caller's context, which may already be done. A failed
// release is left to the lease TTL.
func (l *redisLocker) release(redisKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	_ = releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err()
}
