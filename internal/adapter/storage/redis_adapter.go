package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix        = "lock:"
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
	defaultLockTTL       = 5 * time.Second
	lockRetryInterval    = 20 * time.Millisecond
	lockReleaseTimeout   = time.Second
)

// Deletes the key only while it still holds this owner's token.
var releaseLockScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

// RedisAdapter provides per-item locks shared by every replica, and the
// idempotency markers used by the message listener.
type RedisAdapter struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, lockTTL time.Duration) *RedisAdapter {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &RedisAdapter{client: client, lockTTL: lockTTL}
}

// Lock polls SET NX until it wins or ctx is done. The TTL bounds how long a
// crashed holder can block others.
func (r *RedisAdapter) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { r.release(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(lockRetryInterval):
		}
	}
}

func (r *RedisAdapter) release(redisKey, token string) {
	// The caller's ctx may already be cancelled; release on a fresh one.
	ctx, cancel := context.WithTimeout(context.Background(), lockReleaseTimeout)
	defer cancel()
	releaseLockScript.Run(ctx, r.client, []string{redisKey}, token)
}

// SetIdempotency marks key as seen, returns false if it already was.
func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
