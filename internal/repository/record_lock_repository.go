package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-homework-api/pkg/errors"
)

const lockKeyPrefix = "lock:homework:"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RecordLocker grants short-lived exclusive access to a record. Acquire
// returns ErrRecordLocked while another holder owns the key.
type RecordLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

// RedisRecordLocker serialises writers of a record across API instances.
type RedisRecordLocker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRecordLocker constructs a Redis-backed locker.
func NewRedisRecordLocker(client *redis.Client, logger *zap.Logger) *RedisRecordLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRecordLocker{client: client, logger: logger}
}

// Acquire takes the lock for key and returns the token needed to release it.
// A held lock yields ErrRecordLocked.
func (r *RedisRecordLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, lockKeyPrefix+key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("redis lock %s: %w", key, err)
	}
	if !ok {
		return "", appErrors.ErrRecordLocked
	}
	return token, nil
}

// Release drops the lock if token still owns it.
func (r *RedisRecordLocker) Release(ctx context.Context, key, token string) error {
	deleted, err := releaseScript.Run(ctx, r.client, []string{lockKeyPrefix + key}, token).Int()
	if err != nil {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	if deleted == 0 {
		r.logger.Warn("record lock expired before release", zap.String("key", key))
	}
	return nil
}

// MemoryRecordLocker is the single-instance fallback when Redis is disabled.
type MemoryRecordLocker struct {
	mu    sync.Mutex
	now   func() time.Time
	locks map[string]memoryLock
}

type memoryLock struct {
	token   string
	expires time.Time
}

// NewMemoryRecordLocker constructs an in-process locker.
func NewMemoryRecordLocker() *MemoryRecordLocker {
	return &MemoryRecordLocker{now: time.Now, locks: make(map[string]memoryLock)}
}

// Acquire takes the lock for key unless another holder's lease is live.
func (m *MemoryRecordLocker) Acquire(_ context.Context, key string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if held, ok := m.locks[key]; ok && now.Before(held.expires) {
		return "", appErrors.ErrRecordLocked
	}
	token := uuid.NewString()
	m.locks[key] = memoryLock{token: token, expires: now.Add(ttl)}
	return token, nil
}

// Release drops the lock if token still owns it.
func (m *MemoryRecordLocker) Release(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[key]; ok && held.token == token {
		delete(m.locks, key)
	}
	return nil
}
