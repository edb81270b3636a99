package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireLock attempts to acquire the named lock for ttl.
// Returns true if the lock was acquired, false if already held. Locks are
// never released explicitly; they expire after ttl.
func (s *LockStore) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "lock:"+name, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
