package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/ukydev/vehicle-rental/internal/lock"
)

const (
	lockPrefix   = "lock:"
	lockPollWait = 25 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired holder cannot release a lock that was since taken by someone else.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// LockStore is a cross-process lock.Locker backed by SET NX PX.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewLockStore creates a new LockStore. ttl bounds how long a crashed holder
// keeps the lock; wait bounds how long Lock polls.
func NewLockStore(client *redis.Client, ttl, wait time.Duration) *LockStore {
	return &LockStore{client: client, ttl: ttl, wait: wait}
}

// Lock implements lock.Locker.
func (s *LockStore) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(s.wait)

	for {
		ok, err := s.client.SetNX(ctx, redisKey, token, s.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, lock.ErrTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollWait):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = releaseScript.Run(ctx, s.client, []string{redisKey}, token).Err()
		})
	}, nil
}

var _ lock.Locker = (*LockStore)(nil)
