package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockKeyEmpty   = errors.New("lock key is empty")
	ErrLockTTLInvalid = errors.New("lock ttl must be positive")
)

// Locker hands out leases on named keys. Backed by redis the lease holds
// across replicas; without a client it only covers this process.
type Locker struct {
	client redis.UniversalClient
	script *redis.Script

	mu    sync.Mutex
	local *LRU[string, string]
}

func NewLocker(client redis.UniversalClient) *Locker {
	return &Locker{
		client: client,
		script: redis.NewScript(lockReleaseScript),
		local:  NewLRU[string, string](256),
	}
}

// TryLock takes the lease on key for ttl. ok is false when another holder
// owns it; the returned token is needed to release it early.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if key == "" {
		return "", false, ErrLockKeyEmpty
	}
	if ttl <= 0 {
		return "", false, ErrLockTTLInvalid
	}

	token := uuid.NewString()
	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, held := l.local.Get(key); held {
			return "", false, nil
		}
		l.local.Set(key, token, ttl)
		return token, true, nil
	}

	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

// Release drops the lease if token still owns it.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if key == "" || token == "" {
		return nil
	}
	if l.client == nil {
		l.mu.Lock()
		defer l.mu.Unlock()
		if current, ok := l.local.Get(key); ok && current == token {
			l.local.Delete(key)
		}
		return nil
	}
	return l.script.Run(ctx, l.client, []string{key}, token).Err()
}
