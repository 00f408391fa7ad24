package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/storefront/fulfillment/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryKeyedLocker serializes work per key inside one process
type InMemoryKeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewInMemoryKeyedLocker creates an empty locker
func NewInMemoryKeyedLocker() *InMemoryKeyedLocker {
	return &InMemoryKeyedLocker{locks: make(map[string]*keyLock)}
}

// Lock waits for key or until ctx is done
func (l *InMemoryKeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	l.mu.Unlock()

	select {
	case kl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(key, kl)
		return nil, fmt.Errorf("%w: %v", shared.ErrLockNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-kl.sem
			l.release(key, kl)
		})
	}, nil
}

// release drops one reference and forgets idle keys
func (l *InMemoryKeyedLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// Keys returns the number of keys currently held or awaited
func (l *InMemoryKeyedLocker) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// DefaultLockKeyPrefix namespaces lock keys in Redis
const DefaultLockKeyPrefix = "fulfillment:lock:"

const lockRetryInterval = 50 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisKeyedLocker is a lease lock shared by every replica. A holder that
// dies loses the lock after ttl.
type RedisKeyedLocker struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	retry  time.Duration
	logger *zap.Logger
}

// NewRedisKeyedLocker creates a locker whose leases last ttl
func NewRedisKeyedLocker(client redis.UniversalClient, ttl time.Duration, logger *zap.Logger) *RedisKeyedLocker {
	return &RedisKeyedLocker{
		client: client,
		prefix: DefaultLockKeyPrefix,
		ttl:    ttl,
		retry:  lockRetryInterval,
		logger: logger,
	}
}

// Lock polls SET NX until the lease is taken or ctx is done
func (l *RedisKeyedLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.prefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrLockNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", shared.ErrLockNotAcquired, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, l.client, []string{redisKey}, token).Err(); err != nil {
				l.logger.Warn("Failed to release lock", zap.String("key", key), zap.Error(err))
			}
		})
	}, nil
}

var (
	_ shared.KeyedLocker = (*InMemoryKeyedLocker)(nil)
	_ shared.KeyedLocker = (*RedisKeyedLocker)(nil)
)
