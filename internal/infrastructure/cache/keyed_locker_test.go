package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storefront/fulfillment/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryKeyedLocker_SerializesSameKey(t *testing.T) {
	locker := NewInMemoryKeyedLocker()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		active  int32
		maxSeen int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "cs_test_1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				m := atomic.LoadInt32(&maxSeen)
				if n <= m || atomic.CompareAndSwapInt32(&maxSeen, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxSeen)
	assert.Equal(t, 0, locker.Keys(), "idle keys are dropped")
}

func TestInMemoryKeyedLocker_IndependentKeys(t *testing.T) {
	locker := NewInMemoryKeyedLocker()
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	ctxB, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := locker.Lock(ctxB, "b")
	require.NoError(t, err)
	unlockB()
}

func TestInMemoryKeyedLocker_ContextCancel(t *testing.T) {
	locker := NewInMemoryKeyedLocker()

	unlock, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy")
	assert.ErrorIs(t, err, shared.ErrLockNotAcquired)

	unlock()
	unlock()
	assert.Equal(t, 0, locker.Keys())

	again, err := locker.Lock(context.Background(), "busy")
	require.NoError(t, err)
	again()
}
