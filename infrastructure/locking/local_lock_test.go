package locking

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock_OneWinnerUnderContention(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok, _ := lock.TryAcquire(ctx, "transcode:lock:v", time.Minute); ok {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners)
}

func TestLocalLock_ReleaseAndExpiry(t *testing.T) {
	lock := NewLocalLock()
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	lock.clock = func() time.Time { return now }

	token, ok, err := lock.TryAcquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, lock.Release(ctx, "k", "wrong"))
	_, ok, _ = lock.TryAcquire(ctx, "k", time.Minute)
	assert.False(t, ok, "wrong token must not release")

	require.NoError(t, lock.Release(ctx, "k", token))
	token, ok, _ = lock.TryAcquire(ctx, "k", time.Minute)
	require.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = lock.TryAcquire(ctx, "k", time.Minute)
	assert.True(t, ok, "expired lock can be taken over")

	// token เก่าปล่อย lock ของผู้ถือใหม่ไม่ได้
	require.NoError(t, lock.Release(ctx, "k", token))
	_, ok, _ = lock.TryAcquire(ctx, "k", time.Minute)
	assert.False(t, ok)
}
