package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLease(t *testing.T) (*Lease, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLease(client, Config{TTL: 10 * time.Second, RetryDelay: 5 * time.Millisecond}), mr
}

func TestLease_AcquireRelease(t *testing.T) {
	lease, mr := setupLease(t)

	release, err := lease.Acquire(context.Background(), "user-1/CALENDAR")
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultPrefix+"user-1/CALENDAR"))

	release()
	assert.False(t, mr.Exists(DefaultPrefix+"user-1/CALENDAR"))
}

func TestLease_Contention(t *testing.T) {
	lease, _ := setupLease(t)
	ctx := context.Background()

	release, err := lease.Acquire(ctx, "user-1/MUSIC")
	require.NoError(t, err)

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err = lease.Acquire(shortCtx, "user-1/MUSIC")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()

	release2, err := lease.Acquire(ctx, "user-1/MUSIC")
	require.NoError(t, err)
	release2()
}

func TestLease_WaiterAcquiresAfterRelease(t *testing.T) {
	lease, _ := setupLease(t)
	ctx := context.Background()

	release, err := lease.Acquire(ctx, "user-1/VIDEO")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		r, err := lease.Acquire(ctx, "user-1/VIDEO")
		if err == nil {
			r()
		}
		close(acquired)
	}()

	time.Sleep(20 * time.Millisecond)
	release()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never acquired the lease")
	}
}

func TestLease_ReleaseDoesNotDeleteForeignToken(t *testing.T) {
	lease, mr := setupLease(t)
	key := DefaultPrefix + "user-1/CALENDAR"

	release, err := lease.Acquire(context.Background(), "user-1/CALENDAR")
	require.NoError(t, err)

	// Simulate TTL expiry followed by another holder.
	require.NoError(t, mr.Set(key, "someone-else"))

	release()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestLease_ExpiresAfterTTL(t *testing.T) {
	lease, mr := setupLease(t)
	ctx := context.Background()

	first, err := lease.Acquire(ctx, "user-1/MUSIC")
	require.NoError(t, err)
	defer first()

	mr.FastForward(11 * time.Second)

	release, err := lease.Acquire(ctx, "user-1/MUSIC")
	require.NoError(t, err)
	release()
}

func TestLease_RenewsWhileHeld(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lease := NewLease(client, Config{TTL: 300 * time.Millisecond, RetryDelay: 5 * time.Millisecond})
	key := DefaultPrefix + "user-1/CALENDAR"

	release, err := lease.Acquire(context.Background(), "user-1/CALENDAR")
	require.NoError(t, err)

	// A slow refresh has used most of the TTL.
	mr.FastForward(250 * time.Millisecond)
	require.True(t, mr.Exists(key))
	assert.Eventually(t, func() bool {
		return mr.TTL(key) > 200*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	release()
	assert.False(t, mr.Exists(key))
}

func TestLease_RenewalStopsWhenLost(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	lease := NewLease(client, Config{TTL: 90 * time.Millisecond, RetryDelay: 5 * time.Millisecond})
	key := DefaultPrefix + "user-1/VIDEO"

	release, err := lease.Acquire(context.Background(), "user-1/VIDEO")
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, "someone-else"))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, time.Duration(0), mr.TTL(key))

	release()
	release()
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}

func TestNewLease_Defaults(t *testing.T) {
	lease := NewLease(nil, Config{})
	assert.Equal(t, DefaultTTL, lease.ttl)
	assert.Equal(t, DefaultRetryDelay, lease.retryDelay)
	assert.Equal(t, DefaultPrefix, lease.prefix)
}
