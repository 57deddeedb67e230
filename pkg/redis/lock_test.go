package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLocker(t *testing.T) *Locker {
	t.Helper()

	host := os.Getenv("REDIS_HOST")
	if host == "" || testing.Short() {
		t.Skip("REDIS_HOST not set")
	}
	port := 6379
	if p, err := strconv.Atoi(os.Getenv("REDIS_PORT")); err == nil {
		port = p
	}

	client, err := NewClient(context.Background(), Config{Host: host, Port: port}, ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewLocker(client, "thistle-test:"+uuid.NewString()+":")
}

func TestLocker_AcquireRelease(t *testing.T) {
	l := testLocker(t)
	ctx := context.Background()

	lock, err := l.Acquire(ctx, "account:p:domain:acme.com", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "account:p:domain:acme.com", time.Minute)
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	require.NoError(t, lock.Release(ctx))
	assert.ErrorIs(t, lock.Release(ctx), ErrLockNotHeld)

	again, err := l.Acquire(ctx, "account:p:domain:acme.com", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocker_TryAcquireWaitsForExpiry(t *testing.T) {
	l := testLocker(t)
	ctx := context.Background()

	_, err := l.Acquire(ctx, "k", 100*time.Millisecond)
	require.NoError(t, err)

	lock, err := l.TryAcquire(ctx, "k", time.Minute, 2*time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx))
}

func TestLocker_TryAcquireTimesOut(t *testing.T) {
	l := testLocker(t)
	ctx := context.Background()

	held, err := l.Acquire(ctx, "k", time.Minute)
	require.NoError(t, err)
	defer held.Release(ctx)

	_, err = l.TryAcquire(ctx, "k", time.Minute, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}
