package lock

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mockly/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *RedisLocker {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client, err := NewRedisClient(config.RedisConfig{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(context.Background()).Err())
	return NewRedisLocker(client, time.Second)
}

func TestNewRedisClientRequiresAddr(t *testing.T) {
	_, err := NewRedisClient(config.RedisConfig{})
	assert.Error(t, err)
}

func TestAcquireIsExclusive(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	key := "test-slot:" + uuid.NewString()

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrLocked)

	release()
	again, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	again()
}

func TestLockExpires(t *testing.T) {
	locker := newTestLocker(t)
	ctx := context.Background()
	key := "test-slot:" + uuid.NewString()

	stale, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	time.Sleep(1200 * time.Millisecond)

	fresh, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	stale()

	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrLocked, "a stale release must not drop the new holder's lock")
	fresh()
}
