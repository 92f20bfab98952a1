package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()).Err())
}

func TestConnect_InvalidURL(t *testing.T) {
	_, err := Connect(context.Background(), "not-a-url")
	assert.Error(t, err)
}

func TestLock_OwnerIDUnique(t *testing.T) {
	_, client := setupTestRedis(t)

	assert.NotEqual(t, NewLock(client).OwnerID(), NewLock(client).OwnerID())
}

func TestLock_AcquireWritesPrefixedKey(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)

	acquired, err := lock.Acquire(context.Background(), "ingest", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)

	owner, err := mr.Get(DefaultPrefix + "ingest")
	require.NoError(t, err)
	assert.Equal(t, lock.OwnerID(), owner)
	assert.Equal(t, time.Minute, mr.TTL(DefaultPrefix+"ingest"))
}

func TestLock_AcquireHeldByOtherReplica(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	replicaA := NewLock(client)
	replicaB := NewLock(client)

	acquired, err := replicaA.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = replicaB.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)

	// Not reentrant either
	acquired, err = replicaA.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.False(t, acquired)
}

func TestLock_ReleaseAllowsReacquire(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	_, err := lock.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	require.NoError(t, lock.Release(ctx, "ingest"))

	acquired, err := lock.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.True(t, acquired)
}

func TestLock_ReleaseNotHeld(t *testing.T) {
	_, client := setupTestRedis(t)

	assert.NoError(t, NewLock(client).Release(context.Background(), "ingest"))
}

func TestLock_ReleaseByOtherOwnerIsIgnored(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	owner := NewLock(client)
	other := NewLock(client)

	_, err := owner.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx, "ingest"))

	assert.True(t, mr.Exists(DefaultPrefix+"ingest"))
}

func TestLock_Expiry(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	crashed := NewLock(client)
	survivor := NewLock(client)

	_, err := crashed.Acquire(ctx, "ingest", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	acquired, err := survivor.Acquire(ctx, "ingest", time.Second)
	require.NoError(t, err)
	assert.True(t, acquired, "expired lock should be free")
}

func TestLock_Extend(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	_, err := lock.Acquire(ctx, "ingest", time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Extend(ctx, "ingest", time.Hour))

	assert.Equal(t, time.Hour, mr.TTL(DefaultPrefix+"ingest"))
}

func TestLock_ExtendNotHeld(t *testing.T) {
	_, client := setupTestRedis(t)
	ctx := context.Background()
	owner := NewLock(client)
	other := NewLock(client)

	assert.Error(t, owner.Extend(ctx, "ingest", time.Minute))

	_, err := owner.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)
	assert.Error(t, other.Extend(ctx, "ingest", time.Minute))
}

func TestLock_CustomPrefix(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLockWithPrefix(client, "replica-set-a:")

	_, err := lock.Acquire(context.Background(), "ingest", time.Minute)
	require.NoError(t, err)

	assert.True(t, mr.Exists("replica-set-a:ingest"))
	assert.False(t, mr.Exists(DefaultPrefix+"ingest"))
}

func TestLock_Ping(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)

	assert.NoError(t, lock.Ping(context.Background()))

	mr.Close()
	assert.Error(t, lock.Ping(context.Background()))
}

func TestLock_HolderIncludesLeaseOwner(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)
	ctx := driven.WithLockOwner(context.Background(), "run-1")

	_, err := lock.Acquire(ctx, "ingest", time.Minute)
	require.NoError(t, err)

	holder, err := mr.Get(DefaultPrefix + "ingest")
	require.NoError(t, err)
	assert.Equal(t, lock.OwnerID()+"/run-1", holder)
}

func TestLock_LapsedLeaseCannotReleaseSuccessor(t *testing.T) {
	mr, client := setupTestRedis(t)
	lock := NewLock(client)
	first := driven.WithLockOwner(context.Background(), "run-1")
	second := driven.WithLockOwner(context.Background(), "run-2")

	_, err := lock.Acquire(first, "ingest", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	acquired, err := lock.Acquire(second, "ingest", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	require.NoError(t, lock.Release(first, "ingest"))
	assert.True(t, mr.Exists(DefaultPrefix+"ingest"), "successor keeps the lock")

	err = lock.Extend(first, "ingest", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "held by another owner")

	require.NoError(t, lock.Release(second, "ingest"))
	assert.False(t, mr.Exists(DefaultPrefix+"ingest"))
}

func TestLock_ExtendExpired(t *testing.T) {
	mr, client := setupTestRedis(t)
	ctx := context.Background()
	lock := NewLock(client)

	_, err := lock.Acquire(ctx, "ingest", time.Second)
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	err = lock.Extend(ctx, "ingest", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
