package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// DefaultPrefix namespaces lock keys
const DefaultPrefix = "sercha-rag:lock:"

// Lock implements DistributedLock using Redis SET NX with TTL.
//
// The value stored under a key names its holder: the instance owner ID,
// followed by the lease owner from the context when there is one. Release and
// Extend go through Lua scripts that compare the holder before touching the
// key, so neither another replica nor a run whose lease lapsed can free the
// lock of the current holder.
type Lock struct {
	client  *redis.Client
	prefix  string
	ownerID string
	logger  *slog.Logger
}

// NewLock creates a Redis-backed lock using DefaultPrefix
func NewLock(client *redis.Client) *Lock {
	return NewLockWithPrefix(client, DefaultPrefix)
}

// NewLockWithPrefix creates a Redis-backed lock whose keys start with prefix
func NewLockWithPrefix(client *redis.Client, prefix string) *Lock {
	return &Lock{
		client:  client,
		prefix:  prefix,
		ownerID: instanceID(),
		logger:  slog.Default().With("component", "redis-lock"),
	}
}

// instanceID returns hostname:pid:random
func instanceID() string {
	hostname, _ := os.Hostname()
	randomBytes := make([]byte, 8)
	_, _ = rand.Read(randomBytes)
	return fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(randomBytes))
}

func (l *Lock) key(name string) string {
	return l.prefix + name
}

// holder is the value written for the lease owner in ctx
func (l *Lock) holder(ctx context.Context) string {
	if owner := driven.LockOwner(ctx); owner != "" {
		return l.ownerID + "/" + owner
	}
	return l.ownerID
}

// Acquire sets the key only if it is absent.
// Returns false if any holder, including this one, already has it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key(name), l.holder(ctx), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// Script results shared by release and extend
const (
	scriptMissing     = 0
	scriptOtherHolder = -1
)

// releaseScript deletes the key if ARGV[1] holds it.
// Returns 1 on delete, 0 if the key is gone, -1 if someone else holds it.
var releaseScript = redis.NewScript(`
	local holder = redis.call("get", KEYS[1])
	if holder == ARGV[1] then
		return redis.call("del", KEYS[1])
	elseif holder then
		return -1
	end
	return 0
`)

// Release deletes the key if the holder in ctx still owns it
func (l *Lock) Release(ctx context.Context, name string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.key(name)}, l.holder(ctx)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	if n == scriptOtherHolder {
		l.logger.Warn("lock taken over by another holder, not released", "lock", name, "holder", l.holder(ctx))
	}
	return nil
}

// extendScript resets the TTL to ARGV[2] ms if ARGV[1] holds the key.
// Returns 1 on success, 0 if the key is gone, -1 if someone else holds it.
var extendScript = redis.NewScript(`
	local holder = redis.call("get", KEYS[1])
	if holder == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	elseif holder then
		return -1
	end
	return 0
`)

// Extend renews the TTL of a lock the holder in ctx owns
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	n, err := extendScript.Run(ctx, l.client, []string{l.key(name)}, l.holder(ctx), ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	switch n {
	case scriptMissing:
		return fmt.Errorf("lock %s expired", name)
	case scriptOtherHolder:
		return fmt.Errorf("lock %s held by another owner", name)
	}
	return nil
}

// Ping checks if the Redis backend is healthy
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID returns the instance part of the values written into held keys
func (l *Lock) OwnerID() string {
	return l.ownerID
}
