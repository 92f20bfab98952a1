package driven

import (
	"context"
	"time"
)

// DistributedLock provides named locks for coordinating ingestion.
// The in-process implementation is enough for a single server; the Redis and
// PostgreSQL implementations serialize ingestion across replicas.
//
// A lease holder can be attached to the context with WithLockOwner. Acquire
// records it, and Release and Extend leave a lock alone when a different
// holder has taken it over, for example after the first lease expired.
type DistributedLock interface {
	// Acquire takes the named lock for ttl. It returns false when the lock
	// is already held by anyone, this process included.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release frees the lock if the caller still holds it.
	// Releasing a lock that is free, expired or held by someone else is not an error.
	Release(ctx context.Context, name string) error

	// Extend renews the lease. It fails if the caller no longer holds the lock.
	// PostgreSQL advisory locks never expire, so there it only checks ownership.
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}

type lockOwnerKey struct{}

// WithLockOwner returns a context that identifies owner as the lease holder.
func WithLockOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, lockOwnerKey{}, owner)
}

// LockOwner returns the holder set by WithLockOwner, or "" if there is none.
func LockOwner(ctx context.Context) string {
	owner, _ := ctx.Value(lockOwnerKey{}).(string)
	return owner
}
