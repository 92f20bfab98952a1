package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

// lease is one acquisition of a named lock
type lease struct {
	owner  string
	expiry time.Time // zero never expires
}

// Lock implements DistributedLock within a single process.
// Expired entries are treated as free; there is no background reaper.
type Lock struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewLock creates a new in-process lock
func NewLock() *Lock {
	return &Lock{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// Acquire takes name for the holder in ctx.
// A ttl of zero or less holds the lock until Release.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, exists := l.leases[name]; exists && l.alive(current) {
		return false, nil
	}

	l.leases[name] = lease{owner: driven.LockOwner(ctx), expiry: l.expiry(ttl)}
	return true, nil
}

// Release frees name if the holder in ctx still owns it
func (l *Lock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, exists := l.leases[name]; exists && current.owner == driven.LockOwner(ctx) {
		delete(l.leases, name)
	}
	return nil
}

// Extend renews the lease of the holder in ctx
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.leases[name]
	if !exists || !l.alive(current) {
		return fmt.Errorf("lock %s not held", name)
	}
	if current.owner != driven.LockOwner(ctx) {
		return fmt.Errorf("lock %s held by another owner", name)
	}

	current.expiry = l.expiry(ttl)
	l.leases[name] = current
	return nil
}

// Ping always succeeds
func (l *Lock) Ping(_ context.Context) error {
	return nil
}

// IsHeld reports whether anyone currently holds name
func (l *Lock) IsHeld(name string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, exists := l.leases[name]
	return exists && l.alive(current)
}

func (l *Lock) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return l.now().Add(ttl)
}

func (l *Lock) alive(current lease) bool {
	return current.expiry.IsZero() || l.now().Before(current.expiry)
}
