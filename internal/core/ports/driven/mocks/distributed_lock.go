package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

type mockLease struct {
	owner  string
	expiry time.Time
}

// MockDistributedLock keeps named leases in memory.
// AcquireFn, when set, replaces Acquire entirely.
type MockDistributedLock struct {
	mu     sync.Mutex
	leases map[string]mockLease

	AcquireFn func(name string, ttl time.Duration) (bool, error)

	// PingErr is returned by Ping
	PingErr error
}

// NewMockDistributedLock creates a mock with no leases held.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{leases: make(map[string]mockLease)}
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	if m.AcquireFn != nil {
		return m.AcquireFn(name, ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.heldLocked(name) {
		return false, nil
	}
	m.leases[name] = mockLease{owner: driven.LockOwner(ctx), expiry: time.Now().Add(ttl)}
	return true, nil
}

// Release drops the lease only for the owner that took it.
func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lease, ok := m.leases[name]; ok && lease.owner == driven.LockOwner(ctx) {
		delete(m.leases, name)
	}
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.heldLocked(name) {
		return fmt.Errorf("lock %s not held", name)
	}
	lease := m.leases[name]
	if lease.owner != driven.LockOwner(ctx) {
		return fmt.Errorf("lock %s held by another owner", name)
	}
	lease.expiry = time.Now().Add(ttl)
	m.leases[name] = lease
	return nil
}

func (m *MockDistributedLock) Ping(context.Context) error {
	return m.PingErr
}

// IsHeld reports whether name has an unexpired lease.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// SetLockHeld simulates another holder taking name for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leases[name] = mockLease{owner: "other-replica", expiry: time.Now().Add(ttl)}
}

func (m *MockDistributedLock) heldLocked(name string) bool {
	lease, ok := m.leases[name]
	return ok && time.Now().Before(lease.expiry)
}
