package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL session advisory locks.
//
// Advisory locks belong to a server session, so each held lock pins one
// pooled connection until Release. The TTL is ignored: the lock lives until
// it is released or the connection drops.
type AdvisoryLock struct {
	db *DB

	mu   sync.Mutex
	held map[string]heldLock
}

// heldLock is a pinned session and the lease owner that took it
type heldLock struct {
	conn  *sql.Conn
	owner string
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{
		db:   db,
		held: make(map[string]heldLock),
	}
}

// hashLockName maps a lock name to the 64-bit key space of advisory locks
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("sercha-rag:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts pg_try_advisory_lock on a dedicated connection
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Session locks are reentrant on the server; keep them exclusive here
	if _, held := l.held[name]; held {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", hashLockName(name)).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	if !acquired {
		conn.Close()
		return false, nil
	}

	l.held[name] = heldLock{conn: conn, owner: driven.LockOwner(ctx)}
	return true, nil
}

// Release unlocks on the connection that acquired the lock and returns it to the pool.
// A caller other than the lease owner leaves the lock in place.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	l.mu.Lock()
	lock, held := l.held[name]
	if !held || lock.owner != driven.LockOwner(ctx) {
		l.mu.Unlock()
		return nil
	}
	delete(l.held, name)
	l.mu.Unlock()

	defer lock.conn.Close()

	var released bool
	if err := lock.conn.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", hashLockName(name)).Scan(&released); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend only checks ownership; advisory locks do not expire
func (l *AdvisoryLock) Extend(ctx context.Context, name string, _ time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, held := l.held[name]
	if !held {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	if lock.owner != driven.LockOwner(ctx) {
		return fmt.Errorf("lock %s held by another owner", name)
	}
	return nil
}

// Ping checks if the PostgreSQL backend is healthy
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
