package locker

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Locker is a short-lived, key-scoped mutual-exclusion lock. Acquire is an
// atomic set-if-absent with an expiry so a crashed holder cannot block
// callers past the TTL. An error return means the lock backend itself is
// unavailable; callers decide the fail-open/fail-closed policy.
type Locker interface {
	Acquire(key string, ttl time.Duration) (bool, error)
	Release(key string)
}

type memoryLocker struct {
	store *gocache.Cache
}

// NewMemoryLocker returns an in-process Locker backed by a TTL cache.
func NewMemoryLocker() Locker {
	return &memoryLocker{
		store: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

// Acquire implements Locker. go-cache's Add is set-if-absent: it fails when
// a live (non-expired) entry already holds the key.
func (l *memoryLocker) Acquire(key string, ttl time.Duration) (bool, error) {
	if err := l.store.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// Release implements Locker.
func (l *memoryLocker) Release(key string) {
	l.store.Delete(key)
}
