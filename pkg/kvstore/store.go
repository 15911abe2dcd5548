// Package kvstore defines the keyed TTL store injected into the pipeline and
// alert components, plus an in-process implementation.
//
// Values are JSON encoded so every backend (memory, Redis, Badger) stores the
// same bytes for the same value.
package kvstore

import (
	"context"
	"time"
)

// Store is a keyed value store with per-key expiry. A zero ttl means no expiry.
type Store interface {
	// Get decodes the value stored under key into dest. found is false when the
	// key is missing or expired.
	Get(ctx context.Context, key string, dest interface{}) (found bool, err error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Locker grants short-lived exclusive leases, e.g. one alert sweep at a time
// across replicas.
type Locker interface {
	// TryLock returns false without blocking when the lease is held elsewhere.
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// LockKey namespaces lease keys so they never collide with cached values
func LockKey(name string) string {
	return "lock:" + name
}
