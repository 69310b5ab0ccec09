// Package store defines the key-value contract that every accumulator is
// built on, plus the namespaced-table and decimal-counter abstractions
// layered over it, and a handful of concrete backends (in-memory, bbolt,
// SQLite).
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by InStoreTable.GetMany when a requested sub-key
// has no value. A plain Store.GetMany does not return it; it omits absent
// keys from its result instead.
var ErrNotFound = errors.New("store: key not found")

// Store is the async string-keyed, string-valued key-value contract every
// accumulator is built on. Every method takes a leading context.Context so
// a caller can cancel a batched read or write without inventing a bespoke
// cancellation channel.
type Store interface {
	// Get reads a single key. The second return is false when the key is
	// absent; absence is not an error at this layer.
	Get(ctx context.Context, key string) (string, bool, error)
	// GetMany reads a batch of keys. The returned map omits any key that was
	// absent; callers that need to detect partial misses must compare
	// len(result) against len(keys) themselves, or use InStoreTable.GetMany,
	// which promotes an absent key to ErrNotFound.
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	// Set writes a single key, creating or overwriting it.
	Set(ctx context.Context, key, value string) error
	// SetMany writes a batch of keys. Implementations must apply the whole
	// batch atomically with respect to other callers of this Store.
	SetMany(ctx context.Context, entries map[string]string) error
	// Delete removes a single key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	// DeleteMany removes a batch of keys.
	DeleteMany(ctx context.Context, keys []string) error
	// ID returns a diagnostic identifier for this store instance.
	ID() string
}
