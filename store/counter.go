package store

import (
	"context"
	"fmt"
	"strconv"
)

// Counter is an integer counter persisted as a decimal string under a
// single key. It is the backing for an MMR's leaf_count/elements_count and
// is not internally serialized: callers sharing a Counter across goroutines
// must serialize access themselves.
type Counter struct {
	store Store
	key   string
}

// NewCounter returns a Counter persisted at key within store.
func NewCounter(s Store, key string) *Counter {
	return &Counter{store: s, key: key}
}

// Get returns the counter's current value, or 0 if the key is absent.
func (c *Counter) Get(ctx context.Context) (uint64, error) {
	raw, ok, err := c.store.Get(ctx, c.key)
	if err != nil {
		return 0, fmt.Errorf("store: counter %q: %w", c.key, err)
	}
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("store: counter %q: malformed value %q: %w", c.key, raw, err)
	}
	return v, nil
}

// Set writes v as the counter's new value.
func (c *Counter) Set(ctx context.Context, v uint64) error {
	if err := c.store.Set(ctx, c.key, strconv.FormatUint(v, 10)); err != nil {
		return fmt.Errorf("store: counter %q: %w", c.key, err)
	}
	return nil
}

// Increment reads the current value, writes value+1, and returns the new
// value. It is not atomic: concurrent Increment calls on the same key race.
func (c *Counter) Increment(ctx context.Context) (uint64, error) {
	v, err := c.Get(ctx)
	if err != nil {
		return 0, err
	}
	v++
	if err := c.Set(ctx, v); err != nil {
		return 0, err
	}
	return v, nil
}
