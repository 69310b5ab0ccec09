package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterDefaultsToZero(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(NewMemory(), "x:leaf_count")
	v, err := c.Get(ctx)
	require.NoError(t, err)
	require.Zero(t, v)
}

func TestCounterSetAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(NewMemory(), "x:leaf_count")
	require.NoError(t, c.Set(ctx, 41))
	v, err := c.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(41), v)
}

func TestCounterIncrement(t *testing.T) {
	ctx := context.Background()
	c := NewCounter(NewMemory(), "x:leaf_count")
	for want := uint64(1); want <= 5; want++ {
		got, err := c.Increment(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestCounterMalformedValueIsError(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.Set(ctx, "x:leaf_count", "not-a-number"))
	c := NewCounter(s, "x:leaf_count")
	_, err := c.Get(ctx)
	require.Error(t, err)
}
