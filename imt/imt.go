// Package imt implements a fixed-capacity incremental Merkle tree over a
// pluggable store.Store and hasher.Hasher. Every leaf starts at a null
// sentinel value and is replaced by proof-carrying updates.
package imt

import (
	"context"
	"errors"
	"fmt"

	"github.com/forestrie/go-accumulators/hasher"
	"github.com/forestrie/go-accumulators/store"
)

// ErrInvalidSize is returned by Initialize when size is zero.
var ErrInvalidSize = errors.New("imt: invalid size")

// ErrInvalidIndex is returned when a leaf index is out of [0, size) range.
var ErrInvalidIndex = errors.New("imt: invalid leaf index")

// ErrMissingNode is returned when a node expected to exist in the store is
// absent.
var ErrMissingNode = errors.New("imt: missing node")

// ErrMissingRoot is returned by GetRoot before the tree has been
// initialized.
var ErrMissingRoot = errors.New("imt: missing root")

// ErrInvalidProof is returned by Update when the supplied inclusion proof
// does not verify against the tree's current root.
var ErrInvalidProof = errors.New("imt: invalid proof")

// ErrMalformedProof is returned by VerifyMultiProof when the supplied
// indexes/values/proof cannot be reconciled — a required sibling is
// missing with no proof entry left to supply it, or entries are left over
// once the root is reached.
var ErrMalformedProof = errors.New("imt: malformed multi-proof")

// IMT is a fixed-capacity binary Merkle tree addressed by (depth, index)
// node keys, depth 0 being the root row.
type IMT struct {
	id     string
	hasher hasher.Hasher
	store  store.Store
	nodes  *store.InStoreTable

	rootKey   string
	size      uint64
	depth     uint64
	nullValue string
}

// ID returns the tree's id.
func (t *IMT) ID() string { return t.id }

// Size returns the tree's fixed leaf capacity.
func (t *IMT) Size() uint64 { return t.size }

// Depth returns ⌈log₂(size)⌉, the distance from any leaf to the root.
func (t *IMT) Depth() uint64 { return t.depth }

func depthForSize(size uint64) uint64 {
	d := uint64(0)
	for (uint64(1) << d) < size {
		d++
	}
	return d
}

func nodeSubKey(depth, index uint64) store.SubKey {
	return store.StringKey(fmt.Sprintf("%d:%d", depth, index))
}

func newTree(s store.Store, h hasher.Hasher, size uint64, nullValue, id string) *IMT {
	if id == "" {
		id = store.NewID()
	}
	return &IMT{
		id:        id,
		hasher:    h,
		store:     s,
		nodes:     store.NewInStoreTable(s, fmt.Sprintf("%s:nodes:", id)),
		rootKey:   fmt.Sprintf("%s:root_hash", id),
		size:      size,
		depth:     depthForSize(size),
		nullValue: nullValue,
	}
}

// Initialize builds a size-leaf tree with every leaf set to nullValue, then
// persists every node (leaf through root) and the root hash. If id is
// empty, a fresh UUID is generated.
func Initialize(ctx context.Context, s store.Store, h hasher.Hasher, size uint64, nullValue string, id string) (*IMT, error) {
	if size == 0 {
		return nil, fmt.Errorf("imt: initialize: %w", ErrInvalidSize)
	}
	t := newTree(s, h, size, nullValue, id)

	level := make([]string, size)
	for i := range level {
		level[i] = nullValue
	}

	entries := make(map[store.SubKey]string, 2*size)
	for i, v := range level {
		entries[nodeSubKey(t.depth, uint64(i))] = v
	}

	for d := int64(t.depth) - 1; d >= 0; d-- {
		width := (len(level) + 1) / 2
		next := make([]string, width)
		for i := 0; i < width; i++ {
			left := level[2*i]
			right := nullValue
			if 2*i+1 < len(level) {
				right = level[2*i+1]
			}
			hashed, err := t.hasher.Hash([]string{left, right})
			if err != nil {
				return nil, fmt.Errorf("imt: initialize: %w", err)
			}
			next[i] = hashed
			entries[nodeSubKey(uint64(d), uint64(i))] = hashed
		}
		level = next
	}

	if err := t.nodes.SetMany(ctx, entries); err != nil {
		return nil, fmt.Errorf("imt: initialize: %w", err)
	}
	root := level[0]
	if err := t.store.Set(ctx, t.rootKey, root); err != nil {
		return nil, fmt.Errorf("imt: initialize: %w", err)
	}
	return t, nil
}

// GetRoot returns the tree's current root hash.
func (t *IMT) GetRoot(ctx context.Context) (string, error) {
	v, ok, err := t.store.Get(ctx, t.rootKey)
	if err != nil {
		return "", fmt.Errorf("imt: get root: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("imt: get root: %w", ErrMissingRoot)
	}
	return v, nil
}
