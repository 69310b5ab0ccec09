package imt

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-accumulators/hasher"
	"github.com/forestrie/go-accumulators/store"
)

const nullValue = "0x0"

func newTestIMT(ctx context.Context, t *testing.T, size uint64) (*IMT, *store.Memory) {
	t.Helper()
	s := store.NewMemory()
	tree, err := Initialize(ctx, s, hasher.NewKeccak256(), size, nullValue, "")
	require.NoError(t, err)
	return tree, s
}

func TestInitializeRejectsZeroSize(t *testing.T) {
	ctx := context.Background()
	_, err := Initialize(ctx, store.NewMemory(), hasher.NewKeccak256(), 0, nullValue, "")
	require.ErrorIs(t, err, ErrInvalidSize)
}

// The empty tree's root is the cascade of null-value hashes.
func TestInitializeRoot(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 4)
	require.Equal(t, uint64(2), tree.Depth())

	h := hasher.NewKeccak256()
	level1, err := h.Hash([]string{nullValue, nullValue})
	require.NoError(t, err)
	want, err := h.Hash([]string{level1, level1})
	require.NoError(t, err)

	root, err := tree.GetRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, want, root)
}

func TestInclusionProofVerifiesEveryLeaf(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 8)

	for i := uint64(0); i < 8; i++ {
		proof, err := tree.GetInclusionProof(ctx, i)
		require.NoError(t, err)
		require.Len(t, proof, 3)

		ok, err := tree.VerifyProof(ctx, i, nullValue, proof)
		require.NoError(t, err)
		require.True(t, ok, "leaf %d", i)

		ok, err = tree.VerifyProof(ctx, i, "0x1", proof)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestInclusionProofRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 8)
	_, err := tree.GetInclusionProof(ctx, 8)
	require.ErrorIs(t, err, ErrInvalidIndex)
}

// Scenario: update leaf 7 of a 16-leaf tree from the null value to "0x1";
// the old proof stops verifying the old value against the new root, and a
// fresh proof verifies the new one.
func TestUpdate(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 16)

	oldRoot, err := tree.GetRoot(ctx)
	require.NoError(t, err)

	proof, err := tree.GetInclusionProof(ctx, 7)
	require.NoError(t, err)
	require.NoError(t, tree.Update(ctx, 7, nullValue, "0x1", proof))

	newRoot, err := tree.GetRoot(ctx)
	require.NoError(t, err)
	require.NotEqual(t, oldRoot, newRoot)

	ok, err := tree.VerifyProof(ctx, 7, nullValue, proof)
	require.NoError(t, err)
	require.False(t, ok)

	freshProof, err := tree.GetInclusionProof(ctx, 7)
	require.NoError(t, err)
	ok, err = tree.VerifyProof(ctx, 7, "0x1", freshProof)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestUpdateRejectsStaleProof(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 8)

	proof, err := tree.GetInclusionProof(ctx, 3)
	require.NoError(t, err)
	err = tree.Update(ctx, 3, "0x2", "0x3", proof)
	require.ErrorIs(t, err, ErrInvalidProof)
}

// An update touches exactly the nodes on the leaf's path plus the stored
// root, nothing else.
func TestUpdateLocality(t *testing.T) {
	ctx := context.Background()
	tree, s := newTestIMT(ctx, t, 8)

	before := s.Snapshot()

	proof, err := tree.GetInclusionProof(ctx, 5)
	require.NoError(t, err)
	require.NoError(t, tree.Update(ctx, 5, nullValue, "0x1", proof))

	after := s.Snapshot()
	require.Equal(t, len(before), len(after))

	var changed []string
	for k, v := range after {
		if before[k] != v {
			changed = append(changed, k)
		}
	}
	want := []string{
		tree.ID() + ":nodes:3:5",
		tree.ID() + ":nodes:2:2",
		tree.ID() + ":nodes:1:1",
		tree.ID() + ":nodes:0:0",
		tree.ID() + ":root_hash",
	}
	require.ElementsMatch(t, want, changed)
}

// Multi-proofs verify for assorted index sets, including the full leaf
// row, which needs no proof entries at all.
func TestMultiProof(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 8)

	// give a few leaves distinct values first
	for _, i := range []uint64{1, 4, 5} {
		proof, err := tree.GetInclusionProof(ctx, i)
		require.NoError(t, err)
		require.NoError(t, tree.Update(ctx, i, nullValue, "0x1", proof))
	}

	valueAt := func(i uint64) string {
		if i == 1 || i == 4 || i == 5 {
			return "0x1"
		}
		return nullValue
	}

	sets := [][]uint64{
		{0},
		{7},
		{0, 1},
		{1, 4, 5},
		{0, 3, 6},
		{0, 1, 2, 3, 4, 5, 6, 7},
	}
	for _, indexes := range sets {
		values := make([]string, len(indexes))
		for n, i := range indexes {
			values[n] = valueAt(i)
		}
		proof, err := tree.GetInclusionMultiProof(ctx, indexes)
		require.NoError(t, err)

		ok, err := tree.VerifyMultiProof(ctx, indexes, values, proof)
		require.NoError(t, err)
		require.True(t, ok, "indexes %v", indexes)
	}
}

func TestMultiProofFullRowNeedsNoSiblings(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 4)

	proof, err := tree.GetInclusionMultiProof(ctx, []uint64{0, 1, 2, 3})
	require.NoError(t, err)
	require.Empty(t, proof)
}

func TestMultiProofWrongValueReturnsFalse(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 8)

	indexes := []uint64{2, 5}
	proof, err := tree.GetInclusionMultiProof(ctx, indexes)
	require.NoError(t, err)

	ok, err := tree.VerifyMultiProof(ctx, indexes, []string{nullValue, "0x1"}, proof)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMultiProofMalformedInputIsError(t *testing.T) {
	ctx := context.Background()
	tree, _ := newTestIMT(ctx, t, 8)

	indexes := []uint64{2, 5}
	proof, err := tree.GetInclusionMultiProof(ctx, indexes)
	require.NoError(t, err)

	// too few proof entries
	_, err = tree.VerifyMultiProof(ctx, indexes, []string{nullValue, nullValue}, proof[:len(proof)-1])
	require.ErrorIs(t, err, ErrMalformedProof)

	// leftover proof entries
	_, err = tree.VerifyMultiProof(ctx, indexes, []string{nullValue, nullValue}, append(append([]string{}, proof...), "0x9"))
	require.ErrorIs(t, err, ErrMalformedProof)

	// mismatched indexes/values lengths
	_, err = tree.VerifyMultiProof(ctx, indexes, []string{nullValue}, proof)
	require.ErrorIs(t, err, ErrMalformedProof)
}
