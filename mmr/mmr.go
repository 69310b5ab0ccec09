// Package mmr implements an append-only Merkle Mountain Range accumulator
// over a pluggable store.Store and hasher.Hasher, plus the stacked and
// draft compositions layered over it.
package mmr

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/forestrie/go-accumulators/hasher"
	"github.com/forestrie/go-accumulators/store"
)

// ErrNonEmptyMMR is returned by CreateWithGenesis when the named mmr_id
// already holds elements.
var ErrNonEmptyMMR = errors.New("mmr: mmr is not empty")

// ErrInvalidPeaksCount is returned by VerifyProof when a proof's peaks
// list length does not match the peak count implied by its elements_count.
var ErrInvalidPeaksCount = errors.New("mmr: invalid peaks count")

// ErrMissingHash is returned when a hash expected to exist at some element
// index is absent from the store.
var ErrMissingHash = errors.New("mmr: missing hash at index")

// MMR is an append-only Merkle Mountain Range backed by a store.Store. Its
// four sub-objects (leaf_count, elements_count, root_hash, hashes) are
// addressed under `<id>:`-prefixed keys.
type MMR struct {
	id     string
	hasher hasher.Hasher
	store  store.Store

	leafCount     *store.Counter
	elementsCount *store.Counter
	rootHashKey   string
	hashes        *store.InStoreTable

	// subMMRs is the chain of immutable snapshots this MMR is stacked on,
	// ascending by size; nil for a plain, non-stacked MMR. Populated by
	// NewStacked and consulted by StartDraft so a draft of a stacked MMR
	// carries the whole chain forward.
	subMMRs []SubMMR
}

// ID returns the MMR's mmr_id.
func (m *MMR) ID() string { return m.id }

// Hasher returns the Hasher this MMR hashes elements with.
func (m *MMR) Hasher() hasher.Hasher { return m.hasher }

// Store returns the MMR's backing store.
func (m *MMR) Store() store.Store { return m.store }

// New returns an MMR rooted at id within s, hashing with h. If id is
// empty, a fresh UUID is generated. New never touches the store; an MMR
// whose counters have never been written behaves as empty.
func New(s store.Store, h hasher.Hasher, id string) *MMR {
	if id == "" {
		id = store.NewID()
	}
	leafCountKey, elementsCountKey, rootHashKey, hashesKey := storeKeys(id)
	return &MMR{
		id:            id,
		hasher:        h,
		store:         s,
		leafCount:     store.NewCounter(s, leafCountKey),
		elementsCount: store.NewCounter(s, elementsCountKey),
		rootHashKey:   rootHashKey,
		hashes:        store.NewInStoreTable(s, hashesKey),
	}
}

// CreateWithGenesis returns a new, empty-on-entry MMR at id and appends the
// hasher's genesis value as its first element. It fails with ErrNonEmptyMMR
// if id already names an MMR with a nonzero elements_count.
func CreateWithGenesis(ctx context.Context, s store.Store, h hasher.Hasher, id string) (*MMR, AppendResult, error) {
	m := New(s, h, id)
	c, err := m.elementsCount.Get(ctx)
	if err != nil {
		return nil, AppendResult{}, err
	}
	if c != 0 {
		return nil, AppendResult{}, fmt.Errorf("mmr: create with genesis: %w", ErrNonEmptyMMR)
	}
	genesis, err := h.GetGenesis()
	if err != nil {
		return nil, AppendResult{}, fmt.Errorf("mmr: create with genesis: %w", err)
	}
	r, err := m.Append(ctx, genesis)
	if err != nil {
		return nil, AppendResult{}, err
	}
	return m, r, nil
}

// Metadata is a point-in-time snapshot of an MMR's counters and root.
type Metadata struct {
	MMRID         string
	LeavesCount   uint64
	ElementsCount uint64
	RootHash      string
}

// GetMetadata reads the MMR's current leaf_count, elements_count and
// root_hash. An MMR that has never been appended to reports a root_hash of
// "0x0", bag_the_peaks's own empty-peaks sentinel.
func (m *MMR) GetMetadata(ctx context.Context) (Metadata, error) {
	leaves, err := m.leafCount.Get(ctx)
	if err != nil {
		return Metadata{}, err
	}
	elements, err := m.elementsCount.Get(ctx)
	if err != nil {
		return Metadata{}, err
	}
	root, ok, err := m.store.Get(ctx, m.rootHashKey)
	if err != nil {
		return Metadata{}, fmt.Errorf("mmr: get metadata: %w", err)
	}
	if !ok {
		root = "0x0"
	}
	return Metadata{MMRID: m.id, LeavesCount: leaves, ElementsCount: elements, RootHash: root}, nil
}

// Append adds value as the next leaf and cascades any pairwise peak merges
// the new leaf count triggers.
func (m *MMR) Append(ctx context.Context, value string) (AppendResult, error) {
	if !m.hasher.IsElementSizeValid(value) {
		return AppendResult{}, fmt.Errorf("mmr: append: %w", hasher.ErrInvalidElementSize)
	}

	c, err := m.elementsCount.Get(ctx)
	if err != nil {
		return AppendResult{}, err
	}
	peaks, err := m.retrieveHashes(ctx, FindPeaks(c))
	if err != nil {
		return AppendResult{}, err
	}

	i, err := m.elementsCount.Increment(ctx)
	if err != nil {
		return AppendResult{}, err
	}
	leafElementIndex := i

	if err := m.hashes.Set(ctx, store.UsizeKey(i), value); err != nil {
		return AppendResult{}, fmt.Errorf("mmr: append: %w", err)
	}
	peaks = append(peaks, value)

	leafCount, err := m.leafCount.Get(ctx)
	if err != nil {
		return AppendResult{}, err
	}
	noMerges := LeafCountToAppendNoMerges(leafCount)

	for n := uint64(0); n < noMerges; n++ {
		i++
		right := peaks[len(peaks)-1]
		left := peaks[len(peaks)-2]
		peaks = peaks[:len(peaks)-2]
		parent, err := m.hasher.Hash([]string{left, right})
		if err != nil {
			return AppendResult{}, fmt.Errorf("mmr: append: %w", err)
		}
		if err := m.hashes.Set(ctx, store.UsizeKey(i), parent); err != nil {
			return AppendResult{}, fmt.Errorf("mmr: append: %w", err)
		}
		peaks = append(peaks, parent)
	}

	if err := m.elementsCount.Set(ctx, i); err != nil {
		return AppendResult{}, err
	}

	bag, err := m.bagHashesAtSize(ctx, i)
	if err != nil {
		return AppendResult{}, err
	}
	root, err := m.hasher.Hash([]string{strconv.FormatUint(i, 10), bag})
	if err != nil {
		return AppendResult{}, fmt.Errorf("mmr: append: %w", err)
	}
	if err := m.store.Set(ctx, m.rootHashKey, root); err != nil {
		return AppendResult{}, fmt.Errorf("mmr: append: %w", err)
	}

	leaves, err := m.leafCount.Increment(ctx)
	if err != nil {
		return AppendResult{}, err
	}

	return AppendResult{
		LeavesCount:   leaves,
		ElementsCount: i,
		ElementIndex:  leafElementIndex,
		RootHash:      root,
	}, nil
}

// BagThePeaks folds an MMR's peak hashes (at size, or the current
// elements_count if nil) into a single accumulator value, right-to-left.
func (m *MMR) BagThePeaks(ctx context.Context, size *uint64) (string, error) {
	sz, err := m.resolveSize(ctx, size)
	if err != nil {
		return "", err
	}
	return m.bagHashesAtSize(ctx, sz)
}

func (m *MMR) bagHashesAtSize(ctx context.Context, size uint64) (string, error) {
	hs, err := m.retrieveHashes(ctx, FindPeaks(size))
	if err != nil {
		return "", err
	}
	return m.bagHashes(hs)
}

func (m *MMR) bagHashes(hs []string) (string, error) {
	switch len(hs) {
	case 0:
		return "0x0", nil
	case 1:
		return hs[0], nil
	}
	acc, err := m.hasher.Hash([]string{hs[len(hs)-2], hs[len(hs)-1]})
	if err != nil {
		return "", fmt.Errorf("mmr: bag the peaks: %w", err)
	}
	for i := len(hs) - 3; i >= 0; i-- {
		acc, err = m.hasher.Hash([]string{hs[i], acc})
		if err != nil {
			return "", fmt.Errorf("mmr: bag the peaks: %w", err)
		}
	}
	return acc, nil
}

// GetPeaks returns the current peak hashes in ascending element-index
// order, optionally padded per opts.FormattingOpts.
func (m *MMR) GetPeaks(ctx context.Context, opts *PeaksOptions) ([]string, error) {
	size, err := m.resolveSize(ctx, peaksElementsCount(opts))
	if err != nil {
		return nil, err
	}
	peaks, err := m.retrieveHashes(ctx, FindPeaks(size))
	if err != nil {
		return nil, err
	}
	if opts != nil && opts.FormattingOpts != nil {
		return FormatPeaks(peaks, *opts.FormattingOpts)
	}
	return peaks, nil
}

// GetProof returns an inclusion proof for elementIndex, anchored at
// opts.ElementsCount if set, else the MMR's current size.
func (m *MMR) GetProof(ctx context.Context, elementIndex uint64, opts *ProofOptions) (Proof, error) {
	size, err := m.resolveSize(ctx, proofElementsCount(opts))
	if err != nil {
		return Proof{}, err
	}
	if elementIndex == 0 || elementIndex > size {
		return Proof{}, fmt.Errorf("mmr: get proof: %w", ErrInvalidElementIndex)
	}

	peaks, err := m.retrieveHashes(ctx, FindPeaks(size))
	if err != nil {
		return Proof{}, err
	}

	siblingIdx, err := FindSiblings(elementIndex, size)
	if err != nil {
		return Proof{}, err
	}
	siblings, err := m.retrieveHashes(ctx, siblingIdx)
	if err != nil {
		return Proof{}, err
	}

	elementHash, err := m.getHash(ctx, elementIndex)
	if err != nil {
		return Proof{}, err
	}

	if opts != nil && opts.FormattingOpts != nil {
		peaks, err = FormatPeaks(peaks, opts.FormattingOpts.Peaks)
		if err != nil {
			return Proof{}, err
		}
		siblings, err = FormatProof(siblings, opts.FormattingOpts.Proof)
		if err != nil {
			return Proof{}, err
		}
	}

	return Proof{
		ElementIndex:   elementIndex,
		ElementHash:    elementHash,
		SiblingsHashes: siblings,
		PeaksHashes:    peaks,
		ElementsCount:  size,
	}, nil
}

// GetProofs is GetProof's batched form: it computes every requested
// element's siblings, deduplicates the union, issues one batched read, then
// stitches per-element proofs back together. The peaks vector is computed
// once and shared across all returned proofs.
func (m *MMR) GetProofs(ctx context.Context, elementIndices []uint64, opts *ProofOptions) ([]Proof, error) {
	size, err := m.resolveSize(ctx, proofElementsCount(opts))
	if err != nil {
		return nil, err
	}
	for _, idx := range elementIndices {
		if idx == 0 || idx > size {
			return nil, fmt.Errorf("mmr: get proofs: %w", ErrInvalidElementIndex)
		}
	}

	peaks, err := m.retrieveHashes(ctx, FindPeaks(size))
	if err != nil {
		return nil, err
	}

	siblingsByIndex := make(map[uint64][]uint64, len(elementIndices))
	var union []uint64
	for _, idx := range elementIndices {
		sibs, err := FindSiblings(idx, size)
		if err != nil {
			return nil, err
		}
		siblingsByIndex[idx] = sibs
		union = append(union, sibs...)
		union = append(union, idx)
	}
	union = ArrayDeduplicate(union)

	hashesByIndex, err := m.getHashesMap(ctx, union)
	if err != nil {
		return nil, err
	}

	proofs := make([]Proof, len(elementIndices))
	for n, idx := range elementIndices {
		sibs := siblingsByIndex[idx]
		var sibHashes []string
		if len(sibs) > 0 {
			sibHashes = make([]string, len(sibs))
			for k, s := range sibs {
				sibHashes[k] = hashesByIndex[s]
			}
		}
		peaksOut := peaks
		if opts != nil && opts.FormattingOpts != nil {
			peaksOut, err = FormatPeaks(peaks, opts.FormattingOpts.Peaks)
			if err != nil {
				return nil, err
			}
			sibHashes, err = FormatProof(sibHashes, opts.FormattingOpts.Proof)
			if err != nil {
				return nil, err
			}
		}
		proofs[n] = Proof{
			ElementIndex:   idx,
			ElementHash:    hashesByIndex[idx],
			SiblingsHashes: sibHashes,
			PeaksHashes:    peaksOut,
			ElementsCount:  size,
		}
	}
	return proofs, nil
}

// VerifyProof recomputes the root implied by proof and value and compares
// it against the peak the proof claims to land on. A mismatch is reported
// as (false, nil), never as an error — only structural problems (bad sizes,
// out-of-range indices) propagate as errors.
func (m *MMR) VerifyProof(proof Proof, value string, opts *ProofOptions) (bool, error) {
	size := proof.ElementsCount
	if opts != nil && opts.ElementsCount != nil {
		size = *opts.ElementsCount
	}

	siblingsHashes := proof.SiblingsHashes
	peaksHashes := proof.PeaksHashes
	if opts != nil && opts.FormattingOpts != nil {
		siblingsHashes = unpadNull(siblingsHashes, opts.FormattingOpts.Proof.NullValue)
		peaksHashes = unpadNull(peaksHashes, opts.FormattingOpts.Peaks.NullValue)
	}

	if LeafCountToPeaksCount(MMRSizeToLeafCount(size)) != uint64(len(peaksHashes)) {
		return false, fmt.Errorf("mmr: verify proof: %w", ErrInvalidPeaksCount)
	}
	if proof.ElementIndex == 0 || proof.ElementIndex > size {
		return false, fmt.Errorf("mmr: verify proof: %w", ErrInvalidElementIndex)
	}

	peakIndex, peakHeight := GetPeakInfo(size, proof.ElementIndex)
	if uint64(len(siblingsHashes)) != peakHeight {
		return false, nil
	}

	leafIndex, err := ElementIndexToLeafIndex(proof.ElementIndex)
	if err != nil {
		return false, err
	}

	h := value
	for _, s := range siblingsHashes {
		var herr error
		if leafIndex&1 == 1 {
			h, herr = m.hasher.Hash([]string{s, h})
		} else {
			h, herr = m.hasher.Hash([]string{h, s})
		}
		if herr != nil {
			return false, fmt.Errorf("mmr: verify proof: %w", herr)
		}
		leafIndex >>= 1
	}

	if int(peakIndex) >= len(peaksHashes) {
		return false, nil
	}
	return peaksHashes[peakIndex] == h, nil
}

func (m *MMR) resolveSize(ctx context.Context, override *uint64) (uint64, error) {
	if override != nil {
		return *override, nil
	}
	return m.elementsCount.Get(ctx)
}

func proofElementsCount(opts *ProofOptions) *uint64 {
	if opts == nil {
		return nil
	}
	return opts.ElementsCount
}

func peaksElementsCount(opts *PeaksOptions) *uint64 {
	if opts == nil {
		return nil
	}
	return opts.ElementsCount
}

func (m *MMR) getHash(ctx context.Context, index uint64) (string, error) {
	v, ok, err := m.hashes.Get(ctx, store.UsizeKey(index))
	if err != nil {
		return "", fmt.Errorf("mmr: get hash at %d: %w", index, err)
	}
	if !ok {
		return "", fmt.Errorf("mmr: get hash at %d: %w", index, ErrMissingHash)
	}
	return v, nil
}

// retrieveHashes batch-reads indices through the hashes table and returns
// their values in the same order as indices; peak and sibling sets are
// both simple ordered batched reads.
func (m *MMR) retrieveHashes(ctx context.Context, indices []uint64) ([]string, error) {
	if len(indices) == 0 {
		return nil, nil
	}
	byIndex, err := m.getHashesMap(ctx, indices)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(indices))
	for i, idx := range indices {
		v, ok := byIndex[idx]
		if !ok {
			return nil, fmt.Errorf("mmr: retrieve hashes: %w: %d", ErrMissingHash, idx)
		}
		out[i] = v
	}
	return out, nil
}

func (m *MMR) getHashesMap(ctx context.Context, indices []uint64) (map[uint64]string, error) {
	if len(indices) == 0 {
		return map[uint64]string{}, nil
	}
	subs := make([]store.SubKey, len(indices))
	for i, idx := range indices {
		subs[i] = store.UsizeKey(idx)
	}
	vals, err := m.hashes.GetMany(ctx, subs)
	if err != nil {
		return nil, fmt.Errorf("mmr: get hashes: %w", err)
	}
	out := make(map[uint64]string, len(vals))
	for k, v := range vals {
		idx, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("mmr: get hashes: malformed hash key %q: %w", k, err)
		}
		out[idx] = v
	}
	return out, nil
}
