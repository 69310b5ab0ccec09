package imt

import (
	"context"
	"fmt"
	"sort"

	"github.com/forestrie/go-accumulators/store"
)

// GetInclusionProof returns the bottom-up sibling path from leafIndex to
// the root: the neighbor of the current index at each depth from Depth()
// down to 1.
func (t *IMT) GetInclusionProof(ctx context.Context, leafIndex uint64) ([]string, error) {
	if leafIndex >= t.size {
		return nil, fmt.Errorf("imt: get inclusion proof: %w", ErrInvalidIndex)
	}

	var subs []store.SubKey
	current := leafIndex
	for depth := t.depth; depth >= 1; depth-- {
		subs = append(subs, nodeSubKey(depth, current^1))
		current >>= 1
	}

	vals, err := t.nodes.GetMany(ctx, subs)
	if err != nil {
		return nil, fmt.Errorf("imt: get inclusion proof: %w", err)
	}
	proof := make([]string, len(subs))
	for i, sub := range subs {
		v, ok := vals[sub.String()]
		if !ok {
			return nil, fmt.Errorf("imt: get inclusion proof: %w", ErrMissingNode)
		}
		proof[i] = v
	}
	return proof, nil
}

func (t *IMT) computeRoot(leafIndex uint64, value string, proof []string) (string, error) {
	h := value
	idx := leafIndex
	for _, p := range proof {
		var err error
		if idx%2 == 0 {
			h, err = t.hasher.Hash([]string{h, p})
		} else {
			h, err = t.hasher.Hash([]string{p, h})
		}
		if err != nil {
			return "", err
		}
		idx >>= 1
	}
	return h, nil
}

// VerifyProof recomputes the root implied by (leafIndex, value, proof) and
// compares it to the tree's stored root.
func (t *IMT) VerifyProof(ctx context.Context, leafIndex uint64, value string, proof []string) (bool, error) {
	h, err := t.computeRoot(leafIndex, value, proof)
	if err != nil {
		return false, fmt.Errorf("imt: verify proof: %w", err)
	}
	root, err := t.GetRoot(ctx)
	if err != nil {
		return false, err
	}
	return h == root, nil
}

// Update replaces leafIndex's value, verifying the supplied inclusion
// proof against oldValue before applying newValue, recomputing every node
// on the path to the root, persisting the changed nodes (leaf through the
// depth-0 node) in one batch and then writing the new root hash.
func (t *IMT) Update(ctx context.Context, leafIndex uint64, oldValue, newValue string, proof []string) error {
	ok, err := t.VerifyProof(ctx, leafIndex, oldValue, proof)
	if err != nil {
		return fmt.Errorf("imt: update: %w", err)
	}
	if !ok {
		return fmt.Errorf("imt: update: %w", ErrInvalidProof)
	}

	entries := make(map[store.SubKey]string, len(proof)+1)
	h := newValue
	idx := leafIndex
	entries[nodeSubKey(t.depth, idx)] = h

	for i, p := range proof {
		depth := t.depth - uint64(i) - 1
		var herr error
		if idx%2 == 0 {
			h, herr = t.hasher.Hash([]string{h, p})
		} else {
			h, herr = t.hasher.Hash([]string{p, h})
		}
		if herr != nil {
			return fmt.Errorf("imt: update: %w", herr)
		}
		idx >>= 1
		entries[nodeSubKey(depth, idx)] = h
	}

	if err := t.nodes.SetMany(ctx, entries); err != nil {
		return fmt.Errorf("imt: update: %w", err)
	}
	if err := t.store.Set(ctx, t.rootKey, h); err != nil {
		return fmt.Errorf("imt: update: %w", err)
	}
	return nil
}

func dedupeSortedUint64(xs []uint64) []uint64 {
	out := xs[:0:0]
	var last uint64
	for i, x := range xs {
		if i == 0 || x != last {
			out = append(out, x)
			last = x
		}
	}
	return out
}

// GetInclusionMultiProof returns the minimal set of sibling nodes needed to
// verify every leaf in indexes simultaneously: a leaf or internal node
// already implied by another requested position contributes nothing to the
// proof.
func (t *IMT) GetInclusionMultiProof(ctx context.Context, indexes []uint64) ([]string, error) {
	current := append([]uint64(nil), indexes...)
	sort.Slice(current, func(i, j int) bool { return current[i] < current[j] })
	current = dedupeSortedUint64(current)

	var required []store.SubKey
	seen := make(map[string]bool)

	for depth := t.depth; depth >= 1 && len(current) > 0; depth-- {
		known := make(map[uint64]bool, len(current))
		for _, idx := range current {
			known[idx] = true
		}

		nextSet := make(map[uint64]bool)
		var next []uint64
		for _, idx := range current {
			mate := idx ^ 1
			if !known[mate] {
				k := fmt.Sprintf("%d:%d", depth, mate)
				if !seen[k] {
					seen[k] = true
					required = append(required, nodeSubKey(depth, mate))
				}
			}
			parent := idx >> 1
			if !nextSet[parent] {
				nextSet[parent] = true
				next = append(next, parent)
			}
		}
		sort.Slice(next, func(i, j int) bool { return next[i] < next[j] })
		current = next
	}

	if len(required) == 0 {
		return nil, nil
	}
	vals, err := t.nodes.GetMany(ctx, required)
	if err != nil {
		return nil, fmt.Errorf("imt: get inclusion multi proof: %w", err)
	}
	proof := make([]string, len(required))
	for i, sub := range required {
		v, ok := vals[sub.String()]
		if !ok {
			return nil, fmt.Errorf("imt: get inclusion multi proof: %w", ErrMissingNode)
		}
		proof[i] = v
	}
	return proof, nil
}

type multiProofItem struct {
	idx uint64
	val string
}

// VerifyMultiProof recursively pairs requested (index, value) entries
// bottom-up: when a pair's mate is also in the working set the two values
// combine directly, otherwise the next unconsumed proof entry supplies the
// missing sibling. It fails with ErrMalformedProof if a sibling is needed
// with no proof entries left, or if proof entries remain unconsumed once
// the root is reached.
func (t *IMT) VerifyMultiProof(ctx context.Context, indexes []uint64, values []string, proof []string) (bool, error) {
	if len(indexes) != len(values) || len(indexes) == 0 {
		return false, fmt.Errorf("imt: verify multi proof: %w", ErrMalformedProof)
	}

	items := make([]multiProofItem, len(indexes))
	for i := range indexes {
		items[i] = multiProofItem{idx: indexes[i], val: values[i]}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].idx < items[j].idx })

	proofPos := 0
	for depth := t.depth; depth >= 1 && len(items) > 0; depth-- {
		var next []multiProofItem
		i := 0
		for i < len(items) {
			idx := items[i].idx
			mate := idx ^ 1

			var left, right string
			if i+1 < len(items) && items[i+1].idx == mate {
				if idx%2 == 0 {
					left, right = items[i].val, items[i+1].val
				} else {
					left, right = items[i+1].val, items[i].val
				}
				i += 2
			} else {
				if proofPos >= len(proof) {
					return false, fmt.Errorf("imt: verify multi proof: %w", ErrMalformedProof)
				}
				sib := proof[proofPos]
				proofPos++
				if idx%2 == 0 {
					left, right = items[i].val, sib
				} else {
					left, right = sib, items[i].val
				}
				i++
			}

			h, err := t.hasher.Hash([]string{left, right})
			if err != nil {
				return false, fmt.Errorf("imt: verify multi proof: %w", err)
			}
			next = append(next, multiProofItem{idx: idx >> 1, val: h})
		}
		sort.Slice(next, func(a, b int) bool { return next[a].idx < next[b].idx })
		items = next
	}

	if len(items) != 1 || proofPos != len(proof) {
		return false, fmt.Errorf("imt: verify multi proof: %w", ErrMalformedProof)
	}

	root, err := t.GetRoot(ctx)
	if err != nil {
		return false, err
	}
	return items[0].val == root, nil
}
