package mmr

import (
	"context"
	"fmt"
	"sort"

	"github.com/forestrie/go-accumulators/hasher"
	"github.com/forestrie/go-accumulators/store"
)

// SubMMRMetadata names the parent MMR a stacked MMR snapshots: which store
// it lives in and which mmr_id its hashes table is keyed under.
type SubMMRMetadata struct {
	Store store.Store
	MMRID string
}

// SizedMetadata pairs a sub-MMR's element count with the metadata needed
// to address its hashes table. NewStacked takes a slice of these, one per
// layer being stacked on.
type SizedMetadata struct {
	Size     uint64
	Metadata SubMMRMetadata
}

// SubMMR is one immutable snapshot layer of a stacked MMR: every element
// index ≤ Size is resolved against Store's hashes table for MMRID, never
// against the stacked MMR's own store.
type SubMMR struct {
	Size  uint64
	Store store.Store
	MMRID string
}

func (s SubMMR) hashesKey() string {
	_, _, _, hashesKey := storeKeys(s.MMRID)
	return hashesKey
}

// NewStacked builds an MMR whose hashes table routes a read of hashes[j] to
// the smallest sub-MMR in subMMRsMetadata with size ≥ j, falling back to the
// stacked MMR's own hashes table when none qualifies. If the last (largest)
// sub-MMR is bigger than the stacked MMR's own current size, the stacked
// MMR's counters are bootstrapped to continue logically where that sub-MMR
// left off.
func NewStacked(ctx context.Context, s store.Store, h hasher.Hasher, mmrID string, subMMRsMetadata []SizedMetadata) (*MMR, error) {
	m := New(s, h, mmrID)

	subMMRs := make([]SubMMR, len(subMMRsMetadata))
	for i, sm := range subMMRsMetadata {
		subMMRs[i] = SubMMR{Size: sm.Size, Store: sm.Metadata.Store, MMRID: sm.Metadata.MMRID}
	}
	sort.Slice(subMMRs, func(i, j int) bool { return subMMRs[i].Size < subMMRs[j].Size })

	if len(subMMRs) > 0 {
		last := subMMRs[len(subMMRs)-1]
		current, err := m.elementsCount.Get(ctx)
		if err != nil {
			return nil, err
		}
		if current < last.Size {
			leafCount, err := ElementsCountToLeafCount(last.Size)
			if err != nil {
				return nil, fmt.Errorf("mmr: new stacked: %w", err)
			}
			if err := m.elementsCount.Set(ctx, last.Size); err != nil {
				return nil, err
			}
			if err := m.leafCount.Set(ctx, leafCount); err != nil {
				return nil, err
			}
		}
	}

	m.subMMRs = subMMRs
	m.hashes.SetResolver(&stackedResolver{subMMRs: subMMRs, ownStore: s, ownKey: m.hashes.Key()})
	return m, nil
}

// stackedResolver implements store.Resolver for a stacked MMR's hashes
// table: a Usize(j) sub-key routes to the first (smallest) sub-MMR whose
// size is at least j, or to the stacked MMR's own store/key if none
// qualifies; any non-Usize sub-key falls through to the stacked MMR's own
// store/key unconditionally.
type stackedResolver struct {
	subMMRs  []SubMMR
	ownStore store.Store
	ownKey   string
}

func (r *stackedResolver) pick(j uint64) (store.Store, string) {
	for _, sm := range r.subMMRs {
		if sm.Size >= j {
			return sm.Store, sm.hashesKey()
		}
	}
	return r.ownStore, r.ownKey
}

// ResolveOne implements store.Resolver.
func (r *stackedResolver) ResolveOne(sub store.SubKey) (store.Store, string) {
	j, ok := sub.Usize()
	if !ok {
		return r.ownStore, r.ownKey + sub.String()
	}
	s, baseKey := r.pick(j)
	return s, baseKey + sub.String()
}

// ResolveMany implements store.Resolver, grouping sub-keys by the store and
// base key they individually resolve to so each physical store is read
// with a single batched call.
func (r *stackedResolver) ResolveMany(subs []store.SubKey) []store.ManyResolution {
	groups := make(map[string]*store.ManyResolution)
	var order []string

	for _, sub := range subs {
		var s store.Store
		var baseKey string
		if j, ok := sub.Usize(); ok {
			s, baseKey = r.pick(j)
		} else {
			s, baseKey = r.ownStore, r.ownKey
		}
		groupKey := s.ID() + "\x00" + baseKey
		g, exists := groups[groupKey]
		if !exists {
			g = &store.ManyResolution{Store: s}
			groups[groupKey] = g
			order = append(order, groupKey)
		}
		g.Keys = append(g.Keys, baseKey+sub.String())
		g.SubKeys = append(g.SubKeys, sub)
	}

	out := make([]store.ManyResolution, len(order))
	for i, k := range order {
		out[i] = *groups[k]
	}
	return out
}
