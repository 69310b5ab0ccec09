package mmr

import (
	"context"
	"fmt"

	"github.com/forestrie/go-accumulators/store"
)

// DraftMMR is a copy-on-write staging area over an MMR: a fresh in-memory
// store stacked on top of the parent's current state (and, transitively,
// any chain the parent is itself stacked on). Appends to the draft never
// touch the parent until Commit.
type DraftMMR struct {
	backing *store.Memory
	parent  *MMR
	mmr     *MMR
}

// StartDraft returns a DraftMMR stacked on m's current state. m itself is
// treated as one more (the newest) snapshot layer, appended after whatever
// chain m was already stacked on.
func (m *MMR) StartDraft(ctx context.Context) (*DraftMMR, error) {
	current, err := m.elementsCount.Get(ctx)
	if err != nil {
		return nil, err
	}

	subMMRs := make([]SizedMetadata, 0, len(m.subMMRs)+1)
	for _, sm := range m.subMMRs {
		subMMRs = append(subMMRs, SizedMetadata{
			Size:     sm.Size,
			Metadata: SubMMRMetadata{Store: sm.Store, MMRID: sm.MMRID},
		})
	}
	subMMRs = append(subMMRs, SizedMetadata{
		Size:     current,
		Metadata: SubMMRMetadata{Store: m.store, MMRID: m.id},
	})

	backing := store.NewMemory()
	draft, err := NewStacked(ctx, backing, m.hasher, "", subMMRs)
	if err != nil {
		return nil, fmt.Errorf("mmr: start draft: %w", err)
	}

	return &DraftMMR{backing: backing, parent: m, mmr: draft}, nil
}

// MMR returns the draft's own stacked MMR, the handle to Append to and
// read from while staging changes.
func (d *DraftMMR) MMR() *MMR { return d.mmr }

// Discard drops every staged write. The parent is left untouched.
// Idempotent in effect: discarding an already-discarded draft is a no-op.
func (d *DraftMMR) Discard() {
	d.backing.Clear()
}

// Commit replays every key the draft staged in its in-memory store onto
// the parent, translating each draft-local key onto the parent's mmr_id,
// then clears the draft's backing store.
func (d *DraftMMR) Commit(ctx context.Context) error {
	snapshot := d.backing.Snapshot()
	entries := make(map[string]string, len(snapshot))
	for k, v := range snapshot {
		_, key, sub, err := DecodeStoreKey(k)
		if err != nil {
			return fmt.Errorf("mmr: commit draft: %w", err)
		}
		entries[EncodeStoreKey(d.parent.id, key, sub)] = v
	}
	if len(entries) > 0 {
		if err := d.parent.store.SetMany(ctx, entries); err != nil {
			return fmt.Errorf("mmr: commit draft: %w", err)
		}
	}
	d.backing.Clear()
	return nil
}
