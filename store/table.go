package store

import (
	"context"
	"fmt"
	"strings"
)

// ManyResolution is one group produced by a Resolver's ResolveMany: a
// physical store plus the full keys to read from it, in the same order as
// the SubKeys they were derived from.
type ManyResolution struct {
	Store   Store
	Keys    []string
	SubKeys []SubKey
}

// Resolver translates a table's (base key, sub-key) pairs into physical
// (store, full key) locations. The default, identity resolution, always
// targets the table's own store and concatenates the base key with the
// sub-key's string form. Stacked MMRs install a Resolver that instead
// dispatches hashes-table reads to whichever sub-MMR snapshot owns the
// requested element index (see the mmr package's stacked resolver).
//
// This is deliberately a two-member family (identity, stacked) rather
// than an open plugin registry: Go interfaces
// already dispatch through one indirect call, so nothing is gained by a
// function-pointer field beyond what an interface value gives for free.
type Resolver interface {
	ResolveOne(subKey SubKey) (Store, string)
	ResolveMany(subKeys []SubKey) []ManyResolution
}

// InStoreTable is a namespaced view of a Store: a base key prefix plus a
// pluggable Resolver.
type InStoreTable struct {
	store    Store
	key      string
	resolver Resolver
}

// NewInStoreTable returns a table rooted at key within s, using identity
// key resolution.
func NewInStoreTable(s Store, key string) *InStoreTable {
	return &InStoreTable{store: s, key: key}
}

// SetResolver installs a non-default Resolver, used by stacked MMRs to
// redirect hashes-table reads to the owning sub-MMR.
func (t *InStoreTable) SetResolver(r Resolver) { t.resolver = r }

// Store returns the table's own backing store (ignoring any installed
// resolver) — the store that Set/SetMany always write through.
func (t *InStoreTable) Store() Store { return t.store }

// Key returns the table's base key prefix.
func (t *InStoreTable) Key() string { return t.key }

func (t *InStoreTable) resolveOne(sub SubKey) (Store, string) {
	if t.resolver != nil {
		return t.resolver.ResolveOne(sub)
	}
	return t.store, t.key + sub.String()
}

func (t *InStoreTable) resolveMany(subs []SubKey) []ManyResolution {
	if t.resolver != nil {
		return t.resolver.ResolveMany(subs)
	}
	keys := make([]string, len(subs))
	for i, s := range subs {
		keys[i] = t.key + s.String()
	}
	return []ManyResolution{{Store: t.store, Keys: keys, SubKeys: subs}}
}

// tailOf recovers the sub-key string from a full key by splitting on ':'
// and discarding the first two segments (the id and the table name),
// rejoining the remainder with ':'. Stripping the "<id>:<table>:" prefix
// means callers drawing from several physical tables (stacked MMRs) see a
// uniform per-sub-key view regardless of which physical key a value
// actually lived under.
func tailOf(fullKey string) string {
	parts := strings.Split(fullKey, ":")
	if len(parts) <= 2 {
		return ""
	}
	return strings.Join(parts[2:], ":")
}

// Get reads the value for sub, if present.
func (t *InStoreTable) Get(ctx context.Context, sub SubKey) (string, bool, error) {
	s, key := t.resolveOne(sub)
	return s.Get(ctx, key)
}

// GetMany reads a batch of sub-keys, returning a map keyed by the tail of
// each resolved full key (see tailOf). It fails with ErrNotFound if any
// requested sub-key produced no value.
func (t *InStoreTable) GetMany(ctx context.Context, subs []SubKey) (map[string]string, error) {
	groups := t.resolveMany(subs)
	result := make(map[string]string, len(subs))
	var missing []string
	for _, g := range groups {
		vals, err := g.Store.GetMany(ctx, g.Keys)
		if err != nil {
			return nil, fmt.Errorf("store: table %q: %w", t.key, err)
		}
		for _, k := range g.Keys {
			tail := tailOf(k)
			v, ok := vals[k]
			if !ok {
				missing = append(missing, fmt.Sprintf("%s@%s", tail, g.Store.ID()))
				continue
			}
			result[tail] = v
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("store: table %q: %w: %v", t.key, ErrNotFound, missing)
	}
	return result, nil
}

// Set always writes via the table's own store and base key, regardless of
// any installed resolver: writes to a stacked MMR must land on the stacked
// MMR's own hashes table, never on an underlying snapshot.
func (t *InStoreTable) Set(ctx context.Context, sub SubKey, value string) error {
	return t.store.Set(ctx, t.key+sub.String(), value)
}

// SetMany writes a batch of sub-keyed values, again always via the table's
// own store and base key.
func (t *InStoreTable) SetMany(ctx context.Context, entries map[SubKey]string) error {
	full := make(map[string]string, len(entries))
	for sub, v := range entries {
		full[t.key+sub.String()] = v
	}
	return t.store.SetMany(ctx, full)
}
