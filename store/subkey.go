package store

import "strconv"

// SubKeyKind tags the payload carried by a SubKey.
type SubKeyKind uint8

const (
	// SubKeyNone addresses the table's base key directly, with no suffix.
	SubKeyNone SubKeyKind = iota
	// SubKeyString addresses a table row by an arbitrary string suffix.
	SubKeyString
	// SubKeyUsize addresses a table row by a non-negative integer suffix,
	// e.g. an MMR element index.
	SubKeyUsize
)

// SubKey is a tagged sub-key used to address a row within an InStoreTable.
// It mirrors the String|Usize|None variant used throughout the accumulator
// store layer: String sub-keys compose arbitrary node addresses (e.g. IMT's
// "<depth>:<index>"), Usize sub-keys address MMR element indices, and None
// addresses the table's own base key (leaf_count, elements_count, root_hash).
type SubKey struct {
	kind SubKeyKind
	s    string
	n    uint64
}

// NoneKey returns the SubKey that addresses a table's base key directly.
func NoneKey() SubKey { return SubKey{kind: SubKeyNone} }

// StringKey returns a SubKey carrying an arbitrary string suffix.
func StringKey(s string) SubKey { return SubKey{kind: SubKeyString, s: s} }

// UsizeKey returns a SubKey carrying an integer suffix.
func UsizeKey(n uint64) SubKey { return SubKey{kind: SubKeyUsize, n: n} }

// Kind reports which variant a SubKey holds.
func (k SubKey) Kind() SubKeyKind { return k.kind }

// Usize returns the integer payload and whether k is a Usize sub-key.
func (k SubKey) Usize() (uint64, bool) {
	return k.n, k.kind == SubKeyUsize
}

// String renders the sub-key the way the default key-resolution function
// concatenates it onto a table's base key: the decimal form for Usize, the
// literal string for String, and the empty string for None.
func (k SubKey) String() string {
	switch k.kind {
	case SubKeyString:
		return k.s
	case SubKeyUsize:
		return strconv.FormatUint(k.n, 10)
	default:
		return ""
	}
}
