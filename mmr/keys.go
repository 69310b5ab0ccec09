package mmr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forestrie/go-accumulators/store"
)

// ErrInvalidMetadataKey is returned by ParseTreeMetadataKey when given a
// segment that names none of the four metadata keys an MMR persists.
var ErrInvalidMetadataKey = errors.New("mmr: invalid tree metadata key")

// ErrCouldNotDecodeStoreKey is returned by DecodeStoreKey when given a
// string that does not split into at least an id and a metadata key.
var ErrCouldNotDecodeStoreKey = errors.New("mmr: could not decode store key")

// TreeMetadataKey names one of the four sub-objects an MMR instance
// persists.
type TreeMetadataKey int

const (
	LeafCountKey TreeMetadataKey = iota
	ElementsCountKey
	RootHashKey
	HashesKey
)

func (k TreeMetadataKey) String() string {
	switch k {
	case LeafCountKey:
		return "leaf_count"
	case ElementsCountKey:
		return "elements_count"
	case RootHashKey:
		return "root_hash"
	case HashesKey:
		return "hashes"
	default:
		return "unknown"
	}
}

// ParseTreeMetadataKey is String's inverse.
func ParseTreeMetadataKey(s string) (TreeMetadataKey, error) {
	switch s {
	case "leaf_count":
		return LeafCountKey, nil
	case "elements_count":
		return ElementsCountKey, nil
	case "root_hash":
		return RootHashKey, nil
	case "hashes":
		return HashesKey, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidMetadataKey, s)
	}
}

// storeKeys returns the four base keys an MMR instance with id mmrID
// persists its sub-objects under.
func storeKeys(mmrID string) (leafCount, elementsCount, rootHash, hashes string) {
	return fmt.Sprintf("%s:%s", mmrID, LeafCountKey),
		fmt.Sprintf("%s:%s", mmrID, ElementsCountKey),
		fmt.Sprintf("%s:%s", mmrID, RootHashKey),
		fmt.Sprintf("%s:%s:", mmrID, HashesKey)
}

// EncodeStoreKey renders the full store key for (mmrID, key, sub), the
// inverse of DecodeStoreKey. Used by DraftMMR.Commit to translate a draft's
// in-memory keys back onto the parent's id.
func EncodeStoreKey(mmrID string, key TreeMetadataKey, sub store.SubKey) string {
	base := fmt.Sprintf("%s:%s", mmrID, key)
	if sub.Kind() == store.SubKeyNone {
		return base
	}
	return base + ":" + sub.String()
}

// DecodeStoreKey splits a full store key of the form "<id>:<key>" or
// "<id>:<key>:<sub>" into its three parts.
func DecodeStoreKey(storeKey string) (mmrID string, key TreeMetadataKey, sub store.SubKey, err error) {
	parts := strings.SplitN(storeKey, ":", 3)
	if len(parts) < 2 {
		return "", 0, store.SubKey{}, ErrCouldNotDecodeStoreKey
	}
	key, err = ParseTreeMetadataKey(parts[1])
	if err != nil {
		return "", 0, store.SubKey{}, fmt.Errorf("%w: %w", ErrCouldNotDecodeStoreKey, err)
	}
	if len(parts) == 3 {
		sub = store.StringKey(parts[2])
	} else {
		sub = store.NoneKey()
	}
	return parts[0], key, sub, nil
}
