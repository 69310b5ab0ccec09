package mmr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/forestrie/go-accumulators/store"
)

func TestTreeMetadataKeyNames(t *testing.T) {
	require.Equal(t, "leaf_count", LeafCountKey.String())
	require.Equal(t, "elements_count", ElementsCountKey.String())
	require.Equal(t, "root_hash", RootHashKey.String())
	require.Equal(t, "hashes", HashesKey.String())

	for _, k := range []TreeMetadataKey{LeafCountKey, ElementsCountKey, RootHashKey, HashesKey} {
		parsed, err := ParseTreeMetadataKey(k.String())
		require.NoError(t, err)
		require.Equal(t, k, parsed)
	}

	_, err := ParseTreeMetadataKey("bogus")
	require.ErrorIs(t, err, ErrInvalidMetadataKey)
}

func TestStoreKeyRoundtrip(t *testing.T) {
	tests := []struct {
		name string
		id   string
		key  TreeMetadataKey
		sub  store.SubKey
		full string
	}{
		{"counter", "my-mmr", LeafCountKey, store.NoneKey(), "my-mmr:leaf_count"},
		{"root", "my-mmr", RootHashKey, store.NoneKey(), "my-mmr:root_hash"},
		{"hash row", "my-mmr", HashesKey, store.StringKey("42"), "my-mmr:hashes:42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.full, EncodeStoreKey(tt.id, tt.key, tt.sub))

			id, key, sub, err := DecodeStoreKey(tt.full)
			require.NoError(t, err)
			require.Equal(t, tt.id, id)
			require.Equal(t, tt.key, key)
			require.Equal(t, tt.sub.String(), sub.String())
		})
	}
}

func TestDecodeStoreKeyRejectsMalformed(t *testing.T) {
	_, _, _, err := DecodeStoreKey("no-separator")
	require.ErrorIs(t, err, ErrCouldNotDecodeStoreKey)

	_, _, _, err = DecodeStoreKey("id:not_a_metadata_key:1")
	require.ErrorIs(t, err, ErrCouldNotDecodeStoreKey)
}
