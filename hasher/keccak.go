package hasher

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// KeccakHasher is the Hasher realization built on golang.org/x/crypto/sha3.
// It never rejects an element size, letting RLP-style blobs of any length
// hash through unchecked, and its block size is reported as 256 bits
// purely for diagnostic purposes.
type KeccakHasher struct{}

// NewKeccak256 returns a ready-to-use Keccak-256 Hasher.
func NewKeccak256() *KeccakHasher { return &KeccakHasher{} }

var _ Hasher = (*KeccakHasher)(nil)

func (k *KeccakHasher) GetName() HashingFunction    { return Keccak256 }
func (k *KeccakHasher) GetBlockSizeBits() int       { return 256 }
func (k *KeccakHasher) IsElementSizeValid(string) bool { return true }

// Hash absorbs data's elements in sequence through one Keccak-256 instance
// per call. A single element is hex-decoded raw (its "0x" prefix stripped,
// any length permitted); multiple elements are each parsed as a decimal or
// hex big integer, re-encoded to 32 big-endian bytes, and concatenated
// before hashing.
func (k *KeccakHasher) Hash(data []string) (string, error) {
	h := sha3.NewLegacyKeccak256()

	switch len(data) {
	case 0:
		// hash of the empty input
	case 1:
		raw, err := decodeHexLoose(data[0])
		if err != nil {
			return "", fmt.Errorf("hasher: keccak: %w", err)
		}
		h.Write(raw)
	default:
		for _, e := range data {
			b, err := elementToFieldBytes(e)
			if err != nil {
				return "", fmt.Errorf("hasher: keccak: %w", err)
			}
			h.Write(b)
		}
	}

	return "0x" + hex.EncodeToString(h.Sum(nil)), nil
}

func (k *KeccakHasher) HashSingle(data string) (string, error) {
	return k.Hash([]string{data})
}

// GetGenesis hashes the hex encoding of the literal ASCII
// "brave new world".
func (k *KeccakHasher) GetGenesis() (string, error) {
	return k.HashSingle("0x" + hex.EncodeToString([]byte(genesisString)))
}

// decodeHexLoose strips an optional 0x/0X prefix and hex-decodes the rest,
// tolerating an odd number of digits by left-padding with a zero nibble.
func decodeHexLoose(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

// elementToFieldBytes parses a decimal or 0x-prefixed hex element into a
// 32-byte big-endian field.
func elementToFieldBytes(e string) ([]byte, error) {
	n := new(big.Int)
	if strings.HasPrefix(e, "0x") || strings.HasPrefix(e, "0X") {
		if _, ok := n.SetString(e[2:], 16); !ok {
			return nil, fmt.Errorf("invalid hex element %q", e)
		}
	} else {
		if _, ok := n.SetString(e, 10); !ok {
			return nil, fmt.Errorf("invalid decimal element %q", e)
		}
	}

	out := make([]byte, 32)
	n.FillBytes(out)
	return out, nil
}
