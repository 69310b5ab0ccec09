package hasher

import "fmt"

// StarkPedersen and StarkPoseidon name the two STARK-curve hash functions
// this package knows by name but stops at the interface boundary for:
// their field arithmetic runs over the STARK prime field, and hand-rolling
// finite-field cryptography risks a subtly wrong, unaudited
// implementation. These stubs satisfy the Hasher interface, enough for
// callers that switch over HashingFunction to type-check and wire in a
// real implementation later, and fail every hashing call with
// ErrUnimplemented.

// StarkPedersen is an interface-only stand-in for the Pedersen hash over
// the STARK curve. Its block size (252 bits) is reported accurately since
// that much requires no field arithmetic.
type StarkPedersen struct{}

// NewStarkPedersen returns the Pedersen stub described above.
func NewStarkPedersen() *StarkPedersen { return &StarkPedersen{} }

var _ Hasher = (*StarkPedersen)(nil)

func (p *StarkPedersen) GetName() HashingFunction { return Pedersen }
func (p *StarkPedersen) GetBlockSizeBits() int     { return 252 }

func (p *StarkPedersen) IsElementSizeValid(element string) bool {
	return ByteSize(element)*8 <= p.GetBlockSizeBits()
}

func (p *StarkPedersen) Hash([]string) (string, error) {
	return "", fmt.Errorf("hasher: pedersen: %w", ErrUnimplemented)
}

func (p *StarkPedersen) HashSingle(string) (string, error) {
	return "", fmt.Errorf("hasher: pedersen: %w", ErrUnimplemented)
}

func (p *StarkPedersen) GetGenesis() (string, error) {
	return "", fmt.Errorf("hasher: pedersen: %w", ErrUnimplemented)
}

// StarkPoseidon is an interface-only stand-in for the Poseidon hash over
// the STARK curve. ShouldPad selects 63-hex-char zero-padding of the
// natural field-element hex, even though no concrete digest is ever
// produced.
type StarkPoseidon struct {
	ShouldPad bool
}

// NewStarkPoseidon returns the Poseidon stub described above.
func NewStarkPoseidon(shouldPad bool) *StarkPoseidon {
	return &StarkPoseidon{ShouldPad: shouldPad}
}

var _ Hasher = (*StarkPoseidon)(nil)

func (p *StarkPoseidon) GetName() HashingFunction { return Poseidon }
func (p *StarkPoseidon) GetBlockSizeBits() int     { return 252 }

func (p *StarkPoseidon) IsElementSizeValid(element string) bool {
	return ByteSize(element)*8 <= p.GetBlockSizeBits()
}

func (p *StarkPoseidon) Hash([]string) (string, error) {
	return "", fmt.Errorf("hasher: poseidon: %w", ErrUnimplemented)
}

func (p *StarkPoseidon) HashSingle(string) (string, error) {
	return "", fmt.Errorf("hasher: poseidon: %w", ErrUnimplemented)
}

func (p *StarkPoseidon) GetGenesis() (string, error) {
	return "", fmt.Errorf("hasher: poseidon: %w", ErrUnimplemented)
}
