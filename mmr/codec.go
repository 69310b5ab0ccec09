package mmr

import "github.com/fxamacker/cbor/v2"

// ProofCodec encodes and decodes Proof/ConsistencyProof values as CBOR: a
// small wrapper around a configured fxamacker/cbor/v2 EncMode/DecMode
// pair.
type ProofCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewProofCodec returns a ProofCodec using canonical CBOR encoding (sorted
// map keys, deterministic output) so two encoders of the same Proof produce
// byte-identical output.
func NewProofCodec() (ProofCodec, error) {
	enc, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return ProofCodec{}, err
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return ProofCodec{}, err
	}
	return ProofCodec{enc: enc, dec: dec}, nil
}

// EncodeProof renders p as CBOR bytes.
func (c ProofCodec) EncodeProof(p Proof) ([]byte, error) {
	return c.enc.Marshal(p)
}

// DecodeProof is EncodeProof's inverse.
func (c ProofCodec) DecodeProof(data []byte) (Proof, error) {
	var p Proof
	if err := c.dec.Unmarshal(data, &p); err != nil {
		return Proof{}, err
	}
	return p, nil
}

// EncodeConsistencyProof renders p as CBOR bytes.
func (c ProofCodec) EncodeConsistencyProof(p ConsistencyProof) ([]byte, error) {
	return c.enc.Marshal(p)
}

// DecodeConsistencyProof is EncodeConsistencyProof's inverse.
func (c ProofCodec) DecodeConsistencyProof(data []byte) (ConsistencyProof, error) {
	var p ConsistencyProof
	if err := c.dec.Unmarshal(data, &p); err != nil {
		return ConsistencyProof{}, err
	}
	return p, nil
}
