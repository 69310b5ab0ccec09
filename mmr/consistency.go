package mmr

import (
	"context"
	"fmt"
	"strconv"
)

// ConsistencyProof bundles, for every peak the MMR had at MMRSizeA, the
// sibling path from that peak up to the peak covering it at MMRSizeB --
// the accumulator-peaks flavor of a consistency proof, turning proof
// anchoring into an explicit, independently verifiable artifact. Each
// Path entry reuses the Proof record with
// ElementIndex naming the old peak; its SiblingsHashes start at the old
// peak's own height rather than at a leaf.
type ConsistencyProof struct {
	MMRSizeA uint64  `cbor:"mmr_size_a"`
	MMRSizeB uint64  `cbor:"mmr_size_b"`
	Path     []Proof `cbor:"path"`
}

// ConsistencyProofBagged is ConsistencyProof's bagged-root flavor: it adds
// the independently bagged roots of both sizes so a verifier can compare
// bagged roots directly without re-deriving them from Path.
type ConsistencyProofBagged struct {
	ConsistencyProof
	BaggedRootA string `cbor:"bagged_root_a"`
	BaggedRootB string `cbor:"bagged_root_b"`
}

// GetConsistencyProof proves that every peak of the MMR at size sizeA is
// still present, unmodified, among the elements of the MMR at size sizeB.
// It requires 1 ≤ sizeA ≤ sizeB ≤ elements_count, and both sizes must be
// valid MMR sizes (non-empty find_peaks).
func (m *MMR) GetConsistencyProof(ctx context.Context, sizeA, sizeB uint64) (ConsistencyProof, error) {
	current, err := m.elementsCount.Get(ctx)
	if err != nil {
		return ConsistencyProof{}, err
	}
	if sizeA == 0 || sizeA > sizeB || sizeB > current {
		return ConsistencyProof{}, fmt.Errorf("mmr: get consistency proof: %w", ErrInvalidElementCount)
	}
	peaksA := FindPeaks(sizeA)
	if len(peaksA) == 0 || len(FindPeaks(sizeB)) == 0 {
		return ConsistencyProof{}, fmt.Errorf("mmr: get consistency proof: %w", ErrInvalidElementCount)
	}

	peaksBHashes, err := m.retrieveHashes(ctx, FindPeaks(sizeB))
	if err != nil {
		return ConsistencyProof{}, err
	}

	path := make([]Proof, len(peaksA))
	var leafOffset uint64
	for i, p := range peaksA {
		_, peakHeight := GetPeakInfo(sizeA, p)
		siblings, err := m.retrieveHashes(ctx, findSiblingsAt(p, peakHeight, leafOffset>>peakHeight, sizeB))
		if err != nil {
			return ConsistencyProof{}, err
		}
		elementHash, err := m.getHash(ctx, p)
		if err != nil {
			return ConsistencyProof{}, err
		}
		path[i] = Proof{
			ElementIndex:   p,
			ElementHash:    elementHash,
			SiblingsHashes: siblings,
			PeaksHashes:    peaksBHashes,
			ElementsCount:  sizeB,
		}
		leafOffset += uint64(1) << peakHeight
	}

	return ConsistencyProof{MMRSizeA: sizeA, MMRSizeB: sizeB, Path: path}, nil
}

// GetConsistencyProofBagged is GetConsistencyProof plus the independently
// bagged roots of sizeA and sizeB, so a verifier can skip re-bagging.
func (m *MMR) GetConsistencyProofBagged(ctx context.Context, sizeA, sizeB uint64) (ConsistencyProofBagged, error) {
	cp, err := m.GetConsistencyProof(ctx, sizeA, sizeB)
	if err != nil {
		return ConsistencyProofBagged{}, err
	}
	baggedA, err := m.BagThePeaks(ctx, &sizeA)
	if err != nil {
		return ConsistencyProofBagged{}, err
	}
	baggedB, err := m.BagThePeaks(ctx, &sizeB)
	if err != nil {
		return ConsistencyProofBagged{}, err
	}
	return ConsistencyProofBagged{ConsistencyProof: cp, BaggedRootA: baggedA, BaggedRootB: baggedB}, nil
}

// VerifyConsistency walks every per-peak path in proof up to the peak that
// covers it at MMRSizeB, checks the recovered peaks recompute rootB, then
// checks the old peak hashes, bagged at MMRSizeA, recompute rootA. A
// mismatch returns (false, nil); only structural problems (invalid or
// misordered sizes) are errors.
func (m *MMR) VerifyConsistency(proof ConsistencyProof, rootA, rootB string) (bool, error) {
	if proof.MMRSizeA == 0 || proof.MMRSizeA > proof.MMRSizeB {
		return false, fmt.Errorf("mmr: verify consistency: %w", ErrInvalidElementCount)
	}
	peaksA := FindPeaks(proof.MMRSizeA)
	if len(peaksA) == 0 || len(FindPeaks(proof.MMRSizeB)) == 0 {
		return false, fmt.Errorf("mmr: verify consistency: %w", ErrInvalidElementCount)
	}
	if len(proof.Path) != len(peaksA) {
		return false, nil
	}

	peakHashesA := make([]string, len(proof.Path))
	var leafOffset uint64
	for i, p := range proof.Path {
		if p.ElementsCount != proof.MMRSizeB || p.ElementIndex != peaksA[i] {
			return false, nil
		}

		_, heightA := GetPeakInfo(proof.MMRSizeA, p.ElementIndex)
		peakIndexB, heightB := GetPeakInfo(proof.MMRSizeB, p.ElementIndex)
		if uint64(len(p.SiblingsHashes)) != heightB-heightA {
			return false, nil
		}
		if int(peakIndexB) >= len(p.PeaksHashes) {
			return false, nil
		}

		h := p.ElementHash
		pos := leafOffset >> heightA
		for _, s := range p.SiblingsHashes {
			var err error
			if pos&1 == 1 {
				h, err = m.hasher.Hash([]string{s, h})
			} else {
				h, err = m.hasher.Hash([]string{h, s})
			}
			if err != nil {
				return false, fmt.Errorf("mmr: verify consistency: %w", err)
			}
			pos >>= 1
		}
		if p.PeaksHashes[peakIndexB] != h {
			return false, nil
		}

		bagB, err := m.bagHashes(p.PeaksHashes)
		if err != nil {
			return false, err
		}
		candidateRootB, err := m.hasher.Hash([]string{strconv.FormatUint(p.ElementsCount, 10), bagB})
		if err != nil {
			return false, err
		}
		if candidateRootB != rootB {
			return false, nil
		}

		peakHashesA[i] = p.ElementHash
		leafOffset += uint64(1) << heightA
	}

	bagA, err := m.bagHashes(peakHashesA)
	if err != nil {
		return false, err
	}
	candidateRootA, err := m.hasher.Hash([]string{strconv.FormatUint(proof.MMRSizeA, 10), bagA})
	if err != nil {
		return false, err
	}
	return candidateRootA == rootA, nil
}

// VerifyConsistencyBagged is VerifyConsistency plus a cheap direct check
// that proof's bundled bagged roots agree with rootA/rootB.
func (m *MMR) VerifyConsistencyBagged(proof ConsistencyProofBagged, rootA, rootB string) (bool, error) {
	if proof.BaggedRootA == "" || proof.BaggedRootB == "" {
		return false, fmt.Errorf("mmr: verify consistency bagged: %w", ErrInvalidElementCount)
	}
	candidateRootA, err := m.hasher.Hash([]string{strconv.FormatUint(proof.MMRSizeA, 10), proof.BaggedRootA})
	if err != nil {
		return false, err
	}
	candidateRootB, err := m.hasher.Hash([]string{strconv.FormatUint(proof.MMRSizeB, 10), proof.BaggedRootB})
	if err != nil {
		return false, err
	}
	if candidateRootA != rootA || candidateRootB != rootB {
		return false, nil
	}
	return m.VerifyConsistency(proof.ConsistencyProof, rootA, rootB)
}
