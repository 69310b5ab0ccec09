package mmr

// AppendResult reports the outcome of a single Append call.
type AppendResult struct {
	LeavesCount   uint64
	ElementsCount uint64
	// ElementIndex is the 1-based index the appended leaf itself landed at.
	ElementIndex uint64
	RootHash     string
}

// Proof bundles everything needed to verify one element's inclusion in an
// MMR of a given size. CBOR-tagged for wire/disk transfer.
type Proof struct {
	ElementIndex   uint64   `cbor:"element_index"`
	ElementHash    string   `cbor:"element_hash"`
	SiblingsHashes []string `cbor:"siblings_hashes"`
	PeaksHashes    []string `cbor:"peaks_hashes"`
	ElementsCount  uint64   `cbor:"elements_count"`
}

// FormattingOptionsBundle pairs the proof- and peaks-list padding options
// used together by GetProof/VerifyProof's formatting-aware paths.
type FormattingOptionsBundle struct {
	Proof FormattingOptions
	Peaks FormattingOptions
}

// ProofOptions customizes GetProof/GetProofs/VerifyProof. ElementsCount, if
// set, anchors the proof to an MMR size other than the current one.
// FormattingOpts, if set, pads the proof's lists to a fixed width.
type ProofOptions struct {
	ElementsCount  *uint64
	FormattingOpts *FormattingOptionsBundle
}

// PeaksOptions customizes GetPeaks the same way ProofOptions customizes
// GetProof, minus the proof-specific fields.
type PeaksOptions struct {
	ElementsCount  *uint64
	FormattingOpts *FormattingOptions
}
