package mmr

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		want []uint64
	}{
		{"empty", 0, nil},
		{"single leaf", 1, []uint64{1}},
		{"two mountains is invalid", 2, nil},
		{"one mountain of two leaves", 3, []uint64{3}},
		{"three leaves", 4, []uint64{3, 4}},
		{"invalid 5", 5, nil},
		{"invalid 6", 6, nil},
		{"four leaves", 7, []uint64{7}},
		{"five leaves", 8, []uint64{7, 8}},
		{"invalid 9", 9, nil},
		{"six leaves", 10, []uint64{7, 10}},
		{"seven leaves", 11, []uint64{7, 10, 11}},
		{"eight leaves", 15, []uint64{15}},
		{"ten leaves", 18, []uint64{15, 18}},
		{"eleven leaves", 19, []uint64{15, 18, 19}},
		{"twelve leaves", 22, []uint64{15, 22}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FindPeaks(tt.n))
		})
	}
}

func TestLeafCountToAppendNoMerges(t *testing.T) {
	tests := []struct {
		leafCount uint64
		want      uint64
	}{
		{0, 0}, {1, 1}, {2, 0}, {3, 2}, {4, 0}, {5, 1}, {7, 3}, {11, 2}, {15, 4},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, LeafCountToAppendNoMerges(tt.leafCount),
			"leafCount=%d", tt.leafCount)
	}
}

func TestElementsCountToLeafCount(t *testing.T) {
	valid := []struct {
		elements uint64
		leaves   uint64
	}{
		{0, 0}, {1, 1}, {3, 2}, {4, 3}, {7, 4}, {8, 5}, {10, 6}, {11, 7}, {15, 8},
	}
	for _, tt := range valid {
		got, err := ElementsCountToLeafCount(tt.elements)
		require.NoError(t, err, "elements=%d", tt.elements)
		require.Equal(t, tt.leaves, got, "elements=%d", tt.elements)
	}

	for _, invalid := range []uint64{2, 5, 6, 9, 12, 13} {
		_, err := ElementsCountToLeafCount(invalid)
		require.ErrorIs(t, err, ErrInvalidElementCount, "elements=%d", invalid)
	}
}

// LeafCountToMMRSize then ElementsCountToLeafCount is the identity for
// every leaf count.
func TestLeafCountMMRSizeRoundtrip(t *testing.T) {
	for leafCount := uint64(1); leafCount <= 1000; leafCount++ {
		size := LeafCountToMMRSize(leafCount)
		back, err := ElementsCountToLeafCount(size)
		require.NoError(t, err, "leafCount=%d size=%d", leafCount, size)
		require.Equal(t, leafCount, back)
		require.Equal(t, leafCount, MMRSizeToLeafCount(size))
	}
}

// Scanning all element indices in order, the ones that address leaves
// yield leaf indices 0, 1, 2, ... with no gaps.
func TestElementIndexToLeafIndexMonotonic(t *testing.T) {
	size := LeafCountToMMRSize(256)
	var next uint64
	for i := uint64(1); i <= size; i++ {
		leafIndex, err := ElementIndexToLeafIndex(i)
		if err != nil {
			continue // internal node
		}
		require.Equal(t, next, leafIndex, "element=%d", i)
		next++
	}
	require.Equal(t, uint64(256), next)

	_, err := ElementIndexToLeafIndex(0)
	require.ErrorIs(t, err, ErrInvalidElementIndex)
}

// The number of peaks equals the popcount of the leaf count, for every
// valid MMR size.
func TestFindPeaksCountMatchesLeafPopcount(t *testing.T) {
	for leafCount := uint64(1); leafCount <= 500; leafCount++ {
		size := LeafCountToMMRSize(leafCount)
		peaks := FindPeaks(size)
		require.Len(t, peaks, bits.OnesCount64(leafCount), "size=%d", size)
		require.Equal(t, LeafCountToPeaksCount(leafCount), uint64(len(peaks)))
	}
}

func TestFindSiblings(t *testing.T) {
	tests := []struct {
		name          string
		elementIndex  uint64
		elementsCount uint64
		want          []uint64
	}{
		{"first leaf of four", 1, 7, []uint64{2, 6}},
		{"second leaf of four", 2, 7, []uint64{1, 6}},
		{"third leaf of four", 4, 7, []uint64{5, 3}},
		{"fourth leaf of four", 5, 7, []uint64{4, 3}},
		{"second leaf of two", 2, 3, []uint64{1}},
		{"lone peak has no siblings", 1, 1, []uint64{}},
		{"fifth leaf is its own peak", 8, 8, []uint64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindSiblings(tt.elementIndex, tt.elementsCount)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := FindSiblings(0, 7)
	require.ErrorIs(t, err, ErrInvalidElementIndex)
}

func TestGetPeakInfo(t *testing.T) {
	tests := []struct {
		name          string
		elementsCount uint64
		elementIndex  uint64
		peakIndex     uint64
		height        uint64
	}{
		{"leaf under a lone mountain", 7, 5, 0, 2},
		{"the peak itself", 7, 7, 0, 2},
		{"fifth leaf is the second peak", 8, 8, 1, 0},
		{"leaf under the middle mountain", 11, 9, 1, 1},
		{"lone element", 1, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peakIndex, height := GetPeakInfo(tt.elementsCount, tt.elementIndex)
			require.Equal(t, tt.peakIndex, peakIndex)
			require.Equal(t, tt.height, height)
		})
	}
}

// The proof length promised by GetPeakInfo matches what FindSiblings
// actually produces, for every leaf of every MMR size up to 64 leaves.
func TestGetPeakInfoAgreesWithFindSiblings(t *testing.T) {
	for leafCount := uint64(1); leafCount <= 64; leafCount++ {
		size := LeafCountToMMRSize(leafCount)
		for i := uint64(1); i <= size; i++ {
			if _, err := ElementIndexToLeafIndex(i); err != nil {
				continue
			}
			siblings, err := FindSiblings(i, size)
			require.NoError(t, err)
			_, height := GetPeakInfo(size, i)
			require.Equal(t, int(height), len(siblings), "size=%d element=%d", size, i)
		}
	}
}

func TestArrayDeduplicate(t *testing.T) {
	require.Equal(t, []uint64{3, 1, 2},
		ArrayDeduplicate([]uint64{3, 1, 3, 2, 1, 1, 2}))
	require.Empty(t, ArrayDeduplicate(nil))
}
