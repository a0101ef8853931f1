package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test sizes. inlineSize stays within the packed-word layout, heapSize
// forces the buffer-backed layout.
const (
	inlineSize = 5
	heapSize   = 30
	maxInline  = InlineLimit
)

func TestNew_InlineZeroed(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)

	assert.Equal(t, inlineSize, s.Size())
	assert.False(t, s.IsFull())
	assert.Zero(t, s.HeapBytes())

	for i := range inlineSize {
		assert.Equal(t, uint8(0), s.CovAt(i))
	}
}

func TestNew_HeapZeroed(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)

	assert.Equal(t, heapSize, s.Size())
	assert.False(t, s.IsFull())
	assert.Positive(t, s.HeapBytes())

	for i := range heapSize {
		assert.Equal(t, uint8(0), s.CovAt(i))
	}
}

func TestNew_FullAllocatesNothing(t *testing.T) {
	t.Parallel()

	s := New(10, true)

	assert.True(t, s.IsFull())
	assert.Equal(t, 10, s.Size())
	assert.Zero(t, s.HeapBytes())

	for i := range 10 {
		assert.Equal(t, Full, s.CovAt(i))
	}
}

func TestNew_ZeroSize(t *testing.T) {
	t.Parallel()

	s := New(0, false)

	assert.Equal(t, 0, s.Size())
	assert.Nil(t, s.SplittingVector())

	start, length := s.LowCoverageInfo()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, length)
}

func TestZeroValue_IsEmptyStore(t *testing.T) {
	t.Parallel()

	var s Store

	assert.Equal(t, 0, s.Size())
	assert.False(t, s.IsFull())
	assert.Nil(t, s.SplittingVector())
}

func TestCover_PartialRange(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)
	s.Cover(1, 3)

	want := []uint8{0, Full, Full, 0, 0}
	for i, w := range want {
		assert.Equal(t, w, s.CovAt(i), "position %d", i)
	}

	runs := s.SplittingVector()
	require.Len(t, runs, 3)
	assert.Equal(t, Range{Start: 0, End: 1, Confirmed: false}, runs[0])
	assert.Equal(t, Range{Start: 1, End: 3, Confirmed: true}, runs[1])
	assert.Equal(t, Range{Start: 3, End: 5, Confirmed: false}, runs[2])
}

func TestCover_OverlappingCalls(t *testing.T) {
	t.Parallel()

	s := New(10, false)
	s.Cover(2, 4)
	s.Cover(3, 6)

	for i := range 10 {
		if i >= 2 && i < 6 {
			assert.Equal(t, Full, s.CovAt(i), "position %d", i)
		} else {
			assert.Equal(t, uint8(0), s.CovAt(i), "position %d", i)
		}
	}
}

func TestCover_HeapCollapsesToFull(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	require.Positive(t, s.HeapBytes())

	s.Cover(0, heapSize)

	assert.True(t, s.IsFull())
	assert.Zero(t, s.HeapBytes(), "collapse must release the buffer")
	assert.Equal(t, heapSize, s.Size(), "size survives the collapse")

	for i := range heapSize {
		assert.Equal(t, Full, s.CovAt(i))
	}
}

func TestCover_InlineCollapsesToFull(t *testing.T) {
	t.Parallel()

	s := New(maxInline, false)
	s.Cover(0, maxInline)

	assert.True(t, s.IsFull())
	assert.Equal(t, maxInline, s.Size())
}

func TestCover_PiecewiseUnionCollapses(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	s.Cover(17, heapSize)
	require.False(t, s.IsFull())

	s.Cover(0, 17)

	assert.True(t, s.IsFull())
	assert.Zero(t, s.HeapBytes())
}

func TestCover_Monotonic(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	prev := make([]uint8, heapSize)

	ranges := [][2]int{{3, 9}, {0, 3}, {9, 9}, {5, 20}, {20, 29}, {1, 7}}
	for _, r := range ranges {
		s.Cover(r[0], r[1])

		for i := range heapSize {
			got := s.CovAt(i)
			assert.GreaterOrEqual(t, got, prev[i], "position %d decreased", i)
			prev[i] = got
		}
	}
}

func TestCover_IdempotentOnSaturated(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)
	s.Cover(1, 4)
	wasFull := s.IsFull()

	s.Cover(1, 4)

	assert.Equal(t, wasFull, s.IsFull())

	for i := 1; i < 4; i++ {
		assert.Equal(t, Full, s.CovAt(i))
	}
}

func TestCover_OnFullStoreIsNoop(t *testing.T) {
	t.Parallel()

	s := New(12, true)
	s.Cover(3, 7)

	assert.True(t, s.IsFull())
}

func TestCover_EmptyRange(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)
	s.Cover(2, 2)

	for i := range inlineSize {
		assert.Equal(t, uint8(0), s.CovAt(i))
	}
}

func TestCover_PreconditionViolations(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)

	assert.Panics(t, func() { s.Cover(3, 2) })
	assert.Panics(t, func() { s.Cover(-1, 2) })
	assert.Panics(t, func() { s.Cover(0, inlineSize+1) })
}

func TestCovAt_PreconditionViolations(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)

	assert.Panics(t, func() { s.CovAt(-1) })
	assert.Panics(t, func() { s.CovAt(inlineSize) })
}

func TestSetFull_ReleasesBuffer(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	s.Cover(4, 11)

	s.SetFull()

	assert.True(t, s.IsFull())
	assert.Zero(t, s.HeapBytes())
	assert.Equal(t, heapSize, s.Size())
	assert.Equal(t, Full, s.CovAt(heapSize-1))
}

func TestInit_ReusesStore(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	s.Cover(0, 9)

	s.Init(inlineSize, false)

	assert.Equal(t, inlineSize, s.Size())
	assert.Zero(t, s.HeapBytes())

	for i := range inlineSize {
		assert.Equal(t, uint8(0), s.CovAt(i))
	}
}

func TestInit_NegativeSizePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New(-1, false) })
}

func TestSplittingVector_Full(t *testing.T) {
	t.Parallel()

	s := New(9, true)

	runs := s.SplittingVector()
	require.Len(t, runs, 1)
	assert.Equal(t, Range{Start: 0, End: 9, Confirmed: true}, runs[0])
}

func TestSplittingVector_PartitionExactness(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	s.Cover(0, 4)
	s.Cover(10, 13)
	s.Cover(25, heapSize)

	runs := s.SplittingVector()
	require.NotEmpty(t, runs)

	// Concatenated runs reconstruct [0, size) with no gaps or overlaps,
	// and adjacent runs alternate classification.
	assert.Equal(t, 0, runs[0].Start)
	assert.Equal(t, heapSize, runs[len(runs)-1].End)

	for i := 1; i < len(runs); i++ {
		assert.Equal(t, runs[i-1].End, runs[i].Start)
		assert.NotEqual(t, runs[i-1].Confirmed, runs[i].Confirmed)
	}

	for _, r := range runs {
		for i := r.Start; i < r.End; i++ {
			assert.Equal(t, r.Confirmed, s.CovAt(i) == Full)
		}
	}
}

func TestLowCoverageInfo_LongestZeroRun(t *testing.T) {
	t.Parallel()

	s := New(heapSize, false)
	s.Cover(0, 3)   // zeros at 3..9 (7 long)
	s.Cover(10, 12) // zeros at 12..29 (18 long)

	start, length := s.LowCoverageInfo()
	assert.Equal(t, 12, start)
	assert.Equal(t, 18, length)
}

func TestLowCoverageInfo_EarliestTieBreak(t *testing.T) {
	t.Parallel()

	// Zero runs after covering: [0,3), [4,7), [8,10). The first two tie
	// at length 3, so the earliest start wins.
	s := New(10, false)
	s.Cover(3, 4)
	s.Cover(7, 8)

	start, length := s.LowCoverageInfo()
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, length)
}

func TestLowCoverageInfo_NoZeroRun(t *testing.T) {
	t.Parallel()

	s := New(6, false)
	s.Cover(0, 6)

	start, length := s.LowCoverageInfo()
	assert.Equal(t, 0, start)
	assert.Equal(t, 0, length)
}

func TestClone_Independent(t *testing.T) {
	t.Parallel()

	for _, size := range []int{inlineSize, heapSize} {
		s := New(size, false)
		s.Cover(1, 4)

		c := s.Clone()

		require.Equal(t, s.Size(), c.Size())
		require.Equal(t, s.IsFull(), c.IsFull())

		for i := range size {
			require.Equal(t, s.CovAt(i), c.CovAt(i), "size %d position %d", size, i)
		}

		c.Cover(0, size)

		assert.True(t, c.IsFull())
		assert.False(t, s.IsFull(), "mutating the clone must not affect the original")
		assert.Equal(t, uint8(0), s.CovAt(0))
	}
}

// TestRepresentationEquivalence drives the inline and heap layouts with
// equivalent operation sequences and checks all observable behavior
// against a plain counter-slice model.
func TestRepresentationEquivalence(t *testing.T) {
	t.Parallel()

	// Relative ranges, scaled to each size.
	ops := [][2]float64{{0.1, 0.3}, {0.5, 0.9}, {0.0, 0.2}, {0.25, 0.6}, {0.85, 1.0}}

	for _, size := range []int{maxInline, 100} {
		s := New(size, false)
		model := make([]uint8, size)

		for _, op := range ops {
			start, end := int(op[0]*float64(size)), int(op[1]*float64(size))
			s.Cover(start, end)

			for i := start; i < end; i++ {
				model[i] = Full
			}

			assertMatchesModel(t, s, model)
		}
	}
}

func assertMatchesModel(t *testing.T, s *Store, model []uint8) {
	t.Helper()

	require.Equal(t, len(model), s.Size())

	for i, w := range model {
		require.Equal(t, w, s.CovAt(i), "position %d", i)
	}

	full := true
	for _, v := range model {
		if v != Full {
			full = false

			break
		}
	}

	require.Equal(t, full, s.IsFull())

	require.Equal(t, modelRuns(model), s.SplittingVector())

	wantStart, wantLen := modelLowCoverage(model)
	gotStart, gotLen := s.LowCoverageInfo()
	require.Equal(t, wantStart, gotStart)
	require.Equal(t, wantLen, gotLen)
}

func modelRuns(model []uint8) []Range {
	if len(model) == 0 {
		return nil
	}

	var runs []Range

	runStart := 0
	confirmed := model[0] == Full

	for i := 1; i < len(model); i++ {
		c := model[i] == Full
		if c == confirmed {
			continue
		}

		runs = append(runs, Range{Start: runStart, End: i, Confirmed: confirmed})
		runStart, confirmed = i, c
	}

	return append(runs, Range{Start: runStart, End: len(model), Confirmed: confirmed})
}

func modelLowCoverage(model []uint8) (start, length int) {
	bestStart, bestLen := 0, 0
	runStart := -1

	for i, v := range model {
		if v == 0 {
			if runStart < 0 {
				runStart = i
			}

			continue
		}

		if runStart >= 0 && i-runStart > bestLen {
			bestStart, bestLen = runStart, i-runStart
		}

		runStart = -1
	}

	if runStart >= 0 && len(model)-runStart > bestLen {
		bestStart, bestLen = runStart, len(model)-runStart
	}

	return bestStart, bestLen
}

func TestString_Digits(t *testing.T) {
	t.Parallel()

	s := New(inlineSize, false)
	s.Cover(1, 3)

	assert.Equal(t, "02200", s.String())
}
