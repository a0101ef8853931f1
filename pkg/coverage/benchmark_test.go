package coverage

import (
	"testing"
)

// Benchmark constants.
const (
	benchHeapSize   = 4096
	benchInlineSize = InlineLimit
	benchChunk      = 64
)

// BenchmarkCoverInline measures range updates on the packed-word layout.
func BenchmarkCoverInline(b *testing.B) {
	s := New(benchInlineSize, false)

	for i := range b.N {
		if i%benchInlineSize == 0 {
			s.Init(benchInlineSize, false)
		}

		pos := i % benchInlineSize
		s.Cover(pos, pos+1)
	}
}

// BenchmarkCoverHeap measures chunked range updates on the buffer layout.
func BenchmarkCoverHeap(b *testing.B) {
	s := New(benchHeapSize, false)

	for i := range b.N {
		start := (i * benchChunk) % benchHeapSize
		if start == 0 {
			s.Init(benchHeapSize, false)
		}

		s.Cover(start, start+benchChunk)
	}
}

// BenchmarkCovAt measures point queries on the buffer layout.
func BenchmarkCovAt(b *testing.B) {
	s := New(benchHeapSize, false)
	s.Cover(0, benchHeapSize/2)

	b.ResetTimer()

	for i := range b.N {
		s.CovAt(i % benchHeapSize)
	}
}

// BenchmarkIsFull measures the O(1) saturation check.
func BenchmarkIsFull(b *testing.B) {
	s := New(benchHeapSize, false)
	s.Cover(0, benchHeapSize-1)

	b.ResetTimer()

	for range b.N {
		s.IsFull()
	}
}

// BenchmarkSplittingVector measures run extraction on a fragmented store.
func BenchmarkSplittingVector(b *testing.B) {
	s := New(benchHeapSize, false)
	for start := 0; start < benchHeapSize; start += benchChunk * 2 {
		s.Cover(start, start+benchChunk)
	}

	b.ResetTimer()

	for range b.N {
		s.SplittingVector()
	}
}

// BenchmarkLowCoverageInfo measures zero-run scanning.
func BenchmarkLowCoverageInfo(b *testing.B) {
	s := New(benchHeapSize, false)
	for start := 0; start < benchHeapSize; start += benchChunk * 2 {
		s.Cover(start, start+benchChunk)
	}

	b.ResetTimer()

	for range b.N {
		s.LowCoverageInfo()
	}
}

// BenchmarkSnapshot measures serialization of a half-covered store.
func BenchmarkSnapshot(b *testing.B) {
	s := New(benchHeapSize, false)
	s.Cover(0, benchHeapSize/2)

	b.ResetTimer()

	for range b.N {
		_, err := s.Snapshot()
		if err != nil {
			b.Fatal(err)
		}
	}
}
