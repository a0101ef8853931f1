// Package coverage provides a compact per-window observation tracker for
// unitigs in a compacted sequence-graph index.
//
// A Store keeps one 2-bit counter per window position of a unitig and
// selects between three physical layouts: counters for short unitigs are
// packed into a single tagged machine word with no allocation, longer
// unitigs back their counters with an owned byte buffer, and a unitig whose
// every position has been confirmed collapses to a flag that retains only
// the length. The bit-level encoding is isolated in accessor methods; all
// queries and updates operate directly on the packed form without ever
// materializing an expanded counter array.
package coverage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/graphbio/unicov/pkg/safeconv"
)

const (
	// Full is the saturation value of a counter. A position at Full is
	// confirmed and never changes again.
	Full uint8 = 2

	// InlineLimit is the largest counter count the inline layout can hold:
	// 56 bits of the tag word at 2 bits per counter.
	InlineLimit = 28
)

// Tag word layout. The inline bit selects between the packed-word layout
// and the buffer-backed layout; the full bit short-circuits both.
//
//	bit 0      1 = counters live in the word itself
//	bit 1      1 = fully covered, counter storage dropped
//	bits 2-7   counter count for the inline layout (0..28)
//	bits 8-63  up to 28 counters, 2 bits each, in position order
const (
	tagInline = uint64(1) << 0
	tagFull   = uint64(1) << 1

	inlineSizeShift    = 2
	inlineSizeMask     = 0x3F
	inlineCounterShift = 8

	bitsPerCounter  = 2
	counterMask     = 0x3
	countersPerByte = 4

	// inlineSaturatedBits has the Full bit pattern (0b10) in all 28
	// inline counter slots.
	inlineSaturatedBits = uint64(0xAAAAAAAAAAAAAA00)
)

// Heap buffer layout: a uint32 total counter count, a uint32 count of
// saturated counters, then the counters packed 4 per byte. The saturated
// count is maintained incrementally so IsFull never scans.
const (
	headerTotalOff     = 0
	headerSaturatedOff = 4
	headerBytes        = 8
)

// Store records which window positions of one unitig have been observed.
//
// The zero value is an empty store of size zero. A Store owns its backing
// buffer exclusively: copying the struct value aliases the buffer, so use
// Clone for an independent copy.
//
// A Store is not safe for concurrent mutation. Read-only queries may run
// concurrently with each other, but not with Cover, SetFull or Init on the
// same store.
type Store struct {
	// word carries the tag bits and, for the inline layout, the packed
	// length and counters.
	word uint64

	// fullLen retains the counter count after a collapse to full, when
	// neither word nor buf stores it.
	fullLen uint32

	// buf backs the counters for sizes above InlineLimit. Nil for the
	// inline and full layouts.
	buf []byte
}

// New creates a Store with size counters. When full is true the store is
// created directly in the fully-covered state and allocates nothing.
func New(size int, full bool) *Store {
	s := &Store{}
	s.Init(size, full)

	return s
}

// Init resets the store to size zero-valued counters, releasing any backing
// buffer. When full is true the store holds no counters and reports every
// position as Full. The layout is chosen here from size and does not change
// again except for the automatic collapse to full.
func (s *Store) Init(size int, full bool) {
	if size < 0 {
		panic(fmt.Sprintf("coverage: negative size %d", size))
	}

	s.buf = nil
	s.fullLen = 0

	switch {
	case full:
		s.word = tagFull
		s.fullLen = safeconv.MustIntToUint32(size)
	case size <= InlineLimit:
		s.word = tagInline | uint64(size)<<inlineSizeShift
	default:
		s.word = 0
		s.buf = make([]byte, headerBytes+packedBytes(size))
		binary.LittleEndian.PutUint32(s.buf[headerTotalOff:], safeconv.MustIntToUint32(size))
	}
}

// Size returns the number of counters. It is O(1) for every layout,
// including the collapsed full state.
func (s *Store) Size() int {
	switch {
	case s.word&tagFull != 0:
		return int(s.fullLen)
	case s.word&tagInline != 0:
		return int(s.word>>inlineSizeShift) & inlineSizeMask
	case s.buf != nil:
		return int(binary.LittleEndian.Uint32(s.buf[headerTotalOff:]))
	default:
		return 0
	}
}

// IsFull reports whether every counter is saturated. O(1): either the full
// flag is set, or the heap header's saturated count equals the total.
func (s *Store) IsFull() bool {
	if s.word&tagFull != 0 {
		return true
	}

	if s.word&tagInline == 0 && s.buf != nil {
		return binary.LittleEndian.Uint32(s.buf[headerSaturatedOff:]) ==
			binary.LittleEndian.Uint32(s.buf[headerTotalOff:])
	}

	return false
}

// SetFull forces the fully-covered state, discarding per-position counters
// and releasing the backing buffer. Use it when the caller has confirmed
// total coverage independently of per-position bookkeeping.
func (s *Store) SetFull() {
	n := s.Size()

	s.buf = nil
	s.word = tagFull
	s.fullLen = safeconv.MustIntToUint32(n)
}

// CovAt returns the counter value at index. Panics if index is out of
// range. A full store answers without touching memory.
func (s *Store) CovAt(index int) uint8 {
	if index < 0 || index >= s.Size() {
		panic(fmt.Sprintf("coverage: index %d out of range [0,%d)", index, s.Size()))
	}

	switch {
	case s.word&tagFull != 0:
		return Full
	case s.word&tagInline != 0:
		return uint8(s.word>>inlineShift(index)) & counterMask
	default:
		return s.buf[heapByte(index)] >> heapShift(index) & counterMask
	}
}

// Cover saturates the counters in [start, end), raising each to Full.
// Positions already at Full are untouched, so repeated calls are
// idempotent and counters never decrease. If the update saturates the last
// unsaturated counter the store collapses to the full state and releases
// its buffer; this collapse is the only automatic layout transition.
//
// Panics unless 0 <= start <= end <= Size().
func (s *Store) Cover(start, end int) {
	n := s.Size()
	if start < 0 || start > end || end > n {
		panic(fmt.Sprintf("coverage: range [%d,%d) invalid for size %d", start, end, n))
	}

	if start == end || s.IsFull() {
		return
	}

	if s.word&tagInline != 0 {
		s.coverInline(start, end, n)

		return
	}

	s.coverHeap(start, end)
}

func (s *Store) coverInline(start, end, n int) {
	for i := start; i < end; i++ {
		shift := inlineShift(i)
		s.word = s.word&^(uint64(counterMask)<<shift) | uint64(Full)<<shift
	}

	pat := inlineSaturatedPattern(n)
	if s.word&pat == pat {
		s.word = tagFull
		s.fullLen = safeconv.MustIntToUint32(n)
	}
}

func (s *Store) coverHeap(start, end int) {
	total := binary.LittleEndian.Uint32(s.buf[headerTotalOff:])
	saturated := binary.LittleEndian.Uint32(s.buf[headerSaturatedOff:])

	for i := start; i < end; i++ {
		idx, shift := heapByte(i), heapShift(i)
		if s.buf[idx]>>shift&counterMask == Full {
			continue
		}

		s.buf[idx] = s.buf[idx]&^(counterMask<<shift) | Full<<shift
		saturated++
	}

	if saturated == total {
		s.buf = nil
		s.word = tagFull
		s.fullLen = total

		return
	}

	binary.LittleEndian.PutUint32(s.buf[headerSaturatedOff:], saturated)
}

// Range is a half-open run [Start, End) of positions sharing one
// confirmation state: Confirmed runs hold counters at Full, unconfirmed
// runs hold counters below Full.
type Range struct {
	Start     int
	End       int
	Confirmed bool
}

// SplittingVector partitions [0, Size()) into maximal runs of equal
// confirmation state, in position order with alternating classification.
// The result drives the caller's decision of where to cut a partially
// covered unitig. A full store yields a single confirmed run; a size-zero
// store yields nil.
func (s *Store) SplittingVector() []Range {
	n := s.Size()
	if n == 0 {
		return nil
	}

	if s.IsFull() {
		return []Range{{Start: 0, End: n, Confirmed: true}}
	}

	var runs []Range

	runStart := 0
	confirmed := s.CovAt(0) == Full

	for i := 1; i < n; i++ {
		c := s.CovAt(i) == Full
		if c == confirmed {
			continue
		}

		runs = append(runs, Range{Start: runStart, End: i, Confirmed: confirmed})
		runStart, confirmed = i, c
	}

	return append(runs, Range{Start: runStart, End: n, Confirmed: confirmed})
}

// LowCoverageInfo returns the start position and length of the longest run
// of never-covered counters (value zero). Ties break toward the earliest
// start. When no counter is zero, including the full state, it returns
// (0, 0).
func (s *Store) LowCoverageInfo() (start, length int) {
	n := s.Size()
	if n == 0 || s.IsFull() {
		return 0, 0
	}

	bestStart, bestLen := 0, 0
	runStart := -1

	for i := range n {
		if s.CovAt(i) == 0 {
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

	if runStart >= 0 && n-runStart > bestLen {
		bestStart, bestLen = runStart, n-runStart
	}

	return bestStart, bestLen
}

// Clone returns an independent deep copy: mutating the clone never affects
// the original.
func (s *Store) Clone() *Store {
	return &Store{
		word:    s.word,
		fullLen: s.fullLen,
		buf:     bytes.Clone(s.buf),
	}
}

// HeapBytes returns the size of the backing buffer, or zero for the inline
// and full layouts. Diagnostic only.
func (s *Store) HeapBytes() int {
	return len(s.buf)
}

// String renders the counters as one digit per position, for debugging.
func (s *Store) String() string {
	var b strings.Builder

	for i := range s.Size() {
		b.WriteByte('0' + s.CovAt(i))
	}

	return b.String()
}

// setRaw writes an arbitrary counter value without maintaining the heap
// saturated count. Snapshot restore recounts afterwards.
func (s *Store) setRaw(index int, value uint8) {
	if s.word&tagInline != 0 {
		shift := inlineShift(index)
		s.word = s.word&^(uint64(counterMask)<<shift) | uint64(value)<<shift

		return
	}

	idx, shift := heapByte(index), heapShift(index)
	s.buf[idx] = s.buf[idx]&^(counterMask<<shift) | value<<shift
}

func inlineShift(index int) uint {
	return inlineCounterShift + uint(index)*bitsPerCounter
}

func heapByte(index int) int {
	return headerBytes + index/countersPerByte
}

func heapShift(index int) uint {
	return uint(index%countersPerByte) * bitsPerCounter
}

// inlineSaturatedPattern returns the word bits that are set when all n
// inline counters equal Full.
func inlineSaturatedPattern(n int) uint64 {
	region := (uint64(1)<<(uint(n)*bitsPerCounter) - 1) << inlineCounterShift

	return inlineSaturatedBits & region
}

// packedBytes returns the byte count needed for n 2-bit counters.
func packedBytes(n int) int {
	return (n + countersPerByte - 1) / countersPerByte
}
