package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/graphbio/unicov/pkg/observability"
)

// abundantHits is the default observation count past which a single-window
// unitig is classified as abundant.
const abundantHits = 8

// buildMeta is the per-unitig payload the builder keeps in each holder.
type buildMeta struct {
	// Hits counts coverage updates that landed on this unitig.
	Hits int
}

// windowRef locates one window: which unitig, and at what offset.
type windowRef struct {
	unitig int
	pos    int
}

// Builder incrementally folds raw sequences into a compacted
// sequence-graph index, tracking per-window coverage on every unitig.
// Sequences observed once become unconfirmed unitigs; re-observed window
// ranges are covered and saturate, letting the caller split unitigs at
// coverage boundaries and release storage for fully confirmed ones.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	k        int
	abundant int
	unitigs  []*Unitig[buildMeta]
	index    map[string]windowRef
	logger   *slog.Logger
	metrics  *observability.BuildMetrics
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) { b.logger = logger }
}

// WithMetrics attaches construction metrics. Nil metrics record nothing.
func WithMetrics(m *observability.BuildMetrics) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithAbundanceThreshold overrides the hit count past which a
// single-window unitig is classified as abundant. Non-positive values are
// ignored.
func WithAbundanceThreshold(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.abundant = n
		}
	}
}

// NewBuilder creates a Builder for windows of size k.
func NewBuilder(k int, opts ...Option) (*Builder, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindowSize, k)
	}

	b := &Builder{
		k:        k,
		abundant: abundantHits,
		index:    make(map[string]windowRef),
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// K returns the window size.
func (b *Builder) K() int {
	return b.k
}

// Unitigs returns the current unitigs in index order.
func (b *Builder) Unitigs() []*Unitig[buildMeta] {
	return b.unitigs
}

// AddSequence folds one raw sequence into the index. Runs of windows
// already present are covered on their unitigs; stretches of unseen
// windows become fresh unconfirmed unitigs. Returns ErrSequenceTooShort
// when seq spans no window.
func (b *Builder) AddSequence(ctx context.Context, seq string) error {
	if len(seq) < b.k {
		return fmt.Errorf("%w: %d < %d", ErrSequenceTooShort, len(seq), b.k)
	}

	windows := len(seq) - b.k + 1
	covered, created := 0, 0

	i := 0
	for i < windows {
		ref, _, known := b.lookup(seq[i : i+b.k])
		if known {
			runEnd := b.extendRun(seq, i+1, windows, ref)
			b.coverRange(ctx, ref.unitig, ref.pos, ref.pos+runEnd-i)

			covered += runEnd - i
			i = runEnd

			continue
		}

		stretchStart := i
		for i < windows {
			if _, _, hit := b.lookup(seq[i : i+b.k]); hit {
				break
			}

			i++
		}

		b.addUnitig(ctx, seq[stretchStart:i-1+b.k])

		created++
	}

	b.logger.DebugContext(ctx, "sequence folded",
		"windows", windows,
		"covered", covered,
		"new_unitigs", created,
	)

	return nil
}

// extendRun advances through windows of seq that continue ref's unitig at
// consecutive positions, returning the window index one past the run.
func (b *Builder) extendRun(seq string, next, windows int, ref windowRef) int {
	pos := ref.pos + 1

	for next < windows {
		hit, strand, known := b.lookup(seq[next : next+b.k])
		if !known || !strand || hit.unitig != ref.unitig || hit.pos != pos {
			break
		}

		pos++
		next++
	}

	return next
}

// Lookup resolves one window to a locus descriptor. The reverse complement
// is tried when the forward orientation misses.
func (b *Builder) Lookup(window string) (Locus, bool) {
	ref, strand, ok := b.lookup(window)
	if !ok {
		return Locus{}, false
	}

	u := b.unitigs[ref.unitig]
	short := u.Windows() == 1

	return Locus{
		Unitig:     ref.unitig,
		Dist:       ref.pos,
		Len:        1,
		Size:       u.Windows(),
		Strand:     strand,
		IsShort:    short,
		IsAbundant: short && u.Holder().Data().Hits >= b.abundant,
	}, true
}

func (b *Builder) lookup(window string) (ref windowRef, strand, ok bool) {
	if ref, ok = b.index[window]; ok {
		return ref, true, true
	}

	if ref, ok = b.index[ReverseComplement(window)]; ok {
		return ref, false, true
	}

	return windowRef{}, false, false
}

func (b *Builder) coverRange(ctx context.Context, unitig, start, end int) {
	u := b.unitigs[unitig]
	store := u.Coverage()

	heapBefore := store.HeapBytes()
	wasFull := store.IsFull()

	store.Cover(start, end)
	u.Holder().Data().Hits++

	b.metrics.RecordCover(ctx)
	b.metrics.AddHeapBytes(ctx, int64(store.HeapBytes()-heapBefore))

	if !wasFull && store.IsFull() {
		b.metrics.RecordCollapse(ctx)
		b.logger.DebugContext(ctx, "unitig saturated", "unitig", unitig, "windows", u.Windows())
	}
}

func (b *Builder) addUnitig(ctx context.Context, seq string) {
	u, err := NewUnitig[buildMeta](seq, b.k, false)
	if err != nil {
		// addUnitig is only called with stretches spanning >= 1 window.
		panic(err)
	}

	id := len(b.unitigs)
	b.unitigs = append(b.unitigs, u)
	b.registerWindows(id, u)

	b.metrics.RecordUnitig(ctx, u.Windows())
	b.metrics.AddHeapBytes(ctx, int64(u.Coverage().HeapBytes()))
}

// registerWindows indexes every window of u. A window repeating inside one
// unitig keeps its first position.
func (b *Builder) registerWindows(id int, u *Unitig[buildMeta]) {
	for pos := range u.Windows() {
		w := u.Window(pos)
		if _, dup := b.index[w]; !dup {
			b.index[w] = windowRef{unitig: id, pos: pos}
		}
	}
}

// SplitUnconfirmed cuts every partially covered unitig at its coverage
// boundaries and reindexes. Confirmed parts keep fully-covered stores with
// no counter storage; unconfirmed parts restart at zero coverage. Returns
// the number of unitigs that were split.
func (b *Builder) SplitUnconfirmed(ctx context.Context) int {
	next := make([]*Unitig[buildMeta], 0, len(b.unitigs))
	splits := 0

	for i, u := range b.unitigs {
		parts := u.SplitByCoverage()
		if parts == nil {
			next = append(next, u)

			continue
		}

		splits++
		next = append(next, parts...)

		b.metrics.RecordSplit(ctx, len(parts))
		b.metrics.AddHeapBytes(ctx, -int64(u.Coverage().HeapBytes()))

		for _, p := range parts {
			b.metrics.AddHeapBytes(ctx, int64(p.Coverage().HeapBytes()))
		}

		b.logger.DebugContext(ctx, "unitig split", "unitig", i, "parts", len(parts))
	}

	if splits == 0 {
		return 0
	}

	b.unitigs = next
	b.reindex()

	b.logger.InfoContext(ctx, "split pass complete", "splits", splits, "unitigs", len(b.unitigs))

	return splits
}

func (b *Builder) reindex() {
	b.index = make(map[string]windowRef, len(b.index))

	for id, u := range b.unitigs {
		b.registerWindows(id, u)
	}
}

// Stats summarizes the index and its coverage storage.
type Stats struct {
	Unitigs   int
	Windows   int
	Saturated int
	Inline    int
	Heap      int
	HeapBytes int
}

// Stats scans the unitigs and reports representation and saturation
// counts.
func (b *Builder) Stats() Stats {
	var st Stats

	st.Unitigs = len(b.unitigs)

	for _, u := range b.unitigs {
		store := u.Coverage()
		st.Windows += store.Size()

		switch {
		case store.IsFull():
			st.Saturated++
		case store.HeapBytes() > 0:
			st.Heap++
			st.HeapBytes += store.HeapBytes()
		default:
			st.Inline++
		}
	}

	return st
}
