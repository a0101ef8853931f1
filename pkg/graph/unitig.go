package graph

import (
	"errors"
	"fmt"

	"github.com/graphbio/unicov/pkg/coverage"
)

// Sentinel errors for unitig construction.
var (
	ErrInvalidWindowSize = errors.New("graph: window size must be positive")
	ErrSequenceTooShort  = errors.New("graph: sequence shorter than window size")
)

// Unitig is a maximal non-branching path of the sequence graph: a sequence
// spanning len(seq)-k+1 overlapping windows of fixed size k, paired with a
// coverage holder tracking which of those windows have been observed.
type Unitig[T any] struct {
	seq    string
	k      int
	holder *coverage.Holder[T]
}

// NewUnitig creates a unitig over seq with window size k. When full is
// true the coverage store starts in the fully-covered state.
func NewUnitig[T any](seq string, k int, full bool) (*Unitig[T], error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWindowSize, k)
	}

	if len(seq) < k {
		return nil, fmt.Errorf("%w: %d < %d", ErrSequenceTooShort, len(seq), k)
	}

	return &Unitig[T]{
		seq:    seq,
		k:      k,
		holder: coverage.NewHolder[T](len(seq)-k+1, full),
	}, nil
}

// Seq returns the unitig sequence.
func (u *Unitig[T]) Seq() string {
	return u.seq
}

// Windows returns the number of windows the unitig spans.
func (u *Unitig[T]) Windows() int {
	return len(u.seq) - u.k + 1
}

// Window returns the window starting at offset pos.
func (u *Unitig[T]) Window(pos int) string {
	return u.seq[pos : pos+u.k]
}

// Holder returns the coverage holder, giving access to both the store and
// the payload.
func (u *Unitig[T]) Holder() *coverage.Holder[T] {
	return u.holder
}

// Coverage returns the unitig's coverage store.
func (u *Unitig[T]) Coverage() *coverage.Store {
	return u.holder.Coverage()
}

// SplitByCoverage cuts the unitig at its coverage boundaries, yielding one
// sub-unitig per run of the splitting vector: confirmed runs become
// unitigs with fully-covered stores, unconfirmed runs start with zero
// coverage. The payload is copied by value into every part. Returns nil
// when there is no boundary to cut at (uniform coverage or empty store).
func (u *Unitig[T]) SplitByCoverage() []*Unitig[T] {
	runs := u.Coverage().SplittingVector()
	if len(runs) < 2 {
		return nil
	}

	parts := make([]*Unitig[T], 0, len(runs))

	for _, r := range runs {
		part := &Unitig[T]{
			seq:    u.seq[r.Start : r.End+u.k-1],
			k:      u.k,
			holder: coverage.NewHolder[T](r.End-r.Start, r.Confirmed),
		}
		part.holder.SetData(*u.holder.Data())

		parts = append(parts, part)
	}

	return parts
}
