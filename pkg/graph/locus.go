// Package graph provides the unitig layer around the coverage tracker:
// locus descriptors produced by index lookups, unitigs pairing a sequence
// with a coverage holder, and an incremental builder that folds raw
// sequences into the index one window at a time.
package graph

import "fmt"

// Locus is a read-only descriptor of a matched region within one unitig.
// It is formed by index lookups from their own structures plus the
// coverage store's Size accessor and carries no coverage logic of its own.
type Locus struct {
	// Unitig is the index of the matched unitig in the builder.
	Unitig int

	// Dist is the 0-based window offset of the match from the unitig
	// start.
	Dist int

	// Len is the match length in windows; zero for an empty locus.
	Len int

	// Size is the unitig length in windows.
	Size int

	// Strand is true when the match lies on the forward strand.
	Strand bool

	// IsShort marks a unitig spanning exactly one window.
	IsShort bool

	// IsAbundant marks a short unitig observed many times across inputs.
	IsAbundant bool

	// IsIsolated and IsTip are topology classifications supplied by the
	// graph layer that owns neighbor information; the builder leaves
	// them unset.
	IsIsolated bool
	IsTip      bool

	// SelfLoop marks a unitig whose ends join back onto itself.
	SelfLoop bool
}

// IsEmpty reports whether the locus describes no match.
func (l Locus) IsEmpty() bool {
	return l.Len == 0
}

// WindowRange returns the matched half-open window range [start, end)
// within the unitig, in the shape Cover expects.
func (l Locus) WindowRange() (start, end int) {
	return l.Dist, l.Dist + l.Len
}

// String renders the locus for debugging.
func (l Locus) String() string {
	if l.IsEmpty() {
		return "locus{empty}"
	}

	strand := "+"
	if !l.Strand {
		strand = "-"
	}

	return fmt.Sprintf("locus{unitig %d [%d,%d) of %d %s}", l.Unitig, l.Dist, l.Dist+l.Len, l.Size, strand)
}
