package coverage

// NoData is the payload type for holders that carry no per-unitig data.
type NoData struct{}

// Holder pairs a coverage Store with an opaque per-unitig payload of type
// T. The holder owns the payload but never inspects it; payload semantics
// belong to the caller. Use NoData as the type argument when no payload is
// needed.
type Holder[T any] struct {
	cov  Store
	data T
}

// NewHolder creates a holder whose store has size counters, optionally in
// the fully-covered state.
func NewHolder[T any](size int, full bool) *Holder[T] {
	h := &Holder[T]{}
	h.cov.Init(size, full)

	return h
}

// Coverage returns the paired coverage store.
func (h *Holder[T]) Coverage() *Store {
	return &h.cov
}

// Data returns a pointer to the payload.
func (h *Holder[T]) Data() *T {
	return &h.data
}

// SetData replaces the payload.
func (h *Holder[T]) SetData(v T) {
	h.data = v
}
