package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricUnitigsTotal   = "unicov.build.unitigs.total"
	metricWindowsTotal   = "unicov.build.windows.total"
	metricCoverCalls     = "unicov.build.cover.calls.total"
	metricCollapsesTotal = "unicov.build.collapses.total"
	metricSplitsTotal    = "unicov.build.splits.total"
	metricHeapBytes      = "unicov.coverage.heap.bytes"
)

// BuildMetrics holds OTel instruments for graph-construction metrics.
type BuildMetrics struct {
	unitigsTotal   metric.Int64Counter
	windowsTotal   metric.Int64Counter
	coverCalls     metric.Int64Counter
	collapsesTotal metric.Int64Counter
	splitsTotal    metric.Int64Counter
	heapBytes      metric.Int64UpDownCounter
}

// NewBuildMetrics creates construction metric instruments from the given
// meter.
func NewBuildMetrics(mt metric.Meter) (*BuildMetrics, error) {
	unitigs, err := mt.Int64Counter(metricUnitigsTotal,
		metric.WithDescription("Total unitigs created"),
		metric.WithUnit("{unitig}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricUnitigsTotal, err)
	}

	windows, err := mt.Int64Counter(metricWindowsTotal,
		metric.WithDescription("Total windows indexed"),
		metric.WithUnit("{window}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricWindowsTotal, err)
	}

	covers, err := mt.Int64Counter(metricCoverCalls,
		metric.WithDescription("Total coverage range updates"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCoverCalls, err)
	}

	collapses, err := mt.Int64Counter(metricCollapsesTotal,
		metric.WithDescription("Total stores collapsed to the fully-covered state"),
		metric.WithUnit("{collapse}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCollapsesTotal, err)
	}

	splits, err := mt.Int64Counter(metricSplitsTotal,
		metric.WithDescription("Total unitigs split at coverage boundaries"),
		metric.WithUnit("{split}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSplitsTotal, err)
	}

	heap, err := mt.Int64UpDownCounter(metricHeapBytes,
		metric.WithDescription("Bytes held by heap-backed coverage buffers"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricHeapBytes, err)
	}

	return &BuildMetrics{
		unitigsTotal:   unitigs,
		windowsTotal:   windows,
		coverCalls:     covers,
		collapsesTotal: collapses,
		splitsTotal:    splits,
		heapBytes:      heap,
	}, nil
}

// RecordUnitig records a created unitig and its window count.
func (m *BuildMetrics) RecordUnitig(ctx context.Context, windows int) {
	if m == nil {
		return
	}

	m.unitigsTotal.Add(ctx, 1)
	m.windowsTotal.Add(ctx, int64(windows))
}

// RecordCover records a coverage range update.
func (m *BuildMetrics) RecordCover(ctx context.Context) {
	if m == nil {
		return
	}

	m.coverCalls.Add(ctx, 1)
}

// RecordCollapse records a store collapsing to the fully-covered state.
func (m *BuildMetrics) RecordCollapse(ctx context.Context) {
	if m == nil {
		return
	}

	m.collapsesTotal.Add(ctx, 1)
}

// RecordSplit records one unitig split into parts sub-unitigs.
func (m *BuildMetrics) RecordSplit(ctx context.Context, parts int) {
	if m == nil {
		return
	}

	m.splitsTotal.Add(ctx, int64(parts))
}

// AddHeapBytes adjusts the tracked heap buffer footprint by delta.
func (m *BuildMetrics) AddHeapBytes(ctx context.Context, delta int64) {
	if m == nil {
		return
	}

	m.heapBytes.Add(ctx, delta)
}
