package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricItemsTotal    = "schemaevo.dispatch.items.total"
	metricItemErrors    = "schemaevo.dispatch.item.errors.total"
	metricItemDuration  = "schemaevo.dispatch.item.duration.seconds"
	metricBatchDuration = "schemaevo.dispatch.batch.duration.seconds"
	metricBatchItems    = "schemaevo.dispatch.batch.items"
	metricInflightItems = "schemaevo.dispatch.inflight.items"

	attrBatch  = "batch"
	attrStatus = "status"

	statusOK    = "ok"
	statusError = "error"
)

// durationBucketBoundaries covers 10ms to 600s: a meta-schema check takes
// milliseconds, an external containment tool can take minutes.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// DispatchMetrics records per-item and per-batch measurements of the
// parallel dispatcher. It satisfies dispatch.Recorder.
type DispatchMetrics struct {
	itemsTotal    metric.Int64Counter
	itemErrors    metric.Int64Counter
	itemDuration  metric.Float64Histogram
	batchDuration metric.Float64Histogram
	batchItems    metric.Int64Histogram
	inflightItems metric.Int64UpDownCounter
}

// NewDispatchMetrics creates the dispatch instruments from the given meter.
func NewDispatchMetrics(mt metric.Meter) (*DispatchMetrics, error) {
	itemsTotal, err := mt.Int64Counter(metricItemsTotal,
		metric.WithDescription("Total number of dispatched items"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricItemsTotal, err)
	}

	itemErrors, err := mt.Int64Counter(metricItemErrors,
		metric.WithDescription("Total number of items whose analysis returned an error"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricItemErrors, err)
	}

	itemDuration, err := mt.Float64Histogram(metricItemDuration,
		metric.WithDescription("Per-item analysis duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricItemDuration, err)
	}

	batchDuration, err := mt.Float64Histogram(metricBatchDuration,
		metric.WithDescription("Batch duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchDuration, err)
	}

	batchItems, err := mt.Int64Histogram(metricBatchItems,
		metric.WithDescription("Number of items per batch"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBatchItems, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightItems,
		metric.WithDescription("Number of items being analyzed"),
		metric.WithUnit("{item}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightItems, err)
	}

	return &DispatchMetrics{
		itemsTotal:    itemsTotal,
		itemErrors:    itemErrors,
		itemDuration:  itemDuration,
		batchDuration: batchDuration,
		batchItems:    batchItems,
		inflightItems: inflight,
	}, nil
}

// RecordItem records one finished item of batch.
func (dm *DispatchMetrics) RecordItem(ctx context.Context, batch string, duration time.Duration, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}

	attrs := metric.WithAttributes(
		attribute.String(attrBatch, batch),
		attribute.String(attrStatus, status),
	)

	dm.itemsTotal.Add(ctx, 1, attrs)
	dm.itemDuration.Record(ctx, duration.Seconds(), attrs)

	if err != nil {
		dm.itemErrors.Add(ctx, 1, metric.WithAttributes(attribute.String(attrBatch, batch)))
	}
}

// RecordBatch records one finished batch.
func (dm *DispatchMetrics) RecordBatch(ctx context.Context, batch string, items int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrBatch, batch))

	dm.batchDuration.Record(ctx, duration.Seconds(), attrs)
	dm.batchItems.Record(ctx, int64(items), attrs)
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (dm *DispatchMetrics) TrackInflight(ctx context.Context, batch string) func() {
	attrs := metric.WithAttributes(attribute.String(attrBatch, batch))
	dm.inflightItems.Add(ctx, 1, attrs)

	return func() {
		dm.inflightItems.Add(ctx, -1, attrs)
	}
}
