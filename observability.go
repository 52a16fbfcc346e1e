package filex

import (
	"context"
	"time"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
)

// Instrumenter wraps file operations with metrics and tracing.
// Both collaborators are optional; a zero Instrumenter records nothing.
type Instrumenter struct {
	metrics metricsx.Metrics
	tracer  tracingx.Tracer
}

// NewInstrumenter creates a new instrumenter with optional metrics and tracing
func NewInstrumenter(metrics metricsx.Metrics, tracer tracingx.Tracer) *Instrumenter {
	return &Instrumenter{
		metrics: metrics,
		tracer:  tracer,
	}
}

// TraceOperation wraps an operation with tracing and metrics
func (i *Instrumenter) TraceOperation(ctx context.Context, operation, key string, fn func(ctx context.Context) error) error {
	var span tracingx.Span
	if i.tracer != nil {
		ctx, span = i.tracer.Start(ctx, "filex."+operation,
			tracingx.WithSpanKind(tracingx.SpanKindClient),
			tracingx.WithAttributes(map[string]any{
				"filex.operation": operation,
				"filex.key":       key,
			}),
		)
		defer span.End()
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Seconds()

	if i.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}

		i.metrics.Counter("filex_operations_total",
			metricsx.WithHelp("Total number of file storage operations"),
			metricsx.WithLabels("operation", "status"),
		).Inc(operation, status)

		i.metrics.Histogram("filex_operation_duration_seconds",
			metricsx.WithHelp("File storage operation duration in seconds"),
			metricsx.WithLabels("operation"),
			metricsx.WithBuckets(.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10),
		).Observe(duration, operation)
	}

	if span != nil && err != nil {
		span.SetError(err)
	}

	return err
}

// RecordOperationSize records the size of data transferred
func (i *Instrumenter) RecordOperationSize(operation string, size int64) {
	if i.metrics != nil && size >= 0 {
		i.metrics.Histogram("filex_operation_bytes",
			metricsx.WithHelp("File storage operation data size in bytes"),
			metricsx.WithLabels("operation"),
			metricsx.WithBuckets(1024, 10240, 102400, 1024000, 10240000, 104857600, 1073741824), // 1KB to 1GB
		).Observe(float64(size), operation)
	}
}

// RecordBatchOperation records batch operation metrics
func (i *Instrumenter) RecordBatchOperation(operation string, totalCount, failedCount int) {
	if i.metrics != nil {
		i.metrics.Histogram("filex_batch_operation_size",
			metricsx.WithHelp("Number of items in batch operations"),
			metricsx.WithLabels("operation"),
			metricsx.WithBuckets(1, 5, 10, 25, 50, 100, 250, 500, 1000),
		).Observe(float64(totalCount), operation)

		if failedCount > 0 {
			i.metrics.Counter("filex_batch_operation_failures_total",
				metricsx.WithHelp("Number of failed items in batch operations"),
				metricsx.WithLabels("operation"),
			).Add(float64(failedCount), operation)
		}
	}
}

// RecordCompensation records objects removed after a failed batch store.
// leaked counts the objects the compensating delete could not remove.
func (i *Instrumenter) RecordCompensation(removed, leaked int) {
	if i.metrics != nil {
		i.metrics.Counter("filex_compensations_total",
			metricsx.WithHelp("Number of batch stores rolled back"),
		).Inc()

		if removed > 0 {
			i.metrics.Counter("filex_compensated_objects_total",
				metricsx.WithHelp("Number of objects deleted while rolling back batch stores"),
			).Add(float64(removed))
		}

		if leaked > 0 {
			i.metrics.Counter("filex_leaked_objects_total",
				metricsx.WithHelp("Number of objects a rollback failed to delete"),
			).Add(float64(leaked))
		}
	}
}

// RecordPresignOperation records presigned URL generation metrics
func (i *Instrumenter) RecordPresignOperation(operation string) {
	if i.metrics != nil {
		i.metrics.Counter("filex_presign_operations_total",
			metricsx.WithHelp("Total number of presigned URL operations"),
			metricsx.WithLabels("operation"),
		).Inc(operation)
	}
}
