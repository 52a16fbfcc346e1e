package filex

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gostratum/metricsx"
	"github.com/gostratum/tracingx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// metricsRecorder captures every metric update keyed by name and labels
type metricsRecorder struct {
	mu      sync.Mutex
	totals  map[string]float64
	samples map[string][]float64
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{
		totals:  make(map[string]float64),
		samples: make(map[string][]float64),
	}
}

func seriesKey(name string, labels []string) string {
	return name + "|" + strings.Join(labels, ",")
}

func (r *metricsRecorder) total(name string, labels ...string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.totals[seriesKey(name, labels)]
}

func (r *metricsRecorder) observed(name string, labels ...string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.samples[seriesKey(name, labels)]
}

func (r *metricsRecorder) Counter(name string, _ ...metricsx.Option) metricsx.Counter {
	return &recordedSeries{r: r, name: name}
}

func (r *metricsRecorder) Gauge(name string, _ ...metricsx.Option) metricsx.Gauge {
	return &recordedSeries{r: r, name: name}
}

func (r *metricsRecorder) Histogram(name string, _ ...metricsx.Option) metricsx.Histogram {
	return &recordedSeries{r: r, name: name}
}

func (r *metricsRecorder) Summary(name string, _ ...metricsx.Option) metricsx.Summary {
	return &recordedSeries{r: r, name: name}
}

// recordedSeries serves as counter, gauge, histogram and summary at once
type recordedSeries struct {
	r    *metricsRecorder
	name string
}

func (s *recordedSeries) Add(v float64, labels ...string) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.totals[seriesKey(s.name, labels)] += v
}

func (s *recordedSeries) Set(v float64, labels ...string) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	s.r.totals[seriesKey(s.name, labels)] = v
}

func (s *recordedSeries) Inc(labels ...string)            { s.Add(1, labels...) }
func (s *recordedSeries) Dec(labels ...string)            { s.Add(-1, labels...) }
func (s *recordedSeries) Sub(v float64, labels ...string) { s.Add(-v, labels...) }

func (s *recordedSeries) Observe(v float64, labels ...string) {
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	key := seriesKey(s.name, labels)
	s.r.samples[key] = append(s.r.samples[key], v)
}

func (s *recordedSeries) Timer(labels ...string) metricsx.Timer {
	return &seriesTimer{series: s, labels: labels, start: time.Now()}
}

type seriesTimer struct {
	series *recordedSeries
	labels []string
	start  time.Time
}

func (t *seriesTimer) ObserveDuration()    { t.series.Observe(t.Stop().Seconds(), t.labels...) }
func (t *seriesTimer) Stop() time.Duration { return time.Since(t.start) }

// spanRecorder is a tracingx.Tracer keeping every span it starts
type spanRecorder struct {
	mu    sync.Mutex
	spans []*recordedSpan
}

func (t *spanRecorder) Start(ctx context.Context, name string, opts ...tracingx.SpanOption) (context.Context, tracingx.Span) {
	cfg := tracingx.SpanConfig{Attributes: map[string]any{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	span := &recordedSpan{ctx: ctx, name: name, attrs: cfg.Attributes}
	t.mu.Lock()
	t.spans = append(t.spans, span)
	t.mu.Unlock()
	return ctx, span
}

func (t *spanRecorder) Extract(ctx context.Context, _ any) (context.Context, error) { return ctx, nil }
func (t *spanRecorder) Inject(context.Context, any) error                           { return nil }
func (t *spanRecorder) Shutdown(context.Context) error                              { return nil }

type recordedSpan struct {
	ctx   context.Context
	name  string
	attrs map[string]any
	err   error
	ended bool
}

func (s *recordedSpan) End()                         { s.ended = true }
func (s *recordedSpan) SetTag(key string, value any) { s.attrs[key] = value }
func (s *recordedSpan) SetError(err error)           { s.err = err }
func (s *recordedSpan) LogFields(...tracingx.Field)  {}
func (s *recordedSpan) Context() context.Context     { return s.ctx }
func (s *recordedSpan) TraceID() string              { return "trace-" + s.name }
func (s *recordedSpan) SpanID() string               { return "span-" + s.name }

func TestNewInstrumenter(t *testing.T) {
	t.Run("creates instrumenter with metrics and tracer", func(t *testing.T) {
		metrics := newMetricsRecorder()
		tracer := &spanRecorder{}

		instrumenter := NewInstrumenter(metrics, tracer)

		assert.NotNil(t, instrumenter)
		assert.Equal(t, metrics, instrumenter.metrics)
		assert.Equal(t, tracer, instrumenter.tracer)
	})

	t.Run("creates instrumenter with nil metrics and tracer", func(t *testing.T) {
		instrumenter := NewInstrumenter(nil, nil)

		assert.NotNil(t, instrumenter)
		assert.Nil(t, instrumenter.metrics)
		assert.Nil(t, instrumenter.tracer)
	})
}

func TestTraceOperation(t *testing.T) {
	t.Run("successful operation with metrics and tracing", func(t *testing.T) {
		metrics := newMetricsRecorder()
		tracer := &spanRecorder{}
		instrumenter := NewInstrumenter(metrics, tracer)

		called := false
		err := instrumenter.TraceOperation(context.Background(), "put", "docs/a.txt", func(ctx context.Context) error {
			called = true
			return nil
		})

		require.NoError(t, err)
		assert.True(t, called)

		assert.Equal(t, 1.0, metrics.total("filex_operations_total", "put", "success"))
		assert.Len(t, metrics.observed("filex_operation_duration_seconds", "put"), 1)

		require.Len(t, tracer.spans, 1)
		span := tracer.spans[0]
		assert.Equal(t, "filex.put", span.name)
		assert.Equal(t, "put", span.attrs["filex.operation"])
		assert.Equal(t, "docs/a.txt", span.attrs["filex.key"])
		assert.True(t, span.ended)
		assert.Nil(t, span.err)
	})

	t.Run("failed operation records error", func(t *testing.T) {
		metrics := newMetricsRecorder()
		tracer := &spanRecorder{}
		instrumenter := NewInstrumenter(metrics, tracer)

		testErr := errors.New("test error")
		err := instrumenter.TraceOperation(context.Background(), "read", "docs/a.txt", func(ctx context.Context) error {
			return testErr
		})

		require.Error(t, err)
		assert.Equal(t, testErr, err)
		assert.Equal(t, 1.0, metrics.total("filex_operations_total", "read", "error"))

		require.Len(t, tracer.spans, 1)
		assert.Equal(t, testErr, tracer.spans[0].err)
	})

	t.Run("works without metrics", func(t *testing.T) {
		tracer := &spanRecorder{}
		instrumenter := NewInstrumenter(nil, tracer)

		err := instrumenter.TraceOperation(context.Background(), "delete", "docs/a.txt", func(ctx context.Context) error {
			return nil
		})

		require.NoError(t, err)
		assert.Len(t, tracer.spans, 1)
	})

	t.Run("works without tracer", func(t *testing.T) {
		metrics := newMetricsRecorder()
		instrumenter := NewInstrumenter(metrics, nil)

		err := instrumenter.TraceOperation(context.Background(), "delete_dir", "docs", func(ctx context.Context) error {
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 1.0, metrics.total("filex_operations_total", "delete_dir", "success"))
	})
}

func TestRecordOperationSize(t *testing.T) {
	t.Run("records operation size", func(t *testing.T) {
		metrics := newMetricsRecorder()
		instrumenter := NewInstrumenter(metrics, nil)

		instrumenter.RecordOperationSize("put", 1024)
		instrumenter.RecordOperationSize("put", 2048)

		assert.Equal(t, []float64{1024, 2048}, metrics.observed("filex_operation_bytes", "put"))
	})

	t.Run("skips unknown sizes", func(t *testing.T) {
		metrics := newMetricsRecorder()
		instrumenter := NewInstrumenter(metrics, nil)

		instrumenter.RecordOperationSize("put", -1)

		assert.Empty(t, metrics.observed("filex_operation_bytes", "put"))
	})

	t.Run("no-op without metrics", func(t *testing.T) {
		instrumenter := NewInstrumenter(nil, nil)
		instrumenter.RecordOperationSize("put", 1024)
	})
}

func TestRecordBatchOperation(t *testing.T) {
	t.Run("records batch operation with failures", func(t *testing.T) {
		metrics := newMetricsRecorder()
		instrumenter := NewInstrumenter(metrics, nil)

		instrumenter.RecordBatchOperation("delete_many", 100, 5)

		assert.Equal(t, []float64{100}, metrics.observed("filex_batch_operation_size", "delete_many"))
		assert.Equal(t, 5.0, metrics.total("filex_batch_operation_failures_total", "delete_many"))
	})

	t.Run("records batch operation without failures", func(t *testing.T) {
		metrics := newMetricsRecorder()
		instrumenter := NewInstrumenter(metrics, nil)

		instrumenter.RecordBatchOperation("put_many", 50, 0)

		assert.Equal(t, []float64{50}, metrics.observed("filex_batch_operation_size", "put_many"))
		assert.Zero(t, metrics.total("filex_batch_operation_failures_total", "put_many"))
	})
}

func TestRecordCompensation(t *testing.T) {
	metrics := newMetricsRecorder()
	instrumenter := NewInstrumenter(metrics, nil)

	instrumenter.RecordCompensation(3, 0)
	instrumenter.RecordCompensation(1, 2)

	assert.Equal(t, 2.0, metrics.total("filex_compensations_total"))
	assert.Equal(t, 4.0, metrics.total("filex_compensated_objects_total"))
	assert.Equal(t, 2.0, metrics.total("filex_leaked_objects_total"))
}

func TestRecordPresignOperation(t *testing.T) {
	metrics := newMetricsRecorder()
	instrumenter := NewInstrumenter(metrics, nil)

	instrumenter.RecordPresignOperation("get")
	instrumenter.RecordPresignOperation("get")

	assert.Equal(t, 2.0, metrics.total("filex_presign_operations_total", "get"))
}
