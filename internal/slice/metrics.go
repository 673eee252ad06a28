package slice

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("github.com/scigolib/amr/slice")
	meter  = otel.Meter("github.com/scigolib/amr/slice")
)

var (
	orphanCells = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "amr",
		Subsystem: "slice",
		Name:      "orphan_cells_total",
		Help:      "Slice output cells that found no donor cell.",
	})
	blockFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "amr",
		Subsystem: "slice",
		Name:      "block_failures_total",
		Help:      "Selected blocks that could not be fetched and were emitted without data.",
	})
)

var (
	sliceLatency metric.Float64Histogram
	metricsOnce  sync.Once
	metricsErr   error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		sliceLatency, metricsErr = meter.Float64Histogram(
			"amr_slice_duration_seconds",
			metric.WithDescription("Duration of slice extraction"),
			metric.WithUnit("s"),
		)
	})
	return metricsErr
}

func recordSlice(ctx context.Context, d time.Duration, axis int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	sliceLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("axis", axisName(axis)),
		attribute.Bool("success", success),
	))
}
