package vectorstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const vectorstoreInstrumentationName = "github.com/fyrsmithlabs/ragd/internal/vectorstore"

// Metrics holds store operation metrics, shared by all backends.
type Metrics struct {
	meter   metric.Meter
	logger  *zap.Logger
	backend string

	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewMetrics creates a Metrics instance for one store backend.
func NewMetrics(backend string, logger *zap.Logger) *Metrics {
	m := &Metrics{
		meter:   otel.Meter(vectorstoreInstrumentationName),
		logger:  logger,
		backend: backend,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.duration, err = m.meter.Float64Histogram(
		"ragd.vectorstore.operation_duration_seconds",
		metric.WithDescription("Duration of vector store operations in seconds, labeled by backend, operation and collection"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		m.logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.errors, err = m.meter.Int64Counter(
		"ragd.vectorstore.errors_total",
		metric.WithDescription("Total vector store operation errors by backend, operation and collection"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		m.logger.Warn("failed to create errors counter", zap.Error(err))
	}
}

// RecordOperation records the duration and outcome of one store operation.
func (m *Metrics) RecordOperation(ctx context.Context, operation, collection string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("backend", m.backend),
		attribute.String("operation", operation),
		attribute.String("collection", collection),
	}

	if m.duration != nil {
		m.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	}

	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}
