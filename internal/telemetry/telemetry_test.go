package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/config"
)

func TestNew_DisabledTelemetry(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = false

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, tel)

	assert.False(t, tel.IsEnabled())
	assert.Nil(t, tel.tracerProvider)
	assert.Nil(t, tel.meterProvider)

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.ServiceName = ""

	tel, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Nil(t, tel)
	assert.Contains(t, err.Error(), "invalid telemetry config")
}

func TestNew_EnabledLocalCollector(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Enabled = true
	cfg.Metrics.ExportInterval = config.Duration(time.Hour)

	tel, err := New(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, tel)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = tel.Shutdown(ctx)
	}()

	assert.True(t, tel.IsEnabled())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)
	assert.Empty(t, health.Reason)
}

func TestTelemetry_Health(t *testing.T) {
	tel := NewTestTelemetry()

	health := tel.Health()
	assert.True(t, health.Healthy)
	assert.False(t, health.Degraded)

	tel.setDegraded("exporter unreachable: %v", "connection refused")

	health = tel.Health()
	assert.True(t, health.Degraded)
	assert.Contains(t, health.Reason, "connection refused")
}

func TestTelemetry_NilSafe(t *testing.T) {
	var tel *Telemetry

	assert.NotPanics(t, func() {
		_ = tel.Tracer("test")
		_ = tel.Meter("test")
		_ = tel.LoggerProvider()
		_ = tel.IsEnabled()
		_ = tel.Shutdown(context.Background())
		_ = tel.ForceFlush(context.Background())
		_ = tel.Health()
	})

	health := tel.Health()
	assert.False(t, health.Healthy)
	assert.True(t, health.Degraded)
}

func TestTelemetry_TracerFallback(t *testing.T) {
	tel := &Telemetry{}

	// No provider configured: falls back to the otel global.
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.Meter("test"))
}

func TestTelemetry_Shutdown(t *testing.T) {
	tel := NewTestTelemetry()

	tracer := tel.Tracer("test")
	_, span := tracer.Start(context.Background(), "shutdown-test")
	span.End()

	err := tel.Shutdown(context.Background())
	require.NoError(t, err)

	health := tel.Health()
	assert.False(t, health.Healthy)
}

func TestTelemetry_ForceFlush(t *testing.T) {
	tel := NewTestTelemetry()

	meter := tel.Meter("test")
	counter, err := meter.Int64Counter("test.counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	require.NoError(t, tel.MetricReader.ForceFlush(context.Background()))

	collected := tel.MetricReader.Collected()
	require.Len(t, collected, 1)
	require.NotEmpty(t, collected[0].ScopeMetrics)
	assert.Equal(t, "test.counter", collected[0].ScopeMetrics[0].Metrics[0].Name)
}

func TestTestTelemetry_SpanHelpers(t *testing.T) {
	tel := NewTestTelemetry()

	tracer := tel.Tracer("test")
	_, span := tracer.Start(context.Background(), "query.answer")
	span.End()

	tel.AssertSpanExists(t, "query.answer")
	assert.Nil(t, tel.SpanByName("missing"))
	assert.Contains(t, tel.spanNames(), "query.answer")
}

func TestSetLoggerProvider(t *testing.T) {
	tel := NewTestTelemetry()

	assert.Nil(t, tel.LoggerProvider())
	tel.SetLoggerProvider(nil)
	assert.Nil(t, tel.LoggerProvider())
}
