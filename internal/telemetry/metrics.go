package telemetry

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName = "github.com/wolfeidau/spabundle"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram

	// Output metrics
	OutputBytesTotal   metric.Int64Counter
	AssetsInlinedTotal metric.Int64Counter
	AssetsEmittedTotal metric.Int64Counter

	// Dev server metrics
	RequestsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = newMetrics(otel.GetMeterProvider().Meter(instrumentationName))
	})
	return metrics
}

// Tracer returns the tracer used for build spans.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// newMetrics creates and registers all metric instruments
func newMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"spabundle.builds.total",
		metric.WithDescription("Total number of bundle builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"spabundle.builds.errors.total",
		metric.WithDescription("Total number of failed bundle builds"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"spabundle.builds.duration",
		metric.WithDescription("Duration of bundle builds"),
		metric.WithUnit("ms"),
	)

	m.OutputBytesTotal, _ = meter.Int64Counter(
		"spabundle.outputs.bytes.total",
		metric.WithDescription("Total bytes written to the output directory"),
		metric.WithUnit("By"),
	)

	m.AssetsInlinedTotal, _ = meter.Int64Counter(
		"spabundle.assets.inlined.total",
		metric.WithDescription("Total number of assets inlined as data URLs"),
		metric.WithUnit("{asset}"),
	)

	m.AssetsEmittedTotal, _ = meter.Int64Counter(
		"spabundle.assets.emitted.total",
		metric.WithDescription("Total number of assets emitted as separate files"),
		metric.WithUnit("{asset}"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"spabundle.devserver.requests.total",
		metric.WithDescription("Total number of requests served by the development server"),
		metric.WithUnit("{request}"),
	)

	return m
}

// RecordBuild records a finished build and its outcome.
func (m *Metrics) RecordBuild(ctx context.Context, d time.Duration, ok bool) {
	attrs := metric.WithAttributes(attribute.Bool("success", ok))
	m.BuildsTotal.Add(ctx, 1, attrs)
	if !ok {
		m.BuildErrorsTotal.Add(ctx, 1)
	}
	m.BuildDuration.Record(ctx, float64(d.Milliseconds()), attrs)
}

// RecordOutputs records the size of a build's outputs and how its assets were handled.
func (m *Metrics) RecordOutputs(ctx context.Context, bytes int64, inlined, emitted int) {
	m.OutputBytesTotal.Add(ctx, bytes)
	m.AssetsInlinedTotal.Add(ctx, int64(inlined))
	m.AssetsEmittedTotal.Add(ctx, int64(emitted))
}

// RecordRequest records a request served by the development server.
func (m *Metrics) RecordRequest(ctx context.Context, method string, status int) {
	m.RequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", strconv.Itoa(status)),
	))
}
