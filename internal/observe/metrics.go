// Package observe provides application-wide observability primitives for
// Scrivano: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Scrivano metrics.
const meterName = "github.com/scrivano/scrivano"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ModelCallDuration tracks the latency of one model invocation over an
	// audio window.
	ModelCallDuration metric.Float64Histogram

	// --- Counters ---

	// ModelCalls counts model invocations. Use with attribute:
	//   attribute.String("status", ...)
	ModelCalls metric.Int64Counter

	// Emissions counts transcription results delivered to clients. Use with
	// attribute:
	//   attribute.String("kind", ...) // "final" or "partial"
	Emissions metric.Int64Counter

	// QuietSkips counts analysis cycles skipped by the energy gate.
	QuietSkips metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live transcription sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for model-inference latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ModelCallDuration, err = m.Float64Histogram("scrivano.model.duration",
		metric.WithDescription("Latency of one speech-to-text model invocation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelCalls, err = m.Int64Counter("scrivano.model.calls",
		metric.WithDescription("Total model invocations by status."),
	); err != nil {
		return nil, err
	}
	if met.Emissions, err = m.Int64Counter("scrivano.emissions",
		metric.WithDescription("Total transcription results delivered, by kind."),
	); err != nil {
		return nil, err
	}
	if met.QuietSkips, err = m.Int64Counter("scrivano.quiet_skips",
		metric.WithDescription("Analysis cycles skipped by the energy gate."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("scrivano.active_sessions",
		metric.WithDescription("Number of live transcription sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("scrivano.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// SessionStarted increments the active-session gauge.
func (m *Metrics) SessionStarted(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionEnded decrements the active-session gauge.
func (m *Metrics) SessionEnded(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}

// RecordModelCall records one model invocation: its latency plus a status
// counter increment.
func (m *Metrics) RecordModelCall(ctx context.Context, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelCallDuration.Record(ctx, d.Seconds())
	m.ModelCalls.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
}

// RecordEmission records one transcription result delivered to a client.
func (m *Metrics) RecordEmission(ctx context.Context, isFinal bool) {
	kind := "partial"
	if isFinal {
		kind = "final"
	}
	m.Emissions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}
