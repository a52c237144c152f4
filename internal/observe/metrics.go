// Package observe provides application-wide observability primitives for the
// MTA assistant: OpenTelemetry metrics and the Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
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

// meterName is the instrumentation scope name used for all assistant metrics.
const meterName = "github.com/KhushalM/MTA-Routing"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ModelDuration tracks LLM completion latency.
	ModelDuration metric.Float64Histogram

	// ToolCallDuration tracks end-to-end tool call latency, retries included.
	ToolCallDuration metric.Float64Histogram

	// --- Counters ---

	// ModelRequests counts model completions. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("status", ...)
	ModelRequests metric.Int64Counter

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// ToolRetries counts retried tool call attempts. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("server", ...)
	ToolRetries metric.Int64Counter

	// Turns counts completed conversation turns. Use with attribute:
	//   attribute.String("outcome", ...): "direct", "tool", or "error"
	Turns metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live chat sessions.
	ActiveSessions metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Tool calls
// and model completions routinely take whole seconds, so the range skews high.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.ModelDuration, err = m.Float64Histogram("assistant.model.duration",
		metric.WithDescription("Latency of LLM completions."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolCallDuration, err = m.Float64Histogram("assistant.tool_call.duration",
		metric.WithDescription("End-to-end latency of tool calls, retries included."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ModelRequests, err = m.Int64Counter("assistant.model.requests",
		metric.WithDescription("Total model completions by provider and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolCalls, err = m.Int64Counter("assistant.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.ToolRetries, err = m.Int64Counter("assistant.tool.retries",
		metric.WithDescription("Total retried tool call attempts by tool and server."),
	); err != nil {
		return nil, err
	}
	if met.Turns, err = m.Int64Counter("assistant.turns",
		metric.WithDescription("Total completed conversation turns by outcome."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("assistant.active_sessions",
		metric.WithDescription("Number of live chat sessions."),
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

// RecordModelRequest records one model completion with its latency.
func (m *Metrics) RecordModelRequest(ctx context.Context, provider, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("status", status),
	)
	m.ModelRequests.Add(ctx, 1, attrs)
	m.ModelDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordToolCall records one settled tool call with its end-to-end latency.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
	)
	m.ToolCalls.Add(ctx, 1, attrs)
	m.ToolCallDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordToolRetry records one retried tool call attempt.
func (m *Metrics) RecordToolRetry(ctx context.Context, tool, server string) {
	m.ToolRetries.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("server", server),
		),
	)
}

// RecordTurn records one completed conversation turn.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string) {
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
