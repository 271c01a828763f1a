// Package telemetry provides request metrics and tracing for the localmcp
// server on top of OpenTelemetry.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/localrivet/localmcp"

// Metric names recorded for every inbound MCP method
const (
	MetricRequests        = "mcp.server.requests"
	MetricErrors          = "mcp.server.errors"
	MetricRequestDuration = "mcp.server.request.duration"
)

// Options configures a Collector.
type Options struct {
	// ServiceName is attached to the telemetry resource.
	ServiceName string

	// OTLPEndpoint, when set, exports spans over OTLP/HTTP. Accepts host:port or a full URL.
	OTLPEndpoint string

	// SpanExporter, when set, receives spans synchronously. Used by tests.
	SpanExporter sdktrace.SpanExporter
}

// Collector records request counts, errors and latency, and opens one span
// per request. A nil *Collector is valid and records nothing.
type Collector struct {
	reader         *sdkmetric.ManualReader
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer

	requestCounter  metric.Int64Counter
	errorCounter    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewCollector creates a Collector with its own meter and tracer providers.
func NewCollector(ctx context.Context, opts Options) (*Collector, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "localmcp"
	}

	res := resource.NewSchemaless(attribute.String("service.name", opts.ServiceName))

	traceOpts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if opts.SpanExporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithSyncer(opts.SpanExporter))
	}
	if opts.OTLPEndpoint != "" {
		exporter, err := newOTLPExporter(ctx, opts.OTLPEndpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}

	reader := sdkmetric.NewManualReader()
	c := &Collector{
		reader:         reader,
		meterProvider:  sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res)),
		tracerProvider: sdktrace.NewTracerProvider(traceOpts...),
	}
	c.tracer = c.tracerProvider.Tracer(instrumentationName)

	meter := c.meterProvider.Meter(instrumentationName)

	var err error
	if c.requestCounter, err = meter.Int64Counter(MetricRequests,
		metric.WithDescription("Total number of MCP requests"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	if c.errorCounter, err = meter.Int64Counter(MetricErrors,
		metric.WithDescription("Total number of failed MCP requests"),
		metric.WithUnit("{error}")); err != nil {
		return nil, err
	}
	if c.requestDuration, err = meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("Duration of MCP requests"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}

	return c, nil
}

func newOTLPExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	if strings.Contains(endpoint, "://") {
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	}
	return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
}

// StartRequest opens a span for method and counts the request. The returned
// function must be called exactly once with the request outcome.
func (c *Collector) StartRequest(ctx context.Context, method, requestID string) (context.Context, func(error)) {
	if c == nil {
		return ctx, func(error) {}
	}

	attrs := metric.WithAttributes(attribute.String("mcp.method", method))

	ctx, span := c.tracer.Start(ctx, "mcp."+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("mcp.method", method),
			attribute.String("mcp.request_id", requestID),
		),
	)
	c.requestCounter.Add(ctx, 1, attrs)
	start := time.Now()

	return ctx, func(err error) {
		c.requestDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		if err != nil {
			c.errorCounter.Add(ctx, 1, attrs)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// Report generates a text report of all collected metrics
func (c *Collector) Report(ctx context.Context) (string, error) {
	if c == nil {
		return "", nil
	}

	var rm metricdata.ResourceMetrics
	if err := c.reader.Collect(ctx, &rm); err != nil {
		return "", fmt.Errorf("failed to collect metrics: %w", err)
	}

	var lines []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					lines = append(lines, fmt.Sprintf("  %s{%s}: %d", m.Name, formatAttributes(dp.Attributes), dp.Value))
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					avg := 0.0
					if dp.Count > 0 {
						avg = dp.Sum / float64(dp.Count)
					}
					lines = append(lines, fmt.Sprintf("  %s{%s}: count=%d avg=%.3fms",
						m.Name, formatAttributes(dp.Attributes), dp.Count, avg))
				}
			}
		}
	}
	sort.Strings(lines)

	report := "Metrics Report:\n"
	report += "==============\n"
	for _, line := range lines {
		report += line + "\n"
	}
	return report, nil
}

func formatAttributes(set attribute.Set) string {
	parts := make([]string, 0, set.Len())
	for _, kv := range set.ToSlice() {
		parts = append(parts, string(kv.Key)+"="+kv.Value.Emit())
	}
	return strings.Join(parts, ",")
}

// Shutdown flushes pending spans and stops both providers.
func (c *Collector) Shutdown(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return errors.Join(c.tracerProvider.Shutdown(ctx), c.meterProvider.Shutdown(ctx))
}
