package http

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fivetwenty-io/flanks-go/pkg/flanks"
)

const instrumentationName = "github.com/fivetwenty-io/flanks-go"

// telemetry records a span per API call and counters for attempts, errors and
// token refreshes.
type telemetry struct {
	tracer       trace.Tracer
	attempts     metric.Int64Counter
	errors       metric.Int64Counter
	refreshes    metric.Int64Counter
	durationHist metric.Float64Histogram
}

func newTelemetry(tp trace.TracerProvider, mp metric.MeterProvider) *telemetry {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	if mp == nil {
		mp = otel.GetMeterProvider()
	}

	meter := mp.Meter(instrumentationName)

	// Instrument creation only fails for invalid names; the returned instruments
	// are still usable no-ops in that case.
	attempts, _ := meter.Int64Counter(
		"flanks.client.attempts",
		metric.WithDescription("HTTP attempts sent to the Flanks API, including retries"),
		metric.WithUnit("{attempt}"),
	)

	errorCount, _ := meter.Int64Counter(
		"flanks.client.errors",
		metric.WithDescription("Failed API calls by error kind"),
		metric.WithUnit("{error}"),
	)

	refreshes, _ := meter.Int64Counter(
		"flanks.client.token_refreshes",
		metric.WithDescription("Client-credentials token exchanges"),
		metric.WithUnit("{refresh}"),
	)

	durationHist, _ := meter.Float64Histogram(
		"flanks.client.call.duration_ms",
		metric.WithDescription("API call duration in milliseconds, including retries"),
		metric.WithUnit("ms"),
	)

	return &telemetry{
		tracer:       tp.Tracer(instrumentationName),
		attempts:     attempts,
		errors:       errorCount,
		refreshes:    refreshes,
		durationHist: durationHist,
	}
}

func (t *telemetry) startCall(ctx context.Context, method, path string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "flanks "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		),
	)
}

func (t *telemetry) endCall(ctx context.Context, span trace.Span, method, path string, started time.Time, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	}

	if err != nil {
		kind := flanks.KindOf(err)
		errAttrs := append(attrs, attribute.String("flanks.error.kind", kind.String()))

		t.errors.Add(ctx, 1, metric.WithAttributes(errAttrs...))

		if status := flanks.StatusCode(err); status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}

		span.SetAttributes(attribute.String("flanks.error.kind", kind.String()))
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	t.durationHist.Record(ctx, float64(time.Since(started).Milliseconds()), metric.WithAttributes(attrs...))
	span.End()
}

func (t *telemetry) recordAttempt(ctx context.Context, method, path string, attempt int) {
	t.attempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	))

	if attempt > 1 {
		trace.SpanFromContext(ctx).AddEvent("retry", trace.WithAttributes(attribute.Int("attempt", attempt)))
	}
}

func (t *telemetry) recordRefresh(ctx context.Context, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}

	t.refreshes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
