package selftest

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// otelHooks carries the optional tracing and metric instrumentation for a
// runner. A nil *otelHooks is fully functional: every method degrades to a
// no-op, so the run path never branches on whether telemetry is wired.
type otelHooks struct {
	tracer trace.Tracer
	logger *slog.Logger

	runDuration    metric.Float64Histogram
	contextCounter metric.Int64Counter
	attemptCounter metric.Int64Counter
}

const instrumentationName = "github.com/seclens/ratewatch/selftest"

// newOTelHooks builds the instrumentation set from the given providers.
// Either provider may be nil; instrument-creation failures are logged and
// leave the affected instrument disabled rather than failing the runner.
func newOTelHooks(tp trace.TracerProvider, mp metric.MeterProvider, logger *slog.Logger) *otelHooks {
	if tp == nil && mp == nil {
		return nil
	}

	h := &otelHooks{logger: logger}
	if tp != nil {
		h.tracer = tp.Tracer(instrumentationName)
	}
	if mp != nil {
		meter := mp.Meter(instrumentationName)
		var err error

		h.runDuration, err = meter.Float64Histogram(
			"selftest.run.duration",
			metric.WithDescription("Self-test run duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			h.warn("create run duration histogram", err)
		}

		h.contextCounter, err = meter.Int64Counter(
			"selftest.context.count",
			metric.WithDescription("Number of context evaluations performed"),
			metric.WithUnit("1"),
		)
		if err != nil {
			h.warn("create context counter", err)
		}

		h.attemptCounter, err = meter.Int64Counter(
			"selftest.attempt.count",
			metric.WithDescription("Number of diagnostic attempts performed"),
			metric.WithUnit("1"),
		)
		if err != nil {
			h.warn("create attempt counter", err)
		}
	}
	return h
}

func (h *otelHooks) warn(op string, err error) {
	if h.logger != nil {
		h.logger.Warn("otel instrumentation disabled", "op", op, "error", err)
	}
}

// startSpan opens a span when a tracer is configured. Without one it
// returns the span already on the context, which is a no-op span when none
// is present, so callers can always defer span.End().
func (h *otelHooks) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if h == nil || h.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return h.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endRun stamps the run span with the terminal outcome and records the run
// duration.
func (h *otelHooks) endRun(ctx context.Context, span trace.Span, result *Result, elapsed time.Duration) {
	if h == nil {
		return
	}

	if span != nil {
		span.SetAttributes(
			attribute.Bool("selftest.success", result.Success),
			attribute.Bool("selftest.degraded", result.Degraded),
			attribute.Int("selftest.exit_code", result.ExitCode()),
			attribute.StringSlice("selftest.alerts", result.Alerts),
		)
		if result.Success {
			span.SetStatus(codes.Ok, "self-test passed")
		} else {
			span.SetStatus(codes.Error, "self-test failed")
		}
	}

	if h.runDuration != nil {
		h.runDuration.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(
			attribute.Bool("success", result.Success),
			attribute.Bool("degraded", result.Degraded),
		))
	}
}

// recordContext counts one context evaluation.
func (h *otelHooks) recordContext(ctx context.Context, name string, result ContextResult) {
	if h == nil || h.contextCounter == nil {
		return
	}
	h.contextCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("context", name),
		attribute.Bool("success", result.Success),
		attribute.Bool("degraded", result.Degraded),
	))
}

// recordAttempt counts one diagnostic attempt.
func (h *otelHooks) recordAttempt(ctx context.Context, label string, success bool) {
	if h == nil || h.attemptCounter == nil {
		return
	}
	h.attemptCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("attempt", label),
		attribute.Bool("success", success),
	))
}
