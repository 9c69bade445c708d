package selftest

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/seclens/ratewatch"
	"github.com/seclens/ratewatch/health"
	"github.com/seclens/ratewatch/toolerr"
)

// OfflineCheckFunc validates static configuration before any context is
// evaluated. No network calls.
type OfflineCheckFunc func(ctx context.Context, settings ratewatch.Settings, logger *slog.Logger) bool

// OnlineCheckFunc verifies backend connectivity for one attempt. The
// error return is reserved for typed *toolerr.Error values; those abort
// the attempt and surface their code as a top-level alert. Any ordinary
// problem is reported through the bool.
type OnlineCheckFunc func(ctx context.Context, handle *ratewatch.ServerHandle, settings ratewatch.Settings, logger *slog.Logger) (bool, error)

// Runner executes the full self-test: the offline precondition check,
// then one context evaluation per inventory entry, folded into a single
// Result. A Runner is single-use per Run call but safe to call Run on
// repeatedly; every run starts from a clean slate.
type Runner struct {
	settings    ratewatch.Settings
	factory     ratewatch.ServerFactory
	inventory   ratewatch.Inventory
	logger      *slog.Logger
	offline     bool
	environment string
	schemaPaths []string

	offlineCheck OfflineCheckFunc
	onlineCheck  OnlineCheckFunc

	hooks *otelHooks

	alerts map[string]struct{}
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the structured logger. Defaults to a discard logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithOffline restricts the run to discovery-only checks: no tool
// invocations, no backend calls. The result is always degraded.
func WithOffline(offline bool) Option {
	return func(r *Runner) { r.offline = offline }
}

// WithEnvironment labels the run in the summary (e.g. "production").
func WithEnvironment(label string) Option {
	return func(r *Runner) { r.environment = label }
}

// WithInventory overrides the expected-tool inventory. Defaults to
// ratewatch.DefaultInventory.
func WithInventory(inventory ratewatch.Inventory) Option {
	return func(r *Runner) { r.inventory = inventory }
}

// WithSchemaPaths adds backend schema documents for the offline check to
// validate.
func WithSchemaPaths(paths ...string) Option {
	return func(r *Runner) { r.schemaPaths = append(r.schemaPaths, paths...) }
}

// WithOfflineCheck replaces the offline precondition collaborator.
func WithOfflineCheck(check OfflineCheckFunc) Option {
	return func(r *Runner) { r.offlineCheck = check }
}

// WithOnlineCheck replaces the online connectivity collaborator.
func WithOnlineCheck(check OnlineCheckFunc) Option {
	return func(r *Runner) { r.onlineCheck = check }
}

// WithOTel wires OpenTelemetry tracing and metrics into the run. Either
// provider may be nil to enable only the other.
func WithOTel(tp trace.TracerProvider, mp metric.MeterProvider) Option {
	return func(r *Runner) { r.hooks = newOTelHooks(tp, mp, r.logger) }
}

// NewRunner creates a self-test runner for the given settings and server
// factory.
func NewRunner(settings ratewatch.Settings, factory ratewatch.ServerFactory, opts ...Option) *Runner {
	r := &Runner{
		settings:  settings,
		factory:   factory,
		inventory: ratewatch.DefaultInventory(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		alerts:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.offlineCheck == nil {
		r.offlineCheck = r.defaultOfflineCheck
	}
	if r.onlineCheck == nil {
		r.onlineCheck = defaultOnlineCheck
	}
	return r
}

func (r *Runner) defaultOfflineCheck(ctx context.Context, settings ratewatch.Settings, logger *slog.Logger) bool {
	return !health.OfflineChecks(settings, logger, r.schemaPaths...).IsUnhealthy()
}

func defaultOnlineCheck(ctx context.Context, handle *ratewatch.ServerHandle, settings ratewatch.Settings, logger *slog.Logger) (bool, error) {
	var call ratewatch.ToolCaller
	if handle != nil {
		call = handle.CallV1Tool
	}
	result, err := health.OnlineChecks(ctx, call, settings, logger)
	if err != nil {
		return false, err
	}
	return !result.IsUnhealthy(), nil
}

// OfflineCheckReport is the summary section for the precondition check.
type OfflineCheckReport struct {
	Status ToolStatus `json:"status"`
}

// Summary is the machine-readable report for one full run.
type Summary struct {
	Environment    string                    `json:"environment"`
	OfflineCheck   OfflineCheckReport        `json:"offline_check"`
	Contexts       map[string]*ContextReport `json:"contexts"`
	OverallSuccess *bool                     `json:"overall_success"`
}

// Result is the terminal value of one self-test run.
type Result struct {
	Success  bool     `json:"success"`
	Degraded bool     `json:"degraded"`
	Summary  *Summary `json:"summary"`
	Contexts []string `json:"contexts"`
	Alerts   []string `json:"alerts"`
}

// ExitCode maps the result to the process exit code. A TLS-interception
// alert wins over everything, including plain failure, because it names
// the one environmental condition an operator must fix before any other
// outcome is trustworthy.
func (r *Result) ExitCode() int {
	for _, alert := range r.Alerts {
		if alert == toolerr.CodeTLSCertChainIntercepted {
			return 2
		}
	}
	if !r.Success {
		return 1
	}
	if r.Degraded {
		return 2
	}
	return 0
}

// Run executes the full self-test.
func (r *Runner) Run(ctx context.Context) *Result {
	r.alerts = make(map[string]struct{})
	started := time.Now()

	ctx, span := r.hooks.startSpan(ctx, "selftest.run",
		attribute.String("selftest.environment", r.environment),
		attribute.Bool("selftest.offline", r.offline),
	)
	defer span.End()

	contexts := r.inventory.Contexts()
	summary := &Summary{
		Environment: r.environment,
		Contexts:    make(map[string]*ContextReport),
	}

	r.logger.Info("running offline startup checks")
	if !r.offlineCheck(ctx, r.settings, r.logger) {
		r.logger.Error("offline startup checks failed")
		summary.OfflineCheck = OfflineCheckReport{Status: StatusFail}
		summary.OverallSuccess = boolPtr(false)
		result := &Result{
			Success:  false,
			Degraded: false,
			Summary:  summary,
			Contexts: contexts,
			Alerts:   r.sortedAlerts(),
		}
		r.hooks.endRun(ctx, span, result, time.Since(started))
		return result
	}
	summary.OfflineCheck = OfflineCheckReport{Status: StatusPass}

	overallSuccess := true
	degraded := r.offline

	for _, name := range contexts {
		contextResult := r.evaluateContext(ctx, name)
		summary.Contexts[name] = contextResult.Report
		if !contextResult.Success {
			overallSuccess = false
		}
		if contextResult.Degraded {
			degraded = true
		}
		r.hooks.recordContext(ctx, name, contextResult)
	}

	summary.OverallSuccess = boolPtr(overallSuccess)
	result := &Result{
		Success:  overallSuccess,
		Degraded: degraded,
		Summary:  summary,
		Contexts: contexts,
		Alerts:   r.sortedAlerts(),
	}
	r.hooks.endRun(ctx, span, result, time.Since(started))
	return result
}

func (r *Runner) sortedAlerts() []string {
	alerts := make([]string, 0, len(r.alerts))
	for code := range r.alerts {
		alerts = append(alerts, code)
	}
	sort.Strings(alerts)
	return alerts
}
