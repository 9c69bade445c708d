package selftest

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"github.com/seclens/ratewatch"
	"github.com/seclens/ratewatch/toolerr"
)

// runAttempt executes one full diagnostic pass for one context under one
// TLS configuration: discovery, the online check, then the per-tool
// diagnostics. The returned AttemptReport is complete and never mutated
// afterwards.
func (r *Runner) runAttempt(ctx context.Context, contextName string, settings ratewatch.Settings, expected ratewatch.ToolSet, label string, notes []string) *AttemptReport {
	logger := r.logger.With("context", contextName, "attempt", label)
	ctx, span := r.hooks.startSpan(ctx, "selftest.attempt",
		attribute.String("selftest.context", contextName),
		attribute.String("selftest.attempt", label),
		attribute.Bool("selftest.allow_insecure_tls", settings.AllowInsecureTLS),
	)
	defer span.End()

	st := newAttemptState(contextName, logger, notes)
	logger.Info("starting diagnostics attempt",
		"allow_insecure_tls", settings.AllowInsecureTLS,
		"ca_bundle", settings.CABundlePath,
		"notes", st.notes,
	)

	handle, err := r.factory(ctx, settings)
	if err != nil {
		logger.Error("server construction failed", "error", err)
		st.recordFailure(&Failure{
			Tool:    "server",
			Stage:   StageInvoke,
			Message: "server construction failed",
			Err:     err,
		})
		report := r.finishAttempt(ctx, st, label, settings, false, nil, nil, nil)
		return report
	}
	defer closeServer(handle, logger)

	discovered := discoverTools(ctx, handle, logger)
	missing := expected.Missing(discovered)

	attemptSuccess := true
	var onlineSuccess *bool

	if len(missing) > 0 {
		r.handleMissingTools(st, expected, missing)
		attemptSuccess = false
	} else {
		logger.Info("tool discovery succeeded", "tools", discovered.Sorted())

		ok, skipToolChecks := r.runOnlineDiagnostics(ctx, st, handle, settings)
		onlineSuccess = boolPtr(ok)
		if !ok {
			attemptSuccess = false
		}
		if skipToolChecks {
			for _, tool := range expected.Sorted() {
				if _, seen := st.tools[tool]; !seen {
					st.tools[tool] = &ToolReport{
						Status:  StatusWarning,
						Details: map[string]any{"reason": msgNotEvaluated},
					}
				}
			}
		} else if !runContextToolDiagnostics(ctx, st, handle, expected) {
			attemptSuccess = false
		}
	}

	return r.finishAttempt(ctx, st, label, settings, attemptSuccess, onlineSuccess, discovered.Sorted(), missing)
}

// finishAttempt freezes the accumulated attempt state into its report.
func (r *Runner) finishAttempt(ctx context.Context, st *attemptState, label string, settings ratewatch.Settings, success bool, onlineSuccess *bool, discovered, missing []string) *AttemptReport {
	if discovered == nil {
		discovered = []string{}
	}
	if missing == nil {
		missing = []string{}
	}

	report := &AttemptReport{
		Label:            label,
		Success:          success,
		Failures:         st.failures,
		Notes:            st.notes,
		AllowInsecureTLS: settings.AllowInsecureTLS,
		CABundle:         settings.CABundlePath,
		OnlineSuccess:    onlineSuccess,
		DiscoveredTools:  discovered,
		MissingTools:     missing,
		Tools:            st.tools,
	}

	summaries := make([]map[string]any, 0, len(st.failures))
	for _, failure := range st.failures {
		summaries = append(summaries, failure.Summary())
	}
	if success {
		st.logger.Info("diagnostics attempt completed",
			"success", true, "failure_count", len(st.failures))
	} else {
		st.logger.Warn("diagnostics attempt completed",
			"success", false, "failure_count", len(st.failures), "failures", summaries)
	}

	r.hooks.recordAttempt(ctx, label, success)
	return report
}

// handleMissingTools records a discovery failure per missing tool and
// fills the per-tool report: missing tools fail, everything else is left
// unevaluated. No network calls follow.
func (r *Runner) handleMissingTools(st *attemptState, expected ratewatch.ToolSet, missing []string) {
	st.logger.Error("tool discovery failed", "missing_tools", missing)

	missingSet := ratewatch.NewToolSet(missing...)
	for _, tool := range missing {
		st.recordFailure(&Failure{
			Tool:    tool,
			Stage:   StageDiscovery,
			Message: msgExpectedToolMissing,
		})
	}
	for _, tool := range expected.Sorted() {
		if missingSet.Contains(tool) {
			st.tools[tool] = &ToolReport{
				Status:  StatusFail,
				Details: map[string]any{"reason": msgToolNotRegistered},
			}
		} else {
			st.tools[tool] = &ToolReport{
				Status:  StatusWarning,
				Details: map[string]any{"reason": msgNotEvaluated},
			}
		}
	}
}

// runOnlineDiagnostics runs the connectivity check for one attempt. The
// second return value reports whether tool diagnostics should be skipped:
// a typed domain error means the transport itself is broken, so invoking
// tools would only repeat the same failure five times.
func (r *Runner) runOnlineDiagnostics(ctx context.Context, st *attemptState, handle *ratewatch.ServerHandle, settings ratewatch.Settings) (bool, bool) {
	st.logger.Info("running online startup checks")

	ok, err := r.onlineCheck(ctx, handle, settings, st.logger)
	if err != nil {
		st.recordFailure(&Failure{
			Tool:    "startup_checks",
			Stage:   StageOnline,
			Message: msgOnlineChecksFailed,
			Err:     err,
		})
		var domainErr *toolerr.Error
		if errors.As(err, &domainErr) {
			r.alerts[domainErr.Code] = struct{}{}
			st.logger.Error("online startup checks failed",
				"reason", domainErr.Message,
				"tool", domainErr.Tool,
				"op", domainErr.Operation,
				"host", domainErr.Host,
				"code", domainErr.Code,
			)
			st.addNote(domainErr.Code)
			return false, true
		}
		st.logger.Error("online startup checks failed", "error", err)
		return false, false
	}

	if !ok {
		st.recordFailure(&Failure{
			Tool:    "startup_checks",
			Stage:   StageOnline,
			Message: msgOnlineChecksFailed,
		})
	}
	return ok, false
}

// closeServer tears down a server instance best-effort; teardown problems
// never affect the diagnostic outcome.
func closeServer(handle *ratewatch.ServerHandle, logger interface{ Warn(string, ...any) }) {
	if handle == nil || handle.Close == nil {
		return
	}
	if err := handle.Close(); err != nil {
		logger.Warn("server teardown failed", "error", err)
	}
}
