package selftest

import (
	"context"
	"strings"

	"github.com/seclens/ratewatch"
)

// Shared failure messages. Report consumers match on these, so they stay
// stable.
const (
	msgNotAMap              = "not a map"
	msgToolInvocationFailed = "tool invocation failed"
	msgUnexpectedPayload    = "unexpected payload structure"
	msgExpectedToolMissing  = "expected tool not registered"
	msgToolNotRegistered    = "tool not registered"
	msgRequiredToolMissing  = "required tool missing"
	msgToolUnavailable      = "tool not available in this configuration"
	msgDiagnosticSucceeded  = "diagnostic succeeded"
	msgDiagnosticFailed     = "diagnostic reported failure"
	msgDiagnosticWarnings   = "diagnostic reported warnings"
	msgNotEvaluated         = "not evaluated"
	msgOfflineMode          = "offline mode"
	msgOnlineChecksFailed   = "online startup checks failed"
)

// diagnosticFunc drives one tool's canonical diagnostic. It records
// failures on st and writes the tool's outcome into summary.
type diagnosticFunc func(ctx context.Context, st *attemptState, tool ratewatch.Tool, summary *ToolReport) bool

// toolDiagnostic binds a tool name to its diagnostic strategy. The table
// below is the complete, ordered set of checks an attempt runs; required
// entries gate the attempt's success, optional entries only warn when the
// tool is absent.
type toolDiagnostic struct {
	tool     string
	required bool
	run      diagnosticFunc
}

var toolDiagnostics = []toolDiagnostic{
	{ratewatch.ToolCompanySearch, true, runCompanySearchDiagnostic},
	{ratewatch.ToolGetCompanyRating, true, runRatingDiagnostic},
	{ratewatch.ToolCompanySearchInteractive, false, runInteractiveSearchDiagnostic},
	{ratewatch.ToolManageSubscriptions, false, runSubscriptionsDiagnostic},
	{ratewatch.ToolRequestCompany, false, runRequestCompanyDiagnostic},
}

// runContextToolDiagnostics runs every tool diagnostic against the server
// instance, in table order, accumulating per-tool summaries and failures
// on st. Returns false if any required tool failed, or if an optional
// tool was present but failed its diagnostic.
func runContextToolDiagnostics(ctx context.Context, st *attemptState, handle *ratewatch.ServerHandle, expected ratewatch.ToolSet) bool {
	tools := collectToolMap(ctx, handle, st.logger)
	success := true

	for name := range expected {
		if _, ok := st.tools[name]; !ok {
			st.tools[name] = &ToolReport{
				Status:  StatusWarning,
				Details: map[string]any{"reason": msgNotEvaluated},
			}
		}
	}

	for _, diag := range toolDiagnostics {
		summary := st.toolReport(diag.tool)
		var ok bool
		if diag.required {
			ok = checkRequiredTool(ctx, st, diag, tools[diag.tool], summary)
		} else {
			ok = checkOptionalTool(ctx, st, diag, tools[diag.tool], summary)
		}
		if !ok {
			success = false
		}
	}
	return success
}

// checkRequiredTool runs a required tool's diagnostic. A missing required
// tool is a discovery failure; any diagnostic outcome other than a clean
// pass fails the check.
func checkRequiredTool(ctx context.Context, st *attemptState, diag toolDiagnostic, tool ratewatch.Tool, summary *ToolReport) bool {
	if tool == nil {
		st.recordFailure(&Failure{
			Tool:    diag.tool,
			Stage:   StageDiscovery,
			Message: msgRequiredToolMissing,
		})
		summary.set(StatusFail, map[string]any{"reason": "required tool not registered"})
		st.logger.Error("required tool missing", "tool", diag.tool)
		return false
	}

	ok := diag.run(ctx, st, tool, summary)
	if ok {
		summary.set(StatusPass, map[string]any{"reason": msgDiagnosticSucceeded})
	} else {
		summary.set(StatusFail, map[string]any{"reason": msgDiagnosticFailed})
	}
	return ok
}

// checkOptionalTool runs an optional tool's diagnostic. Absence is not an
// error (the tool simply is not part of this configuration), but a
// present tool that fails its diagnostic propagates as a failure.
func checkOptionalTool(ctx context.Context, st *attemptState, diag toolDiagnostic, tool ratewatch.Tool, summary *ToolReport) bool {
	if tool == nil {
		summary.set(StatusWarning, map[string]any{"reason": msgToolUnavailable})
		return true
	}

	ok := diag.run(ctx, st, tool, summary)
	if ok {
		summary.set(StatusPass, map[string]any{"reason": msgDiagnosticSucceeded})
	} else {
		summary.set(StatusWarning, map[string]any{"reason": msgDiagnosticWarnings})
	}
	return ok
}

func runCompanySearchDiagnostic(ctx context.Context, st *attemptState, tool ratewatch.Tool, summary *ToolReport) bool {
	logger := st.logger.With("tool", ratewatch.ToolCompanySearch)
	pctx := newProbeContext(ctx, st.context, ratewatch.ToolCompanySearch)
	summary.reset()

	byName, err := tool.Invoke(pctx, map[string]any{"name": probeCompanyName})
	if err != nil {
		logger.Error("company search call failed", "mode", "name", "error", err)
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolCompanySearch,
			Stage:   StageCall,
			Mode:    "name",
			Message: msgToolInvocationFailed,
			Err:     err,
		})
		summary.set(StatusFail, map[string]any{
			"reason": msgToolInvocationFailed,
			"mode":   "name",
			"error":  err.Error(),
		})
		return false
	}
	if !validateCompanySearchPayload(byName, logger, "") {
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolCompanySearch,
			Stage:   StageValidation,
			Mode:    "name",
			Message: msgUnexpectedPayload,
		})
		summary.set(StatusFail, map[string]any{
			"reason": msgUnexpectedPayload,
			"mode":   "name",
		})
		return false
	}
	summary.setMode("name", ModeReport{Status: StatusPass})

	byDomain, err := tool.Invoke(pctx, map[string]any{"domain": probeCompanyDomain})
	if err != nil {
		logger.Error("company search call failed", "mode", "domain", "error", err)
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolCompanySearch,
			Stage:   StageCall,
			Mode:    "domain",
			Message: msgToolInvocationFailed,
			Err:     err,
		})
		summary.set(StatusFail, map[string]any{
			"reason": msgToolInvocationFailed,
			"mode":   "domain",
			"error":  err.Error(),
		})
		summary.setMode("domain", ModeReport{Status: StatusFail, Error: err.Error()})
		return false
	}
	if !validateCompanySearchPayload(byDomain, logger, probeCompanyDomain) {
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolCompanySearch,
			Stage:   StageValidation,
			Mode:    "domain",
			Message: msgUnexpectedPayload,
		})
		summary.set(StatusFail, map[string]any{
			"reason": msgUnexpectedPayload,
			"mode":   "domain",
		})
		summary.setMode("domain", ModeReport{Status: StatusFail, Detail: msgUnexpectedPayload})
		return false
	}
	summary.setMode("domain", ModeReport{Status: StatusPass})

	logger.Info("company search diagnostic passed")
	return true
}

func runRatingDiagnostic(ctx context.Context, st *attemptState, tool ratewatch.Tool, summary *ToolReport) bool {
	logger := st.logger.With("tool", ratewatch.ToolGetCompanyRating)
	pctx := newProbeContext(ctx, st.context, ratewatch.ToolGetCompanyRating)
	summary.reset()

	payload, err := tool.Invoke(pctx, map[string]any{"guid": probeCompanyGUID})
	if err != nil {
		logger.Error("rating call failed", "error", err)
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolGetCompanyRating,
			Stage:   StageCall,
			Message: msgToolInvocationFailed,
			Err:     err,
		})
		summary.set(StatusFail, map[string]any{
			"reason": msgToolInvocationFailed,
			"error":  err.Error(),
		})
		return false
	}
	if !validateRatingPayload(payload, logger) {
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolGetCompanyRating,
			Stage:   StageValidation,
			Message: msgUnexpectedPayload,
		})
		summary.set(StatusFail, map[string]any{"reason": msgUnexpectedPayload})
		return false
	}

	// The fixture guid has a known domain; a mismatch means the backend
	// answered for the wrong company.
	if data, ok := asMap(payload); ok {
		if domain, ok := nonEmptyString(data["domain"]); ok && !strings.EqualFold(domain, probeCompanyDomain) {
			logger.Error("rating domain mismatch", "domain", domain, "expected", probeCompanyDomain)
			st.recordFailure(&Failure{
				Tool:    ratewatch.ToolGetCompanyRating,
				Stage:   StageValidation,
				Message: "domain mismatch",
			})
			summary.set(StatusFail, map[string]any{
				"reason": "domain mismatch",
				"domain": domain,
			})
			return false
		}
	}

	logger.Info("rating diagnostic passed")
	return true
}

func runInteractiveSearchDiagnostic(ctx context.Context, st *attemptState, tool ratewatch.Tool, summary *ToolReport) bool {
	logger := st.logger.With("tool", ratewatch.ToolCompanySearchInteractive)
	pctx := newProbeContext(ctx, st.context, ratewatch.ToolCompanySearchInteractive)
	summary.reset()

	payload, err := tool.Invoke(pctx, map[string]any{"name": probeCompanyName})
	if err != nil {
		logger.Warn("interactive search call failed", "error", err)
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolCompanySearchInteractive,
			Stage:   StageCall,
			Message: msgToolInvocationFailed,
			Err:     err,
		})
		summary.set(StatusWarning, map[string]any{
			"reason": msgToolInvocationFailed,
			"error":  err.Error(),
		})
		return false
	}
	if !validateInteractiveSearchPayload(payload, logger) {
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolCompanySearchInteractive,
			Stage:   StageValidation,
			Message: msgUnexpectedPayload,
		})
		summary.set(StatusWarning, map[string]any{"reason": msgUnexpectedPayload})
		return false
	}

	logger.Info("interactive search diagnostic passed")
	return true
}

func runSubscriptionsDiagnostic(ctx context.Context, st *attemptState, tool ratewatch.Tool, summary *ToolReport) bool {
	logger := st.logger.With("tool", ratewatch.ToolManageSubscriptions)
	pctx := newProbeContext(ctx, st.context, ratewatch.ToolManageSubscriptions)
	summary.reset()

	// dry_run keeps the probe free of side effects on the real
	// subscription pool.
	payload, err := tool.Invoke(pctx, map[string]any{
		"name":    probeCompanyName,
		"guids":   []any{probeCompanyGUID},
		"dry_run": true,
	})
	if err != nil {
		logger.Warn("subscriptions call failed", "error", err)
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolManageSubscriptions,
			Stage:   StageCall,
			Message: msgToolInvocationFailed,
			Err:     err,
		})
		summary.set(StatusWarning, map[string]any{
			"reason": msgToolInvocationFailed,
			"error":  err.Error(),
		})
		return false
	}
	if !validateSubscriptionsPayload(payload, logger, probeCompanyGUID) {
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolManageSubscriptions,
			Stage:   StageValidation,
			Message: msgUnexpectedPayload,
		})
		summary.set(StatusWarning, map[string]any{"reason": msgUnexpectedPayload})
		return false
	}

	logger.Info("subscriptions diagnostic passed")
	return true
}

func runRequestCompanyDiagnostic(ctx context.Context, st *attemptState, tool ratewatch.Tool, summary *ToolReport) bool {
	logger := st.logger.With("tool", ratewatch.ToolRequestCompany)
	pctx := newProbeContext(ctx, st.context, ratewatch.ToolRequestCompany)
	summary.reset()

	payload, err := tool.Invoke(pctx, map[string]any{
		"name":   probeCompanyName,
		"domain": probeRequestDomain,
	})
	if err != nil {
		logger.Warn("request company call failed", "error", err)
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolRequestCompany,
			Stage:   StageCall,
			Message: msgToolInvocationFailed,
			Err:     err,
		})
		summary.set(StatusWarning, map[string]any{
			"reason": msgToolInvocationFailed,
			"error":  err.Error(),
		})
		return false
	}
	if !validateRequestCompanyPayload(payload, logger, probeRequestDomain) {
		st.recordFailure(&Failure{
			Tool:    ratewatch.ToolRequestCompany,
			Stage:   StageValidation,
			Message: msgUnexpectedPayload,
		})
		summary.set(StatusWarning, map[string]any{"reason": msgUnexpectedPayload})
		return false
	}

	logger.Info("request company diagnostic passed")
	return true
}
