package selftest

import (
	"context"
	"errors"
	"testing"

	"github.com/seclens/ratewatch"
)

func newTestState() *attemptState {
	return newAttemptState("standard", testLogger(), nil)
}

func TestRunContextToolDiagnosticsAllHealthy(t *testing.T) {
	st := newTestState()
	handle := handleFor(healthyTools())
	expected := ratewatch.NewToolSet(
		ratewatch.ToolCompanySearch,
		ratewatch.ToolGetCompanyRating,
	)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if !ok {
		t.Fatalf("expected success, failures: %v", st.failures)
	}
	if len(st.failures) != 0 {
		t.Errorf("failures = %v", st.failures)
	}

	// Every diagnostic in the table runs, not just the expected set.
	for _, tool := range []string{
		ratewatch.ToolCompanySearch,
		ratewatch.ToolGetCompanyRating,
		ratewatch.ToolCompanySearchInteractive,
		ratewatch.ToolManageSubscriptions,
		ratewatch.ToolRequestCompany,
	} {
		report, ok := st.tools[tool]
		if !ok {
			t.Errorf("no report for %s", tool)
			continue
		}
		if report.Status != StatusPass {
			t.Errorf("%s = %q, want pass (details: %v)", tool, report.Status, report.Details)
		}
	}
}

func TestRunContextToolDiagnosticsRequiredMissing(t *testing.T) {
	st := newTestState()
	tools := healthyTools()
	delete(tools, ratewatch.ToolGetCompanyRating)
	handle := handleFor(tools)
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if ok {
		t.Fatal("a missing required tool must fail the run")
	}

	if got := st.tools[ratewatch.ToolGetCompanyRating].Status; got != StatusFail {
		t.Errorf("missing required tool = %q, want fail", got)
	}
	if len(st.failures) != 1 || st.failures[0].Stage != StageDiscovery {
		t.Errorf("failures = %v, want one discovery failure", st.failures)
	}
}

func TestRunContextToolDiagnosticsOptionalMissing(t *testing.T) {
	st := newTestState()
	handle := handleFor(map[string]ratewatch.Tool{
		ratewatch.ToolCompanySearch:    &fakeTool{payload: goodSearchPayload()},
		ratewatch.ToolGetCompanyRating: &fakeTool{payload: goodRatingPayload()},
	})
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if !ok {
		t.Fatalf("absent optional tools must not fail the run, failures: %v", st.failures)
	}

	report := st.tools[ratewatch.ToolManageSubscriptions]
	if report.Status != StatusWarning {
		t.Errorf("absent optional tool = %q, want warning", report.Status)
	}
	if report.Details["reason"] != msgToolUnavailable {
		t.Errorf("reason = %v", report.Details["reason"])
	}
}

func TestRunContextToolDiagnosticsOptionalFailure(t *testing.T) {
	st := newTestState()
	tools := healthyTools()
	tools[ratewatch.ToolRequestCompany] = &fakeTool{err: errors.New("backend rejected")}
	handle := handleFor(tools)
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if ok {
		t.Fatal("a present optional tool that fails its diagnostic must fail the run")
	}
	if got := st.tools[ratewatch.ToolRequestCompany].Status; got != StatusWarning {
		t.Errorf("failed optional tool = %q, want warning", got)
	}
}

func TestRunContextToolDiagnosticsRequiredInvocationFailure(t *testing.T) {
	st := newTestState()
	tools := healthyTools()
	tools[ratewatch.ToolCompanySearch] = &fakeTool{err: errors.New("dial tcp: i/o timeout")}
	handle := handleFor(tools)
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if ok {
		t.Fatal("a failing required tool must fail the run")
	}

	report := st.tools[ratewatch.ToolCompanySearch]
	if report.Status != StatusFail {
		t.Errorf("status = %q, want fail", report.Status)
	}
	if report.Details["reason"] != msgDiagnosticFailed {
		t.Errorf("reason = %v, want the diagnostic verdict to overwrite probe details", report.Details["reason"])
	}

	found := false
	for _, failure := range st.failures {
		if failure.Tool == ratewatch.ToolCompanySearch && failure.Stage == StageCall {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a call-stage failure, got %v", st.failures)
	}
}

func TestRunContextToolDiagnosticsValidationFailure(t *testing.T) {
	st := newTestState()
	tools := healthyTools()
	tools[ratewatch.ToolGetCompanyRating] = &fakeTool{payload: map[string]any{"name": "GitHub"}}
	handle := handleFor(tools)
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if ok {
		t.Fatal("an invalid required payload must fail the run")
	}

	found := false
	for _, failure := range st.failures {
		if failure.Tool == ratewatch.ToolGetCompanyRating && failure.Stage == StageValidation {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a validation failure, got %v", st.failures)
	}
}

func TestRunContextToolDiagnosticsRatingDomainMismatch(t *testing.T) {
	st := newTestState()
	tools := healthyTools()
	mismatched := goodRatingPayload()
	mismatched["domain"] = "wrong-company.example"
	tools[ratewatch.ToolGetCompanyRating] = &fakeTool{payload: mismatched}
	handle := handleFor(tools)
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch, ratewatch.ToolGetCompanyRating)

	ok := runContextToolDiagnostics(context.Background(), st, handle, expected)
	if ok {
		t.Fatal("a rating for the wrong company must fail the run")
	}
	if got := st.tools[ratewatch.ToolGetCompanyRating].Details["reason"]; got != "domain mismatch" {
		t.Errorf("reason = %v", got)
	}
}

func TestCompanySearchDiagnosticRunsBothModes(t *testing.T) {
	st := newTestState()
	search := &fakeTool{payload: goodSearchPayload()}
	handle := handleFor(map[string]ratewatch.Tool{
		ratewatch.ToolCompanySearch:    search,
		ratewatch.ToolGetCompanyRating: &fakeTool{payload: goodRatingPayload()},
	})
	expected := ratewatch.NewToolSet(ratewatch.ToolCompanySearch)

	if ok := runContextToolDiagnostics(context.Background(), st, handle, expected); !ok {
		t.Fatalf("failures: %v", st.failures)
	}

	if len(search.calls) != 2 {
		t.Fatalf("expected name and domain probes, got %d calls", len(search.calls))
	}
	if _, ok := search.calls[0]["name"]; !ok {
		t.Errorf("first probe should search by name: %v", search.calls[0])
	}
	if _, ok := search.calls[1]["domain"]; !ok {
		t.Errorf("second probe should search by domain: %v", search.calls[1])
	}

	modes := st.tools[ratewatch.ToolCompanySearch].Modes
	if modes["name"].Status != StatusPass || modes["domain"].Status != StatusPass {
		t.Errorf("modes = %v", modes)
	}
}

func TestSubscriptionsDiagnosticUsesDryRun(t *testing.T) {
	st := newTestState()
	subs := &fakeTool{payload: goodSubscriptionsPayload()}
	tools := healthyTools()
	tools[ratewatch.ToolManageSubscriptions] = subs
	handle := handleFor(tools)

	if ok := runContextToolDiagnostics(context.Background(), st, handle, ratewatch.NewToolSet(ratewatch.ToolCompanySearch)); !ok {
		t.Fatalf("failures: %v", st.failures)
	}

	if len(subs.calls) != 1 {
		t.Fatalf("calls = %d", len(subs.calls))
	}
	if dryRun, ok := subs.calls[0]["dry_run"].(bool); !ok || !dryRun {
		t.Errorf("subscription probe must be a dry run: %v", subs.calls[0])
	}
}

func TestProbeContextCarriesCorrelationID(t *testing.T) {
	ctx := newProbeContext(context.Background(), "standard", ratewatch.ToolCompanySearch)
	info, ok := ProbeInfoFromContext(ctx)
	if !ok {
		t.Fatal("probe info missing from context")
	}
	if info.Context != "standard" || info.Tool != ratewatch.ToolCompanySearch {
		t.Errorf("info = %+v", info)
	}
	if info.RequestID == "" {
		t.Error("request id should be populated")
	}

	other, _ := ProbeInfoFromContext(newProbeContext(context.Background(), "standard", ratewatch.ToolCompanySearch))
	if other.RequestID == info.RequestID {
		t.Error("request ids should be unique per probe")
	}
}
