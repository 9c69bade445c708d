package health

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/seclens/ratewatch"
	"github.com/seclens/ratewatch/toolerr"
)

// fakeBackend answers v1 API calls from canned responses keyed by tool name.
type fakeBackend struct {
	responses map[string]any
	errs      map[string]error
	calls     []string
}

func (f *fakeBackend) call(ctx context.Context, name string, params map[string]any) (any, error) {
	f.calls = append(f.calls, name)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return f.responses[name], nil
}

func healthyBackend() *fakeBackend {
	return &fakeBackend{
		responses: map[string]any{
			"companySearch": map[string]any{"results": []any{}},
			"getFolders": []any{
				map[string]any{"name": "vendors"},
				map[string]any{"name": "watchlist"},
			},
			"getCompanySubscriptions": map[string]any{
				"continuous_monitoring": map[string]any{"remaining": 5},
			},
		},
	}
}

func onlineSettings() ratewatch.Settings {
	return ratewatch.Settings{
		APIKey:             "key-123",
		SubscriptionFolder: "vendors",
		SubscriptionType:   "continuous_monitoring",
	}
}

func TestOnlineChecksPass(t *testing.T) {
	backend := healthyBackend()
	result, err := OnlineChecks(context.Background(), backend.call, onlineSettings(), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsHealthy() {
		t.Errorf("status = %q, want healthy", result.Status)
	}
	if len(backend.calls) != 3 {
		t.Errorf("expected 3 backend calls, got %v", backend.calls)
	}
}

func TestOnlineChecksSkipped(t *testing.T) {
	settings := onlineSettings()
	settings.SkipStartupChecks = true

	backend := healthyBackend()
	result, err := OnlineChecks(context.Background(), backend.call, settings, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsHealthy() {
		t.Errorf("status = %q", result.Status)
	}
	if len(backend.calls) != 0 {
		t.Errorf("skip should make no backend calls, got %v", backend.calls)
	}
}

func TestOnlineChecksNilBridge(t *testing.T) {
	result, err := OnlineChecks(context.Background(), nil, onlineSettings(), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsUnhealthy() {
		t.Errorf("status = %q, want unhealthy", result.Status)
	}
}

func TestOnlineChecksConnectivityFailure(t *testing.T) {
	backend := healthyBackend()
	backend.errs = map[string]error{"companySearch": errors.New("i/o timeout")}

	result, err := OnlineChecks(context.Background(), backend.call, onlineSettings(), discardLogger())
	if err != nil {
		t.Fatalf("plain errors should not propagate, got %v", err)
	}
	if !result.IsUnhealthy() {
		t.Errorf("status = %q, want unhealthy", result.Status)
	}
}

func TestOnlineChecksDomainErrorPropagates(t *testing.T) {
	backend := healthyBackend()
	backend.errs = map[string]error{
		"companySearch": toolerr.NewTLSIntercepted("company_search", "companySearch", "api.example.com"),
	}

	_, err := OnlineChecks(context.Background(), backend.call, onlineSettings(), discardLogger())
	var domainErr *toolerr.Error
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected a typed error, got %v", err)
	}
	if domainErr.Code != toolerr.CodeTLSCertChainIntercepted {
		t.Errorf("Code = %q", domainErr.Code)
	}
}

func TestOnlineChecksFolderMissing(t *testing.T) {
	settings := onlineSettings()
	settings.SubscriptionFolder = "nonexistent"

	backend := healthyBackend()
	result, err := OnlineChecks(context.Background(), backend.call, settings, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsUnhealthy() {
		t.Fatalf("status = %q, want unhealthy", result.Status)
	}
	if !strings.Contains(result.Message, "nonexistent") {
		t.Errorf("message should name the folder: %q", result.Message)
	}
	if !strings.Contains(result.Message, "vendors") {
		t.Errorf("message should list available folders: %q", result.Message)
	}
}

func TestOnlineChecksFoldersUnderResultsKey(t *testing.T) {
	backend := healthyBackend()
	backend.responses["getFolders"] = map[string]any{
		"results": []any{map[string]any{"name": "vendors"}},
	}

	result, err := OnlineChecks(context.Background(), backend.call, onlineSettings(), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsHealthy() {
		t.Errorf("status = %q", result.Status)
	}
}

func TestOnlineChecksQuotaExhausted(t *testing.T) {
	backend := healthyBackend()
	backend.responses["getCompanySubscriptions"] = map[string]any{
		"continuous_monitoring": map[string]any{"remaining": 0},
	}

	result, err := OnlineChecks(context.Background(), backend.call, onlineSettings(), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsUnhealthy() {
		t.Errorf("status = %q, want unhealthy", result.Status)
	}
}

func TestOnlineChecksQuotaUnknownType(t *testing.T) {
	settings := onlineSettings()
	settings.SubscriptionType = "alerts_only"

	backend := healthyBackend()
	result, err := OnlineChecks(context.Background(), backend.call, settings, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsUnhealthy() {
		t.Fatalf("status = %q, want unhealthy", result.Status)
	}
	if !strings.Contains(result.Message, "continuous_monitoring") {
		t.Errorf("message should list available types: %q", result.Message)
	}
}

func TestOnlineChecksUnsetOptionalSettings(t *testing.T) {
	settings := onlineSettings()
	settings.SubscriptionFolder = ""
	settings.SubscriptionType = ""

	backend := healthyBackend()
	result, err := OnlineChecks(context.Background(), backend.call, settings, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsHealthy() {
		t.Errorf("status = %q", result.Status)
	}
	if len(backend.calls) != 1 {
		t.Errorf("only the connectivity probe should run, got %v", backend.calls)
	}
}

func TestOnlineChecksQuotaFloatRemaining(t *testing.T) {
	backend := healthyBackend()
	backend.responses["getCompanySubscriptions"] = map[string]any{
		"continuous_monitoring": map[string]any{"remaining": float64(3)},
	}

	result, err := OnlineChecks(context.Background(), backend.call, onlineSettings(), discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsHealthy() {
		t.Errorf("JSON-decoded float remaining should pass, status = %q", result.Status)
	}
}
