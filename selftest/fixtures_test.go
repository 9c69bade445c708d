package selftest

import (
	"context"
	"log/slog"

	"github.com/seclens/ratewatch"
)

// fakeTool is a scripted tool: it returns a fixed payload or error and
// records every invocation.
type fakeTool struct {
	name    string
	payload any
	err     error
	calls   []map[string]any
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func goodSubscriptionsPayload() map[string]any {
	return map[string]any{
		"status":  "dry_run",
		"guids":   []any{probeCompanyGUID},
		"payload": map[string]any{"add": []any{probeCompanyGUID}},
	}
}

func goodRequestPayload() map[string]any {
	return map[string]any{
		"status": "requested",
		"domains": []any{
			map[string]any{"domain": probeRequestDomain, "status": "pending"},
		},
	}
}

// healthyTools returns a full registry of scripted tools whose payloads
// satisfy every validator.
func healthyTools() map[string]ratewatch.Tool {
	return map[string]ratewatch.Tool{
		ratewatch.ToolCompanySearch:            &fakeTool{name: ratewatch.ToolCompanySearch, payload: goodSearchPayload()},
		ratewatch.ToolGetCompanyRating:         &fakeTool{name: ratewatch.ToolGetCompanyRating, payload: goodRatingPayload()},
		ratewatch.ToolCompanySearchInteractive: &fakeTool{name: ratewatch.ToolCompanySearchInteractive, payload: goodInteractivePayload()},
		ratewatch.ToolManageSubscriptions:      &fakeTool{name: ratewatch.ToolManageSubscriptions, payload: goodSubscriptionsPayload()},
		ratewatch.ToolRequestCompany:           &fakeTool{name: ratewatch.ToolRequestCompany, payload: goodRequestPayload()},
	}
}

func handleFor(tools map[string]ratewatch.Tool) *ratewatch.ServerHandle {
	return &ratewatch.ServerHandle{Registry: tools}
}

// staticFactory returns the same handle for every attempt.
func staticFactory(handle *ratewatch.ServerHandle) ratewatch.ServerFactory {
	return func(ctx context.Context, settings ratewatch.Settings) (*ratewatch.ServerHandle, error) {
		return handle, nil
	}
}

func testSettings() ratewatch.Settings {
	return ratewatch.Settings{
		APIKey:             "key-123",
		SubscriptionFolder: "vendors",
		SubscriptionType:   "continuous_monitoring",
	}
}

func passingOfflineCheck(ctx context.Context, settings ratewatch.Settings, logger *slog.Logger) bool {
	return true
}

func passingOnlineCheck(ctx context.Context, handle *ratewatch.ServerHandle, settings ratewatch.Settings, logger *slog.Logger) (bool, error) {
	return true, nil
}
