package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/seclens/ratewatch"
	"github.com/seclens/ratewatch/toolerr"
)

// connectivityProbe is the cheapest authenticated backend call: a company
// search limited to a single result.
var connectivityProbe = map[string]any{"name": "github", "limit": 1}

// checkConnectivity verifies the backend answers an authenticated call.
// A typed domain error propagates; any other failure is reported as an
// issue string.
func checkConnectivity(ctx context.Context, call ratewatch.ToolCaller) (string, error) {
	if _, err := call(ctx, "companySearch", connectivityProbe); err != nil {
		var domainErr *toolerr.Error
		if errors.As(err, &domainErr) {
			return "", err
		}
		return fmt.Sprintf("connectivity probe failed: %v", err), nil
	}
	return "", nil
}

// checkSubscriptionFolder verifies the configured folder exists on the
// backend.
func checkSubscriptionFolder(ctx context.Context, call ratewatch.ToolCaller, folder string) (string, error) {
	raw, err := call(ctx, "getFolders", map[string]any{})
	if err != nil {
		var domainErr *toolerr.Error
		if errors.As(err, &domainErr) {
			return "", err
		}
		return fmt.Sprintf("failed to query folders: %v", err), nil
	}

	var names []string
	switch value := raw.(type) {
	case []any:
		names = folderNames(value)
	case map[string]any:
		if results, ok := value["results"].([]any); ok {
			names = folderNames(results)
		} else if folders, ok := value["folders"].([]any); ok {
			names = folderNames(folders)
		}
	}

	if len(names) == 0 {
		return "no folders returned from backend", nil
	}
	for _, name := range names {
		if name == folder {
			return "", nil
		}
	}
	sort.Strings(names)
	return fmt.Sprintf("folder %q not found; available: %s", folder, strings.Join(names, ", ")), nil
}

func folderNames(entries []any) []string {
	var names []string
	for _, entry := range entries {
		if m, ok := entry.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// checkSubscriptionQuota verifies the configured subscription type still
// has remaining licenses.
func checkSubscriptionQuota(ctx context.Context, call ratewatch.ToolCaller, subscriptionType string) (string, error) {
	raw, err := call(ctx, "getCompanySubscriptions", map[string]any{})
	if err != nil {
		var domainErr *toolerr.Error
		if errors.As(err, &domainErr) {
			return "", err
		}
		return fmt.Sprintf("failed to query subscriptions: %v", err), nil
	}

	data, ok := raw.(map[string]any)
	if !ok {
		return "no subscription data returned", nil
	}
	details, ok := data[subscriptionType].(map[string]any)
	if !ok {
		available := make([]string, 0, len(data))
		for key := range data {
			available = append(available, key)
		}
		if len(available) > 0 {
			sort.Strings(available)
			return fmt.Sprintf("subscription type %q not found; available types: %s",
				subscriptionType, strings.Join(available, ", ")), nil
		}
		return "no subscription data returned", nil
	}

	remaining, ok := asInt(details["remaining"])
	if !ok {
		return fmt.Sprintf("subscription %q returned unexpected remaining value: %v",
			subscriptionType, details["remaining"]), nil
	}
	if remaining <= 0 {
		return fmt.Sprintf("subscription %q has no remaining licenses", subscriptionType), nil
	}
	return "", nil
}

func asInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// OnlineChecks probes the ratings backend through call: connectivity
// first, then subscription-folder existence and quota when those settings
// are populated. The error return is non-nil only for typed domain errors
// (for example a TLS interception); ordinary failures come back as an
// unhealthy Result.
func OnlineChecks(ctx context.Context, call ratewatch.ToolCaller, settings ratewatch.Settings, logger *slog.Logger) (Result, error) {
	if settings.SkipStartupChecks {
		logger.Warn("online startup checks skipped", "reason", "skip_startup_checks set")
		return Healthy("online startup checks skipped"), nil
	}
	if call == nil {
		logger.Error("online startup checks unavailable", "reason", "no backend bridge")
		return Unhealthy("backend bridge unavailable", nil), nil
	}

	issue, err := checkConnectivity(ctx, call)
	if err != nil {
		return Result{}, err
	}
	if issue != "" {
		logger.Error("backend connectivity check failed", "issue", issue)
		return Unhealthy(issue, nil), nil
	}
	logger.Info("backend connectivity verified")

	if settings.SubscriptionFolder != "" {
		issue, err := checkSubscriptionFolder(ctx, call, settings.SubscriptionFolder)
		if err != nil {
			return Result{}, err
		}
		if issue != "" {
			logger.Error("subscription folder check failed", "issue", issue)
			return Unhealthy(issue, nil), nil
		}
		logger.Info("subscription folder verified", "folder", settings.SubscriptionFolder)
	} else {
		logger.Warn("subscription folder check skipped", "reason", "subscription_folder unset")
	}

	if settings.SubscriptionType != "" {
		issue, err := checkSubscriptionQuota(ctx, call, settings.SubscriptionType)
		if err != nil {
			return Result{}, err
		}
		if issue != "" {
			logger.Error("subscription quota check failed", "issue", issue)
			return Unhealthy(issue, nil), nil
		}
		logger.Info("subscription quota verified", "type", settings.SubscriptionType)
	} else {
		logger.Warn("subscription quota check skipped", "reason", "subscription_type unset")
	}

	return Healthy("online startup checks passed"), nil
}
