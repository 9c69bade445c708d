package health

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/seclens/ratewatch"
)

// APIKeyCheck verifies that an API key is configured. Without one no
// backend call can succeed, so this is a hard failure.
func APIKeyCheck(key string) Result {
	if key == "" {
		return Unhealthy("API key is not configured", nil)
	}
	return Healthy("API key is configured")
}

// SchemaCheck verifies that a backend API schema document exists and
// parses as JSON.
func SchemaCheck(path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Unhealthy(
			fmt.Sprintf("schema %q is not readable", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}
	if !json.Valid(data) {
		return Unhealthy(
			fmt.Sprintf("schema %q is not valid JSON", path),
			map[string]any{"path": path},
		)
	}
	return Healthy(fmt.Sprintf("schema %q parsed", path))
}

// CABundleCheck verifies that a configured CA bundle path exists. An
// unset path is healthy: the system trust store applies.
func CABundleCheck(path string) Result {
	if path == "" {
		return Healthy("no CA bundle configured; using system trust store")
	}
	if _, err := os.Stat(path); err != nil {
		return Unhealthy(
			fmt.Sprintf("CA bundle %q does not exist", path),
			map[string]any{"path": path, "error": err.Error()},
		)
	}
	return Healthy(fmt.Sprintf("CA bundle %q exists", path))
}

// SubscriptionConfigCheck reports on the optional subscription settings.
// Unset values degrade rather than fail: subscription management tools
// simply stay unavailable without them.
func SubscriptionConfigCheck(folder, subscriptionType string) Result {
	var missing []string
	if folder == "" {
		missing = append(missing, "subscription_folder")
	}
	if subscriptionType == "" {
		missing = append(missing, "subscription_type")
	}
	if len(missing) > 0 {
		return Degraded(
			"subscription settings incomplete",
			map[string]any{"missing": missing},
		)
	}
	return Healthy("subscription settings configured")
}

// OfflineChecks runs every static-configuration check for the given
// settings and reports the combined outcome. No network calls are made.
// Extra schema document paths may be supplied when the caller ships its
// API schemas on disk.
func OfflineChecks(settings ratewatch.Settings, logger *slog.Logger, schemaPaths ...string) Result {
	checks := []Result{
		APIKeyCheck(settings.APIKey),
		CABundleCheck(settings.CABundlePath),
		SubscriptionConfigCheck(settings.SubscriptionFolder, settings.SubscriptionType),
	}
	for _, path := range schemaPaths {
		checks = append(checks, SchemaCheck(path))
	}

	combined := Combine(checks...)
	for _, check := range checks {
		if check.IsUnhealthy() {
			logger.Error("offline startup check failed",
				"message", check.Message, "details", check.Details)
		} else if check.IsDegraded() {
			logger.Warn("offline startup check degraded",
				"message", check.Message, "details", check.Details)
		}
	}
	return combined
}
