package health

import "fmt"

// Check status constants represent the outcome of one startup check.
const (
	// StatusHealthy indicates the check passed.
	StatusHealthy = "healthy"

	// StatusDegraded indicates the check passed with caveats; the system
	// is usable but running under a non-ideal condition.
	StatusDegraded = "degraded"

	// StatusUnhealthy indicates the check failed.
	StatusUnhealthy = "unhealthy"
)

// Result is the outcome of one startup check.
type Result struct {
	// Status is one of StatusHealthy, StatusDegraded, StatusUnhealthy.
	Status string `json:"status"`

	// Message is a human-readable description of the outcome.
	Message string `json:"message,omitempty"`

	// Details carries additional diagnostic context.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy reports whether the check passed cleanly.
func (r Result) IsHealthy() bool { return r.Status == StatusHealthy }

// IsDegraded reports whether the check passed with caveats.
func (r Result) IsDegraded() bool { return r.Status == StatusDegraded }

// IsUnhealthy reports whether the check failed.
func (r Result) IsUnhealthy() bool { return r.Status == StatusUnhealthy }

// Healthy creates a passing Result.
func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

// Degraded creates a passing-with-caveats Result.
func Degraded(message string, details map[string]any) Result {
	return Result{Status: StatusDegraded, Message: message, Details: details}
}

// Unhealthy creates a failing Result.
func Unhealthy(message string, details map[string]any) Result {
	return Result{Status: StatusUnhealthy, Message: message, Details: details}
}

// Combine folds several Results into one. Any unhealthy input makes the
// combined Result unhealthy; otherwise any degraded input makes it
// degraded; otherwise it is healthy.
func Combine(checks ...Result) Result {
	if len(checks) == 0 {
		return Healthy("no checks provided")
	}

	var unhealthy, degraded []string
	for _, check := range checks {
		msg := check.Message
		if msg == "" {
			msg = "unnamed check"
		}
		switch check.Status {
		case StatusUnhealthy:
			unhealthy = append(unhealthy, msg)
		case StatusDegraded:
			degraded = append(degraded, msg)
		}
	}

	if len(unhealthy) > 0 {
		return Unhealthy(
			fmt.Sprintf("%d check(s) failed", len(unhealthy)),
			map[string]any{
				"total":         len(checks),
				"failed_checks": unhealthy,
				"degraded":      len(degraded),
			},
		)
	}
	if len(degraded) > 0 {
		return Degraded(
			fmt.Sprintf("%d check(s) degraded", len(degraded)),
			map[string]any{
				"total":           len(checks),
				"degraded_checks": degraded,
			},
		)
	}
	return Healthy(fmt.Sprintf("all %d check(s) passed", len(checks)))
}
