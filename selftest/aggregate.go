package selftest

import (
	"sort"

	"github.com/seclens/ratewatch"
)

// collectToolAttempts gathers one tool's report from every attempt that
// evaluated it, keyed by attempt label, along with the statuses seen.
func collectToolAttempts(tool string, attempts []*AttemptReport) (map[string]*ToolReport, []ToolStatus) {
	details := make(map[string]*ToolReport)
	var statuses []ToolStatus
	for _, attempt := range attempts {
		entry, ok := attempt.Tools[tool]
		if !ok || entry == nil {
			continue
		}
		details[attempt.Label] = entry
		if entry.Status != "" {
			statuses = append(statuses, entry.Status)
		}
	}
	return details, statuses
}

// finalToolStatus folds the statuses a tool collected across attempts:
// any pass wins, otherwise any fail, otherwise the first status seen.
func finalToolStatus(statuses []ToolStatus) ToolStatus {
	for _, status := range statuses {
		if status == StatusPass {
			return StatusPass
		}
	}
	for _, status := range statuses {
		if status == StatusFail {
			return StatusFail
		}
	}
	return statuses[0]
}

// aggregateToolOutcomes produces the final per-tool section of a context
// report from every attempt's individual tool reports.
func aggregateToolOutcomes(expected ratewatch.ToolSet, attempts []*AttemptReport) map[string]*ToolReport {
	aggregated := make(map[string]*ToolReport, len(expected))
	for _, tool := range expected.Sorted() {
		details, statuses := collectToolAttempts(tool, attempts)
		if len(statuses) == 0 {
			aggregated[tool] = &ToolReport{Status: StatusWarning}
			continue
		}
		entry := &ToolReport{Status: finalToolStatus(statuses)}
		if len(details) > 0 {
			entry.Attempts = details
		}
		aggregated[tool] = entry
	}
	return aggregated
}

// aggregateOfflineOutcomes is the offline-mode shortcut: missing tools
// fail, everything else warns, no attempts are recorded.
func aggregateOfflineOutcomes(expected ratewatch.ToolSet, missing []string) map[string]*ToolReport {
	missingSet := make(map[string]struct{}, len(missing))
	for _, tool := range missing {
		missingSet[tool] = struct{}{}
	}

	aggregated := make(map[string]*ToolReport, len(expected))
	for _, tool := range expected.Sorted() {
		if _, ok := missingSet[tool]; ok {
			aggregated[tool] = &ToolReport{
				Status:  StatusFail,
				Details: map[string]any{"reason": msgToolNotRegistered},
			}
		} else {
			aggregated[tool] = &ToolReport{
				Status:  StatusWarning,
				Details: map[string]any{"reason": msgOfflineMode},
			}
		}
	}
	return aggregated
}

// calculateOnlineStatus folds the per-attempt online-check outcomes into
// one section: any pass wins, otherwise any fail, otherwise warning
// (meaning the check was never reached).
func calculateOnlineStatus(attempts []*AttemptReport) *OnlineReport {
	perAttempt := make(map[string]ToolStatus)
	for _, attempt := range attempts {
		if attempt.OnlineSuccess == nil {
			continue
		}
		if *attempt.OnlineSuccess {
			perAttempt[attempt.Label] = StatusPass
		} else {
			perAttempt[attempt.Label] = StatusFail
		}
	}

	status := StatusWarning
	for _, s := range perAttempt {
		if s == StatusPass {
			status = StatusPass
			break
		}
		status = StatusFail
	}

	report := &OnlineReport{Status: status}
	if len(perAttempt) > 0 {
		report.Attempts = perAttempt
	}
	return report
}

// sortedCategories renders a category set as a sorted string slice,
// dropping the empty (uncategorized) marker.
func sortedCategories(categories map[Category]struct{}) []string {
	names := make([]string, 0, len(categories))
	for category := range categories {
		if category == "" {
			continue
		}
		names = append(names, string(category))
	}
	sort.Strings(names)
	return names
}

// splitCategories partitions the categories seen across all attempts into
// recoverable and unrecoverable lists.
func splitCategories(categories map[Category]struct{}) (recoverable, unrecoverable []string) {
	for category := range categories {
		if category == "" {
			continue
		}
		if category.Recoverable() {
			recoverable = append(recoverable, string(category))
		} else {
			unrecoverable = append(unrecoverable, string(category))
		}
	}
	sort.Strings(recoverable)
	sort.Strings(unrecoverable)
	return recoverable, unrecoverable
}
