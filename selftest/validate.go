package selftest

import (
	"fmt"
	"log/slog"
	"strings"
)

// Payload validators for the canonical diagnostic fixtures. Each checks
// the raw tool payload against its shape contract and logs the specific
// reason for any rejection. Payloads are JSON-shaped values, so numbers
// may arrive as float64 after a decode round-trip.

func asMap(value any) (map[string]any, bool) {
	m, ok := value.(map[string]any)
	return m, ok
}

func asList(value any) ([]any, bool) {
	l, ok := value.([]any)
	return l, ok
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

func nonEmptyString(value any) (string, bool) {
	s, ok := value.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// isMissing mirrors the "absent" contract for required payload fields:
// nil or an empty map both count as missing.
func isMissing(value any) bool {
	if value == nil {
		return true
	}
	if m, ok := value.(map[string]any); ok && len(m) == 0 {
		return true
	}
	return false
}

func payloadError(payload map[string]any) (string, bool) {
	errValue, ok := payload["error"]
	if !ok || errValue == nil {
		return "", false
	}
	if s, ok := errValue.(string); ok {
		if s == "" {
			return "", false
		}
		return s, true
	}
	return fmt.Sprintf("%v", errValue), true
}

func asString(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return ""
}

func validateCompanyEntry(entry any, logger *slog.Logger) bool {
	company, ok := asMap(entry)
	if !ok {
		logger.Error("invalid company entry", "reason", "entry not a map")
		return false
	}
	if _, ok := nonEmptyString(company["guid"]); !ok {
		logger.Error("invalid company entry", "reason", "missing guid/name", "company", company)
		return false
	}
	if _, ok := nonEmptyString(company["name"]); !ok {
		logger.Error("invalid company entry", "reason", "missing guid/name", "company", company)
		return false
	}
	return true
}

func domainMatches(companies []any, expected string, logger *slog.Logger) bool {
	for _, entry := range companies {
		company, ok := asMap(entry)
		if !ok {
			continue
		}
		if strings.EqualFold(asString(company["domain"]), expected) {
			return true
		}
	}
	logger.Error("expected domain missing from search results", "expected", expected)
	return false
}

// validateCompanySearchPayload checks a company-search payload: a
// non-empty companies list with guid and name per entry, a positive
// count, and, when expectedDomain is set, at least one entry whose
// domain matches it case-insensitively.
func validateCompanySearchPayload(payload any, logger *slog.Logger, expectedDomain string) bool {
	data, ok := asMap(payload)
	if !ok {
		logger.Error("invalid search response", "reason", msgNotAMap)
		return false
	}
	if apiErr, ok := payloadError(data); ok {
		logger.Error("search returned API error", "error", apiErr)
		return false
	}

	companies, ok := asList(data["companies"])
	if !ok || len(companies) == 0 {
		logger.Error("empty search response", "reason", "no companies returned")
		return false
	}
	for _, entry := range companies {
		if !validateCompanyEntry(entry, logger) {
			return false
		}
	}

	count, ok := asInt(data["count"])
	if !ok || count <= 0 {
		logger.Error("invalid search count", "count", data["count"])
		return false
	}

	if expectedDomain != "" && !domainMatches(companies, expectedDomain, logger) {
		return false
	}
	return true
}

// validateInteractiveSearchPayload checks an interactive-search payload:
// results entries carry guid, name, primary_domain, and a subscription
// map with an "active" key; count is positive; guidance is present.
func validateInteractiveSearchPayload(payload any, logger *slog.Logger) bool {
	data, ok := asMap(payload)
	if !ok {
		logger.Error("invalid interactive search response", "reason", msgNotAMap)
		return false
	}
	if apiErr, ok := payloadError(data); ok {
		logger.Error("interactive search returned API error", "error", apiErr)
		return false
	}

	results, ok := asList(data["results"])
	if !ok || len(results) == 0 {
		logger.Error("empty interactive search response", "reason", "no interactive results")
		return false
	}
	for _, entry := range results {
		result, ok := asMap(entry)
		if !ok {
			logger.Error("invalid interactive result", "reason", "entry not a map")
			return false
		}
		for _, key := range []string{"guid", "name", "primary_domain"} {
			if _, ok := nonEmptyString(result[key]); !ok {
				logger.Error("interactive result missing fields", "entry", result)
				return false
			}
		}
		subscription, ok := asMap(result["subscription"])
		if !ok {
			logger.Error("invalid interactive subscription", "subscription", result["subscription"])
			return false
		}
		if _, ok := subscription["active"]; !ok {
			logger.Error("invalid interactive subscription", "subscription", subscription)
			return false
		}
	}

	count, ok := asInt(data["count"])
	if !ok || count <= 0 {
		logger.Error("invalid interactive search count", "count", data["count"])
		return false
	}

	if _, ok := asMap(data["guidance"]); !ok {
		logger.Error("interactive search missing guidance")
		return false
	}
	return true
}

// validateRatingPayload checks a rating payload: name, domain,
// current_rating (with a non-nil value), top_findings (positive count and
// a non-empty findings list), and a legend describing the rating scale.
func validateRatingPayload(payload any, logger *slog.Logger) bool {
	data, ok := asMap(payload)
	if !ok {
		logger.Error("invalid rating response", "reason", msgNotAMap)
		return false
	}
	if apiErr, ok := payloadError(data); ok {
		logger.Error("rating returned API error", "error", apiErr)
		return false
	}

	for _, field := range []string{"name", "domain", "current_rating", "top_findings", "legend"} {
		if isMissing(data[field]) {
			logger.Error("rating payload missing field", "field", field)
			return false
		}
	}

	currentRating, ok := asMap(data["current_rating"])
	if !ok || currentRating["value"] == nil {
		logger.Error("invalid current_rating", "payload", data["current_rating"])
		return false
	}

	findings, ok := asMap(data["top_findings"])
	if !ok {
		logger.Error("invalid top_findings", "payload", data["top_findings"])
		return false
	}
	findingCount, ok := asInt(findings["count"])
	if !ok || findingCount <= 0 {
		logger.Error("rating has no findings", "count", findings["count"])
		return false
	}
	findingEntries, ok := asList(findings["findings"])
	if !ok || len(findingEntries) == 0 {
		logger.Error("rating findings list empty", "payload", findings)
		return false
	}

	legend, ok := asMap(data["legend"])
	if !ok || isMissing(legend["rating"]) {
		logger.Error("rating payload missing legend", "payload", data["legend"])
		return false
	}
	return true
}

// validateSubscriptionsPayload checks a manage-subscriptions payload:
// status is dry_run or applied, the expected guid is listed, and a
// dry_run response carries the add/remove payload it would have applied.
func validateSubscriptionsPayload(payload any, logger *slog.Logger, expectedGUID string) bool {
	data, ok := asMap(payload)
	if !ok {
		logger.Error("invalid subscriptions response", "reason", msgNotAMap)
		return false
	}
	if apiErr, ok := payloadError(data); ok {
		logger.Error("subscriptions returned API error", "error", apiErr)
		return false
	}

	status := asString(data["status"])
	if status != "dry_run" && status != "applied" {
		logger.Error("unexpected subscriptions status", "status", data["status"])
		return false
	}

	guids, ok := asList(data["guids"])
	if !ok {
		logger.Error("subscriptions guid missing", "guids", data["guids"], "expected", expectedGUID)
		return false
	}
	found := false
	for _, guid := range guids {
		if asString(guid) == expectedGUID {
			found = true
			break
		}
	}
	if !found {
		logger.Error("subscriptions guid missing", "guids", guids, "expected", expectedGUID)
		return false
	}

	if status == "dry_run" {
		dryPayload, ok := asMap(data["payload"])
		if !ok {
			logger.Error("invalid dry_run payload", "payload", data["payload"])
			return false
		}
		if _, ok := dryPayload["add"]; !ok {
			logger.Error("invalid dry_run payload", "payload", dryPayload)
			return false
		}
	}
	return true
}

// validateRequestCompanyPayload checks a company-request payload: status
// is requested or existing, and the domains list names the domain that
// was requested.
func validateRequestCompanyPayload(payload any, logger *slog.Logger, expectedDomain string) bool {
	data, ok := asMap(payload)
	if !ok {
		logger.Error("invalid request response", "reason", msgNotAMap)
		return false
	}
	if apiErr, ok := payloadError(data); ok {
		logger.Error("request returned API error", "error", apiErr)
		return false
	}

	status := asString(data["status"])
	if status != "requested" && status != "existing" {
		logger.Error("unexpected request status", "status", data["status"])
		return false
	}

	domains, ok := asList(data["domains"])
	if !ok || len(domains) == 0 {
		logger.Error("invalid request domains", "domains", data["domains"])
		return false
	}
	for _, entry := range domains {
		domain, ok := asMap(entry)
		if !ok {
			logger.Error("invalid request domain entry", "entry", entry)
			return false
		}
		name, ok := nonEmptyString(domain["domain"])
		if !ok {
			logger.Error("invalid request domain entry", "entry", domain)
			return false
		}
		if strings.EqualFold(name, expectedDomain) {
			return true
		}
	}
	logger.Error("requested domain missing from response", "expected", expectedDomain)
	return false
}
