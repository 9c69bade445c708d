package selftest

import "log/slog"

// ToolStatus is the outcome of one tool check within a report.
type ToolStatus string

const (
	// StatusPass indicates the check succeeded.
	StatusPass ToolStatus = "pass"

	// StatusFail indicates a required check failed.
	StatusFail ToolStatus = "fail"

	// StatusWarning indicates an optional check failed, or a check that
	// was never evaluated.
	StatusWarning ToolStatus = "warning"
)

// ModeReport is the outcome of one sub-check of a tool (for example the
// name-based and domain-based search probes).
type ModeReport struct {
	Status ToolStatus `json:"status"`
	Error  string     `json:"error,omitempty"`
	Detail string     `json:"detail,omitempty"`
}

// ToolReport is the per-tool section of an attempt or aggregate report.
type ToolReport struct {
	Status  ToolStatus            `json:"status"`
	Details map[string]any        `json:"details,omitempty"`
	Modes   map[string]ModeReport `json:"modes,omitempty"`

	// Attempts maps attempt label to that attempt's report for this
	// tool. Populated only in the cross-attempt aggregate.
	Attempts map[string]*ToolReport `json:"attempts,omitempty"`
}

func (t *ToolReport) reset() {
	t.Status = StatusPass
	t.Details = nil
	t.Modes = nil
}

func (t *ToolReport) set(status ToolStatus, details map[string]any) {
	t.Status = status
	t.Details = details
}

func (t *ToolReport) setMode(mode string, report ModeReport) {
	if t.Modes == nil {
		t.Modes = make(map[string]ModeReport)
	}
	t.Modes[mode] = report
}

// DiscoveryReport lists the tools found and the expected tools absent.
type DiscoveryReport struct {
	Discovered []string `json:"discovered"`
	Missing    []string `json:"missing"`
}

// OnlineReport is the aggregated online-check section of a context report.
type OnlineReport struct {
	Status   ToolStatus            `json:"status"`
	Attempts map[string]ToolStatus `json:"attempts,omitempty"`
	Details  map[string]any        `json:"details,omitempty"`
}

// AttemptReport is the record of one diagnostic attempt. It is built up
// during the attempt and frozen once returned.
type AttemptReport struct {
	Label            string                 `json:"label"`
	Success          bool                   `json:"success"`
	Failures         []*Failure             `json:"failures"`
	Notes            []string               `json:"notes"`
	AllowInsecureTLS bool                   `json:"allow_insecure_tls"`
	CABundle         string                 `json:"ca_bundle,omitempty"`
	OnlineSuccess    *bool                  `json:"online_success"`
	DiscoveredTools  []string               `json:"discovered_tools"`
	MissingTools     []string               `json:"missing_tools"`
	Tools            map[string]*ToolReport `json:"tools"`
}

// ContextReport is the full nested report for one context.
type ContextReport struct {
	OfflineMode             bool                   `json:"offline_mode"`
	Attempts                []*AttemptReport       `json:"attempts"`
	EncounteredCategories   []string               `json:"encountered_categories"`
	FallbackAttempted       bool                   `json:"fallback_attempted"`
	FallbackSuccess         *bool                  `json:"fallback_success"`
	FailureCategories       []string               `json:"failure_categories"`
	RecoverableCategories   []string               `json:"recoverable_categories"`
	UnrecoverableCategories []string               `json:"unrecoverable_categories"`
	Notes                   []string               `json:"notes"`
	Success                 bool                   `json:"success"`
	Discovery               *DiscoveryReport       `json:"discovery,omitempty"`
	Online                  *OnlineReport          `json:"online"`
	Tools                   map[string]*ToolReport `json:"tools"`
	TLSCertChainIntercepted bool                   `json:"tls_cert_chain_intercepted,omitempty"`
}

// ContextResult is the terminal outcome for one context.
type ContextResult struct {
	Name     string
	Success  bool
	Degraded bool
	Report   *ContextReport
}

// attemptState accumulates the mutable pieces of one diagnostic attempt:
// failures, notes, and the per-tool report. It is threaded explicitly
// through every step and folded into the immutable AttemptReport at the
// end.
type attemptState struct {
	context  string
	logger   *slog.Logger
	failures []*Failure
	notes    []string
	tools    map[string]*ToolReport
}

func newAttemptState(context string, logger *slog.Logger, notes []string) *attemptState {
	st := &attemptState{
		context: context,
		logger:  logger,
		tools:   make(map[string]*ToolReport),
	}
	st.notes = append(st.notes, notes...)
	return st
}

func (st *attemptState) recordFailure(f *Failure) {
	st.failures = append(st.failures, f)
}

func (st *attemptState) addNote(note string) {
	st.notes = append(st.notes, note)
}

// toolReport returns the report entry for the named tool, creating it if
// absent.
func (st *attemptState) toolReport(name string) *ToolReport {
	if entry, ok := st.tools[name]; ok {
		return entry
	}
	entry := &ToolReport{}
	st.tools[name] = entry
	return entry
}

func boolPtr(v bool) *bool { return &v }
