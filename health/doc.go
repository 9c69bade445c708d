// Package health implements the startup checks the self-test engine runs
// around its tool diagnostics.
//
// Offline checks validate static configuration only (API key present,
// schema documents parseable, subscription settings populated) and never
// touch the network. Online checks probe the ratings backend through a
// caller-supplied ToolCaller: API connectivity, subscription-folder
// existence, and remaining subscription quota.
//
// Each check returns a Result; Combine folds several Results into one with
// unhealthy taking precedence over degraded. Typed *toolerr.Error values
// raised by the backend propagate out of the online checks untouched so
// the caller can alert on their machine codes.
package health
