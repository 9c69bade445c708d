// Package selftest implements the diagnostic engine for the ratewatch
// tool server.
//
// A Runner drives one full verification pass: an offline precondition
// check, then, for every configured context, tool discovery, an online
// connectivity check, and a canonical-input diagnostic per expected tool.
// A context whose primary attempt fails on a TLS-classified error is
// retried exactly once with certificate verification disabled; the retry
// is recorded as a separate attempt and the context's outcome is that of
// the last attempt executed.
//
// Results fold into a single Result value whose ExitCode follows a fixed
// rule: a TLS-interception alert always yields 2, otherwise failure yields
// 1, degraded success yields 2, and clean success yields 0. The exit code
// is the only automation contract; the nested report exists for humans and
// dashboards and may grow fields without notice.
package selftest
