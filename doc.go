// Package ratewatch provides the shared value types for the ratewatch
// self-test engine: the immutable runtime settings value, the expected-tool
// inventory, and the server handle abstraction the diagnostics run against.
//
// The engine itself lives in the selftest package. A caller supplies a
// ServerFactory that builds a live tool server for a given settings value;
// selftest.Runner then verifies, per configured context, that every expected
// tool is registered and answers its canonical diagnostic input with a
// well-formed payload.
//
// # Packages
//
//   - selftest: diagnostic orchestration, failure classification, the TLS
//     fallback protocol, and the final exit-code decision
//   - health: offline and online startup checks used as the runner's
//     default precondition and connectivity collaborators
//   - toolerr: structured domain errors with machine-readable codes,
//     including TLS interception detection
//
// # Basic usage
//
//	runner := selftest.NewRunner(settings, factory,
//	    selftest.WithLogger(logger),
//	)
//	result := runner.Run(ctx)
//	os.Exit(result.ExitCode())
package ratewatch
