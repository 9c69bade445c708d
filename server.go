package ratewatch

import "context"

// Tool is one invocable tool exposed by a server instance. Payloads are
// JSON-shaped values (maps, slices, strings, numbers) so that diagnostic
// reports built from them serialize cleanly.
type Tool interface {
	// Name returns the tool's registered name.
	Name() string

	// Invoke calls the tool with the given arguments. The context carries
	// the correlation id and logger for this invocation.
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// ToolCaller invokes a backend v1 API operation by name. It is the bridge
// the online startup checks use; the tool name here is a backend operation
// id (e.g. "companySearch"), not a registered server tool.
type ToolCaller func(ctx context.Context, name string, params map[string]any) (any, error)

// ServerHandle is one live server instance under diagnosis. Capabilities a
// given server does not provide are left nil; the engine tolerates the
// absence of any of them.
type ServerHandle struct {
	// Registry is the synchronous tool-registry view, keyed by tool name.
	Registry map[string]Tool

	// ListTools enumerates the registered tools. Servers that only
	// materialize tools on demand provide this instead of (or in addition
	// to) Registry; discovery merges both.
	ListTools func(ctx context.Context) (map[string]Tool, error)

	// CallV1Tool bridges to the backend v1 API for the online
	// connectivity checks.
	CallV1Tool ToolCaller

	// Close releases any transport resources held by the instance.
	// Invoked best-effort after each diagnostic attempt.
	Close func() error
}

// ServerFactory builds a live server instance for the given settings.
// The self-test engine calls it once per diagnostic attempt.
type ServerFactory func(ctx context.Context, settings Settings) (*ServerHandle, error)
