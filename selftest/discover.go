package selftest

import (
	"context"
	"log/slog"

	"github.com/seclens/ratewatch"
)

// discoverTools enumerates the tool names registered on a server
// instance, merging the synchronous registry view with the enumeration
// call when either is present. Discovery never fails: absent capabilities
// contribute nothing and enumeration errors are logged and dropped.
func discoverTools(ctx context.Context, handle *ratewatch.ServerHandle, logger *slog.Logger) ratewatch.ToolSet {
	names := make(ratewatch.ToolSet)
	for name := range collectToolMap(ctx, handle, logger) {
		names[name] = struct{}{}
	}
	return names
}

// collectToolMap gathers every reachable tool handle by name. Entries from
// the enumeration call overwrite registry entries of the same name, so a
// server that materializes tools lazily wins over its static view.
func collectToolMap(ctx context.Context, handle *ratewatch.ServerHandle, logger *slog.Logger) map[string]ratewatch.Tool {
	tools := make(map[string]ratewatch.Tool)
	if handle == nil {
		return tools
	}

	for name, tool := range handle.Registry {
		if name == "" || tool == nil {
			continue
		}
		tools[name] = tool
	}

	if handle.ListTools != nil {
		listed, err := handle.ListTools(ctx)
		if err != nil {
			logger.Warn("tool enumeration failed", "error", err)
		} else {
			for name, tool := range listed {
				if name == "" || tool == nil {
					continue
				}
				tools[name] = tool
			}
		}
	}
	return tools
}
