package selftest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Canonical fixture inputs for the diagnostic probes. The company is one
// with a stable, well-known backend record so validators can enforce a
// known answer; the request domain is a placeholder that the backend
// treats as a fresh request without side effects.
const (
	probeCompanyName   = "GitHub"
	probeCompanyDomain = "github.com"
	probeCompanyGUID   = "6ca077e2-b5a7-42c2-ae1e-a974c3a91dc1"
	probeRequestDomain = "healthcheck-ratewatch-example.com"
)

// ProbeInfo identifies one diagnostic tool invocation. Server and tool
// implementations can pull it from the invocation context to tag logs and
// backend calls with the correlation id.
type ProbeInfo struct {
	// RequestID is unique per invocation.
	RequestID string

	// Context is the context profile under diagnosis.
	Context string

	// Tool is the tool being probed.
	Tool string
}

type probeContextKey struct{}

// newProbeContext derives an invocation context carrying a fresh
// correlation id for one tool probe.
func newProbeContext(ctx context.Context, contextName, tool string) context.Context {
	info := ProbeInfo{
		RequestID: fmt.Sprintf("selftest-%s-%s-%s", contextName, tool, uuid.NewString()),
		Context:   contextName,
		Tool:      tool,
	}
	return context.WithValue(ctx, probeContextKey{}, info)
}

// ProbeInfoFromContext extracts the probe metadata from an invocation
// context, if present.
func ProbeInfoFromContext(ctx context.Context) (ProbeInfo, bool) {
	info, ok := ctx.Value(probeContextKey{}).(ProbeInfo)
	return info, ok
}
