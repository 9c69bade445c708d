package toolerr

import (
	"errors"
	"strings"
)

// interceptMarkers are the message fragments the Go and OpenSSL TLS stacks
// produce when a proxy injects a self-signed certificate into the chain.
var interceptMarkers = []string{
	"self-signed certificate in certificate chain",
	"certificate verify failed: self signed certificate in certificate chain",
	"x509: certificate signed by unknown authority",
}

// MatchesInterceptMarker reports whether err or anything in its unwrap
// chain carries a TLS interception signature.
func MatchesInterceptMarker(err error) bool {
	for current := err; current != nil; current = errors.Unwrap(current) {
		message := strings.ToLower(current.Error())
		for _, marker := range interceptMarkers {
			if strings.Contains(message, marker) {
				return true
			}
		}
	}
	return false
}

// NewTLSIntercepted creates the typed error for a TLS handshake rejected by
// an interception proxy. The message names the next step because this is
// the one failure an operator can fix without touching the backend.
func NewTLSIntercepted(tool, operation, host string) *Error {
	if host == "" {
		host = "unknown"
	}
	summary := "TLS verification failed for " + host +
		": self-signed certificate in chain (interception proxy likely)."
	nextStep := "Configure a corporate CA bundle or run with insecure TLS (testing only)."
	return New(tool, operation, CodeTLSCertChainIntercepted, summary+" "+nextStep).
		WithHost(host).
		WithHints("set RATEWATCH_CA_BUNDLE=/path/to/corp-root.pem or enable --allow-insecure-tls (testing only)")
}

// FromTransportError maps a transport error to a typed domain error when
// its chain carries a TLS interception signature. Returns nil when the
// error is something else; callers fall back to generic handling then.
func FromTransportError(err error, tool, operation, host string) *Error {
	if err == nil || !MatchesInterceptMarker(err) {
		return nil
	}
	return NewTLSIntercepted(tool, operation, host).WithCause(err)
}
