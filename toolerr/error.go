package toolerr

import (
	"fmt"
	"strings"
)

// Machine-readable error codes carried by domain errors.
const (
	// CodeTLSCertChainIntercepted indicates a TLS handshake rejected
	// because an interception proxy injected a self-signed certificate
	// into the chain.
	CodeTLSCertChainIntercepted = "TLS_CERT_CHAIN_INTERCEPTED"

	// CodeTLSHandshake indicates any other TLS handshake failure.
	CodeTLSHandshake = "TLS_HANDSHAKE_ERROR"

	// CodeOnlineCheckFailed indicates the backend connectivity checks
	// could not be completed.
	CodeOnlineCheckFailed = "ONLINE_CHECK_FAILED"

	// CodeUnknown is the fallback for errors without a specific code.
	CodeUnknown = "UNKNOWN"
)

// Error is a structured domain error. It records which tool and backend
// operation failed, against which host, with a stable machine code.
type Error struct {
	// Tool is the server tool the failure is attributed to.
	Tool string

	// Operation is the backend operation that failed (e.g. "GET /ratings").
	Operation string

	// Host is the backend host involved, when known.
	Host string

	// Code is one of the Code* constants.
	Code string

	// Message is the human-readable description.
	Message string

	// Hints are remediation suggestions surfaced to the operator.
	Hints []string

	// Cause is the underlying error, if any.
	Cause error
}

// New creates a structured domain error.
func New(tool, operation, code, message string) *Error {
	return &Error{
		Tool:      tool,
		Operation: operation,
		Code:      code,
		Message:   message,
	}
}

// WithHost records the backend host and returns the same error for chaining.
func (e *Error) WithHost(host string) *Error {
	e.Host = host
	return e
}

// WithCause records the underlying error and returns the same error for
// chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithHints appends remediation suggestions and returns the same error for
// chaining.
func (e *Error) WithHints(hints ...string) *Error {
	e.Hints = append(e.Hints, hints...)
	return e
}

// Error formats the error as "tool [operation/code]: message: cause".
func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s [%s/%s]", e.Tool, e.Operation, e.Code))
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As
// across the chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports equality by Tool, Operation, and Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Tool == t.Tool && e.Operation == t.Operation && e.Code == t.Code
}

// LogFields returns the structured logging attributes for this error.
func (e *Error) LogFields() map[string]string {
	return map[string]string{
		"tool": e.Tool,
		"op":   e.Operation,
		"host": e.Host,
		"code": e.Code,
	}
}
