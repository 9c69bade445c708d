package selftest

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"syscall"

	"github.com/seclens/ratewatch/toolerr"
)

// Stage identifies where in a diagnostic attempt a failure occurred.
type Stage string

const (
	// StageDiscovery marks a tool absent from the server's registry.
	StageDiscovery Stage = "discovery"

	// StageCall marks a tool invocation that returned an error.
	StageCall Stage = "call"

	// StageValidation marks a payload that failed its shape contract.
	StageValidation Stage = "validation"

	// StageInvoke marks an unexpected error while driving a diagnostic.
	StageInvoke Stage = "invoke"

	// StageOnline marks a failed connectivity or backend check.
	StageOnline Stage = "online"
)

// Category classifies a failure for recovery decisions.
type Category string

const (
	// CategoryTLS covers certificate-verification failures. The only
	// category that triggers the automated insecure-TLS retry.
	CategoryTLS Category = "tls"

	// CategoryCABundle covers a configured CA bundle that cannot be
	// found on disk. Reported but never auto-repaired here; settings
	// resolution drops the bundle upstream.
	CategoryCABundle Category = "config.ca_bundle"
)

// Recoverable reports whether the category is one the engine knows how to
// work around.
func (c Category) Recoverable() bool {
	return c == CategoryTLS || c == CategoryCABundle
}

// Failure records one failed check. Category is assigned at most once, by
// Classify; everything else is set at creation and never changes.
type Failure struct {
	Tool    string
	Stage   Stage
	Message string

	// Mode distinguishes sub-checks of one tool (e.g. the name-based vs
	// domain-based search probe). Empty when the tool has only one mode.
	Mode string

	// Err is the underlying error for call/invoke/online failures; nil
	// for discovery and validation failures.
	Err error

	category   Category
	classified bool
}

// Category returns the classified category, or empty if Classify has not
// run or found no match.
func (f *Failure) Category() Category {
	return f.category
}

// Classify assigns the failure's category and returns it. Idempotent: the
// first call decides, later calls return the stored value.
func Classify(f *Failure) Category {
	if f.classified {
		return f.category
	}
	f.classified = true
	f.category = classify(f)
	return f.category
}

func classify(f *Failure) Category {
	if f.Err == nil {
		if containsAny(strings.ToLower(f.Message), "ssl", "tls", "certificate") {
			return CategoryTLS
		}
		return ""
	}
	if isTLSError(f.Err) {
		return CategoryTLS
	}
	if isMissingCABundleError(f.Err) {
		return CategoryCABundle
	}
	return ""
}

// isTLSError reports whether err is a certificate-verification failure:
// a typed domain error, a TLS/x509 library error anywhere in the chain,
// or a transport error whose message names TLS.
func isTLSError(err error) bool {
	var domainErr *toolerr.Error
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case toolerr.CodeTLSCertChainIntercepted, toolerr.CodeTLSHandshake:
			return true
		}
	}

	var certVerify *tls.CertificateVerificationError
	if errors.As(err, &certVerify) {
		return true
	}
	var recordHeader tls.RecordHeaderError
	if errors.As(err, &recordHeader) {
		return true
	}
	var unknownAuthority x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthority) {
		return true
	}
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certInvalid) {
		return true
	}
	var hostname x509.HostnameError
	if errors.As(err, &hostname) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return containsAny(strings.ToLower(urlErr.Error()), "ssl", "tls", "certificate")
	}
	return false
}

// isMissingCABundleError reports whether err describes a CA bundle path
// that does not exist.
func isMissingCABundleError(err error) bool {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOENT) {
		return true
	}
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "could not find a suitable tls ca certificate bundle") {
		return true
	}
	return strings.Contains(message, "no such file or directory") &&
		strings.Contains(message, "ca")
}

func containsAny(message string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// Summary renders the failure as a JSON-safe map. Errors are flattened to
// their message; a live error value never reaches the report.
func (f *Failure) Summary() map[string]any {
	summary := map[string]any{
		"tool":  f.Tool,
		"stage": string(f.Stage),
	}
	if f.Mode != "" {
		summary["mode"] = f.Mode
	}
	if f.category != "" {
		summary["category"] = string(f.category)
	}
	if f.Err != nil {
		summary["error"] = f.Err.Error()
	} else {
		summary["message"] = f.Message
	}
	return summary
}

// MarshalJSON serializes the failure as its summary map.
func (f *Failure) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Summary())
}
