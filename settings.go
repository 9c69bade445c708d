package ratewatch

// Settings is the resolved runtime configuration for one server instance.
// It is a plain value: the engine never mutates a Settings it was given,
// only derives copies through the With* helpers. How the value is assembled
// (config file, environment, CLI precedence) is the caller's concern.
type Settings struct {
	// APIKey authenticates against the ratings backend.
	APIKey string

	// SubscriptionFolder is the folder new subscriptions are filed under.
	// Empty means unset; the startup checks only warn in that case.
	SubscriptionFolder string

	// SubscriptionType is the subscription license pool to draw from.
	SubscriptionType string

	// Context selects the tool profile the server exposes
	// (e.g. "standard" or "risk_manager").
	Context string

	// RiskVectorFilter narrows the finding categories returned by the
	// rating tool. Empty means the server default.
	RiskVectorFilter string

	// MaxFindings caps the number of findings returned per rating lookup.
	MaxFindings int

	// SkipStartupChecks disables the online connectivity checks.
	SkipStartupChecks bool

	// Debug enables verbose diagnostics logging.
	Debug bool

	// AllowInsecureTLS disables TLS certificate verification. Set by the
	// self-test fallback protocol after a classified TLS failure.
	AllowInsecureTLS bool

	// CABundlePath points at a corporate CA bundle in PEM format.
	// Empty means the system trust store.
	CABundlePath string
}

// WithContext returns a copy of s targeting the named context.
func (s Settings) WithContext(name string) Settings {
	s.Context = name
	return s
}

// WithInsecureTLS returns a copy of s with certificate verification
// disabled and any configured CA bundle dropped. This is the settings
// shape used by the TLS fallback attempt.
func (s Settings) WithInsecureTLS() Settings {
	s.AllowInsecureTLS = true
	s.CABundlePath = ""
	return s
}

// WithoutCABundle returns a copy of s with the CA bundle cleared,
// falling back to the system trust store.
func (s Settings) WithoutCABundle() Settings {
	s.CABundlePath = ""
	return s
}
