// Package toolerr provides structured domain errors for the ratewatch
// tool server and its self-test engine.
//
// Every error carries the tool and backend operation it originated from,
// plus a machine-readable code. Codes are stable: callers key automation
// (alerting, exit-code selection) off the code, never off the message.
//
// The package also recognizes the TLS signature left by corporate
// interception proxies (a self-signed certificate injected into the chain)
// and converts matching transport errors into CodeTLSCertChainIntercepted
// domain errors via FromTransportError.
package toolerr
