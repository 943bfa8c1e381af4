// Package models defines data structures and domain types.
package models

import "time"

// DefaultTemperature is used when a request leaves the temperature unset.
const DefaultTemperature = 0.7

// Request is the immutable bundle handed to the dispatcher.
type Request struct {
	Prompt       string
	SystemPrompt string
	Temperature  float64
	Complexity   Complexity
}

// ErrorKind classifies why a backend call failed.
type ErrorKind string

const (
	// KindNone is set on successful results.
	KindNone ErrorKind = ""
	// KindTransport covers network unreachable, DNS failure, refused connections and timeouts.
	KindTransport ErrorKind = "transport"
	// KindProtocol covers non-2xx statuses and malformed or empty bodies.
	KindProtocol ErrorKind = "protocol"
	// KindAuth covers rejected credentials.
	KindAuth ErrorKind = "auth"
	// KindTokenExpired is an auth failure cured by fetching a fresh access token.
	KindTokenExpired ErrorKind = "token_expired"
	// KindConfig is returned when a backend is selected without usable configuration.
	KindConfig ErrorKind = "config"
	// KindExhausted marks the sentinel result after every candidate failed.
	KindExhausted ErrorKind = "exhausted"
)

// Terminal reports whether retrying the same backend cannot help.
func (k ErrorKind) Terminal() bool {
	return k == KindAuth || k == KindConfig
}

// Result is the outcome of one backend call or of a whole dispatch.
// Exactly one of Output (on success) or Error (on failure) is non-empty.
type Result struct {
	Output     string
	Error      string
	Backend    Backend
	Model      string
	Kind       ErrorKind
	Elapsed    time.Duration
	Tokens     int
	Success    bool
	Degraded   bool
	StatusCode int
}

// NewSuccess builds a successful result. An empty output is reported as a
// protocol failure so Success always implies a non-empty Output.
func NewSuccess(backend Backend, model, output string, tokens int, elapsed time.Duration) Result {
	if output == "" {
		return NewFailure(backend, model, KindProtocol, "empty response from backend", elapsed)
	}
	return Result{
		Success: true,
		Output:  output,
		Backend: backend,
		Model:   model,
		Tokens:  tokens,
		Elapsed: elapsed,
	}
}

// NewFailure builds a failed result. An empty message is replaced so Error is never blank.
func NewFailure(backend Backend, model string, kind ErrorKind, msg string, elapsed time.Duration) Result {
	if msg == "" {
		msg = "unknown error"
	}
	if kind == KindNone {
		kind = KindProtocol
	}
	return Result{
		Success: false,
		Error:   msg,
		Backend: backend,
		Model:   model,
		Kind:    kind,
		Elapsed: elapsed,
	}
}

// WithStatus returns a copy of r carrying the HTTP status observed.
func (r Result) WithStatus(code int) Result {
	r.StatusCode = code
	return r
}

// WithDegraded returns a copy of r flagged as produced on a degraded path.
func (r Result) WithDegraded(degraded bool) Result {
	r.Degraded = degraded
	return r
}
