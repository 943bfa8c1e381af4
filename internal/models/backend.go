// Package models defines data structures and domain types.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Backend identifies one LLM service the dispatcher can call.
type Backend string

const (
	// BackendLocal is the local model server (Ollama).
	BackendLocal Backend = "local"
	// BackendQwen is Alibaba DashScope, authenticated with a bearer key.
	BackendQwen Backend = "qwen"
	// BackendErnie is Baidu ERNIE, authenticated with an exchanged access token.
	BackendErnie Backend = "ernie"
	// BackendGemini is Google Gemini, authenticated with an API key.
	BackendGemini Backend = "gemini"
	// BackendNone marks the sentinel result returned when every candidate failed.
	BackendNone Backend = "none"
)

// CloudPriority is the fixed quality order used when cloud backends are candidates.
var CloudPriority = []Backend{BackendQwen, BackendErnie, BackendGemini}

// AllBackends lists every real backend identity, local first.
func AllBackends() []Backend {
	return append([]Backend{BackendLocal}, CloudPriority...)
}

// IsCloud reports whether the backend is a remote vendor API.
func (b Backend) IsCloud() bool {
	switch b {
	case BackendQwen, BackendErnie, BackendGemini:
		return true
	default:
		return false
	}
}

// DisplayName returns a human readable name for the backend.
func (b Backend) DisplayName() string {
	switch b {
	case BackendLocal:
		return "Local (Ollama)"
	case BackendQwen:
		return "Qwen"
	case BackendErnie:
		return "ERNIE"
	case BackendGemini:
		return "Gemini"
	case BackendNone:
		return "none"
	default:
		return string(b)
	}
}

// Complexity is the caller-supplied hint used to order candidate backends.
type Complexity int

const (
	// ComplexitySimple is served by the local server only.
	ComplexitySimple Complexity = iota + 1
	// ComplexityMedium prefers the local server and falls back to cloud.
	ComplexityMedium
	// ComplexityComplex prefers cloud and falls back to the local server.
	ComplexityComplex
	// ComplexityAdvanced uses the single best cloud backend.
	ComplexityAdvanced
)

// ErrInvalidComplexity is returned when a value cannot be coerced to a Complexity.
var ErrInvalidComplexity = errors.New("invalid complexity")

// String returns the lowercase name of the complexity.
func (c Complexity) String() string {
	switch c {
	case ComplexitySimple:
		return "simple"
	case ComplexityMedium:
		return "medium"
	case ComplexityComplex:
		return "complex"
	case ComplexityAdvanced:
		return "advanced"
	default:
		return fmt.Sprintf("complexity(%d)", int(c))
	}
}

// Valid reports whether c is one of the known levels.
func (c Complexity) Valid() bool {
	return c >= ComplexitySimple && c <= ComplexityAdvanced
}

// ComplexityFromInt coerces a raw integer into a Complexity.
func ComplexityFromInt(v int) (Complexity, error) {
	c := Complexity(v)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidComplexity, v)
	}
	return c, nil
}

// ParseComplexity accepts either a level name or its integer value.
func ParseComplexity(s string) (Complexity, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		return ComplexityFromInt(n)
	}
	switch s {
	case "simple":
		return ComplexitySimple, nil
	case "medium":
		return ComplexityMedium, nil
	case "complex":
		return ComplexityComplex, nil
	case "advanced":
		return ComplexityAdvanced, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidComplexity, s)
}

// MarshalText implements encoding.TextMarshaler so jobs files carry names.
func (c Complexity) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidComplexity, int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalJSON accepts either a level name or its integer value.
func (c *Complexity) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	parsed, err := ParseComplexity(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
