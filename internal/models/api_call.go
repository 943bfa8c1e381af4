// Package models defines data structures and domain types.
package models

import "time"

// APICall represents one logged backend attempt.
type APICall struct {
	Timestamp  time.Time
	Error      string
	ErrorKind  string
	Backend    string
	Model      string
	Complexity string
	RequestID  string
	Tokens     int
	DurationMs int
	StatusCode int
	Pass       int
	ID         int64
	Success    bool
	Degraded   bool
}

// NewAPICall converts a backend result into a call log row.
func NewAPICall(requestID string, complexity Complexity, pass int, r Result) *APICall {
	status := r.StatusCode
	if status == 0 {
		status = 200
		if !r.Success {
			status = 500
		}
	}
	return &APICall{
		Timestamp:  time.Now(),
		RequestID:  requestID,
		Backend:    string(r.Backend),
		Model:      r.Model,
		Complexity: complexity.String(),
		Pass:       pass,
		Tokens:     r.Tokens,
		DurationMs: int(r.Elapsed.Milliseconds()),
		StatusCode: status,
		Success:    r.Success,
		Degraded:   r.Degraded,
		Error:      r.Error,
		ErrorKind:  string(r.Kind),
	}
}
