// Package models defines data structures and domain types.
package models

import "time"

// BackendStats is the in-memory statistics record of one backend.
type BackendStats struct {
	Backend         Backend
	TotalCalls      int
	SuccessCount    int
	FailureCount    int
	TotalLatency    time.Duration
	AvgLatency      time.Duration
	LastError       string
	LastCalled      time.Time
	Available       bool
	ConsecutiveFail int
}

// SuccessRate returns the share of successful calls in percent.
func (s BackendStats) SuccessRate() float64 {
	if s.TotalCalls == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalCalls) * 100
}

// HourlyStats represents persisted call statistics grouped by hour.
type HourlyStats struct {
	Hour          time.Time
	TotalCalls    int
	TotalTokens   int64
	AvgDurationMs float64
	ErrorCount    int
}

// TotalStats represents overall aggregated statistics from the call log.
type TotalStats struct {
	TotalCalls     int
	TotalTokens    int64
	AvgDurationMs  float64
	ErrorCount     int
	UniqueBackends int
	UniqueModels   int
	UniqueRequests int
}

// BackendTotals is the persisted per-backend aggregate.
type BackendTotals struct {
	Backend       Backend
	TotalCalls    int
	SuccessCount  int
	FailureCount  int
	TotalTokens   int64
	AvgDurationMs float64
}
