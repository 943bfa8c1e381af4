package engine

import (
	"sync"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// Tracker accumulates per-backend call statistics for one dispatcher.
// It is safe for concurrent use; Snapshot returns copies.
type Tracker struct {
	stats map[models.Backend]*models.BackendStats
	order []models.Backend
	mu    sync.RWMutex
}

// NewTracker creates a tracker with a zeroed record for every backend given.
func NewTracker(backends ...models.Backend) *Tracker {
	t := &Tracker{stats: make(map[models.Backend]*models.BackendStats, len(backends))}
	for _, b := range backends {
		t.ensure(b)
	}
	return t
}

// ensure must be called with mu held for writing.
func (t *Tracker) ensure(b models.Backend) *models.BackendStats {
	s, ok := t.stats[b]
	if !ok {
		s = &models.BackendStats{Backend: b}
		t.stats[b] = s
		t.order = append(t.order, b)
	}
	return s
}

// Record counts one call and recomputes the running average latency.
func (t *Tracker) Record(b models.Backend, success bool, latency time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.record(b, success, latency)
}

func (t *Tracker) record(b models.Backend, success bool, latency time.Duration) *models.BackendStats {
	s := t.ensure(b)
	s.TotalCalls++
	if success {
		s.SuccessCount++
		s.ConsecutiveFail = 0
	} else {
		s.FailureCount++
		s.ConsecutiveFail++
	}
	s.TotalLatency += latency
	s.AvgLatency = s.TotalLatency / time.Duration(s.TotalCalls)
	s.LastCalled = time.Now()
	return s
}

// RecordResult counts a call from its result and keeps the last error message.
func (t *Tracker) RecordResult(r models.Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.record(r.Backend, r.Success, r.Elapsed)
	if !r.Success {
		s.LastError = r.Error
	}
}

// SetAvailable marks whether a backend is currently usable.
func (t *Tracker) SetAvailable(b models.Backend, available bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensure(b).Available = available
}

// Get returns a copy of one backend's record.
func (t *Tracker) Get(b models.Backend) (models.BackendStats, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.stats[b]
	if !ok {
		return models.BackendStats{}, false
	}
	return *s, true
}

// Snapshot returns copies of all records in registration order.
func (t *Tracker) Snapshot() []models.BackendStats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]models.BackendStats, 0, len(t.order))
	for _, b := range t.order {
		out = append(out, *t.stats[b])
	}
	return out
}
