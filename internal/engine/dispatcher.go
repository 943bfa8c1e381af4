package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// Default dispatch settings.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = time.Second
)

// BackendClient calls one backend. Call never returns a Go error: every
// failure is reported through a failed Result.
type BackendClient interface {
	Backend() models.Backend
	Model() string
	Call(ctx context.Context, req models.Request) models.Result
}

// Attempt describes one backend call made while dispatching a request.
type Attempt struct {
	RequestID string
	Request   models.Request
	Result    models.Result
	Pass      int
}

// Recorder receives every attempt, for example to persist a call log.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
}

// Options configures a Dispatcher.
type Options struct {
	Recorder   Recorder
	Sleep      func(ctx context.Context, d time.Duration) error
	Selector   SelectorOptions
	MaxRetries int
	RetryDelay time.Duration
}

// Dispatcher walks the selected candidates pass by pass until one succeeds.
type Dispatcher struct {
	clients  map[models.Backend]BackendClient
	avail    Availability
	selector *Selector
	tracker  *Tracker
	recorder Recorder
	sleep    func(ctx context.Context, d time.Duration) error

	maxRetries int
	retryDelay time.Duration

	mu sync.RWMutex
}

// New creates a dispatcher over the given clients. Backends missing from
// clients can still be selected and fail fast as not configured.
func New(clients []BackendClient, avail Availability, opts Options) *Dispatcher {
	d := &Dispatcher{
		clients:    make(map[models.Backend]BackendClient, len(clients)),
		avail:      avail.Clone(),
		selector:   NewSelector(opts.Selector),
		tracker:    NewTracker(models.AllBackends()...),
		recorder:   opts.Recorder,
		sleep:      opts.Sleep,
		maxRetries: opts.MaxRetries,
		retryDelay: opts.RetryDelay,
	}
	if d.maxRetries <= 0 {
		d.maxRetries = DefaultMaxRetries
	}
	if d.retryDelay < 0 {
		d.retryDelay = 0
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	for _, c := range clients {
		d.clients[c.Backend()] = c
	}
	for _, b := range models.AllBackends() {
		d.tracker.SetAvailable(b, d.avail[b])
	}
	return d
}

// Tracker returns the statistics tracker owned by the dispatcher.
func (d *Dispatcher) Tracker() *Tracker {
	return d.tracker
}

// Availability returns a copy of the current availability snapshot.
func (d *Dispatcher) Availability() Availability {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.avail.Clone()
}

// SetAvailable updates one backend in the availability snapshot.
func (d *Dispatcher) SetAvailable(b models.Backend, available bool) {
	d.mu.Lock()
	d.avail[b] = available
	d.mu.Unlock()
	d.tracker.SetAvailable(b, available)
}

// MaxRetries returns the number of dispatch passes.
func (d *Dispatcher) MaxRetries() int {
	return d.maxRetries
}

// NewRequest builds a request from a raw integer complexity.
func NewRequest(prompt, systemPrompt string, complexity int, temperature float64) (models.Request, error) {
	c, err := models.ComplexityFromInt(complexity)
	if err != nil {
		return models.Request{}, err
	}
	return models.Request{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  temperature,
		Complexity:   c,
	}, nil
}

// Generate dispatches req and returns the first successful result, or a
// failed result with backend "none" once every candidate has failed.
func (d *Dispatcher) Generate(ctx context.Context, req models.Request) models.Result {
	start := time.Now()
	requestID := uuid.NewString()

	sel, err := d.selector.Select(req.Complexity, d.Availability())
	if err != nil {
		return d.sentinel(models.KindConfig, err.Error(), sel.Degraded, start)
	}
	if len(sel.Candidates) == 0 {
		msg := fmt.Sprintf("no backend available for %s request", req.Complexity)
		logger.Error("Dispatch has no candidates", "complexity", req.Complexity.String())
		return d.sentinel(models.KindExhausted, msg, false, start)
	}
	if sel.Degraded {
		logger.Warn("No cloud backend configured for advanced request, using local server",
			"request_id", requestID)
	}

	lastErr := make(map[models.Backend]string, len(sel.Candidates))
	skipped := make(map[models.Backend]bool, len(sel.Candidates))
	passes := 0

	for pass := 1; pass <= d.maxRetries; pass++ {
		passes = pass
		for _, b := range sel.Candidates {
			if skipped[b] {
				continue
			}

			res := d.call(ctx, b, req).WithDegraded(sel.Degraded)
			d.tracker.RecordResult(res)
			d.record(ctx, Attempt{RequestID: requestID, Request: req, Result: res, Pass: pass})

			if res.Success {
				logger.Debug("Dispatch succeeded", "request_id", requestID,
					"backend", string(b), "model", res.Model, "pass", pass)
				return res
			}

			logger.Warn("Backend call failed", "request_id", requestID, "backend", string(b),
				"model", res.Model, "kind", string(res.Kind), "pass", pass, "error", res.Error)
			lastErr[b] = res.Error
			if res.Kind.Terminal() {
				skipped[b] = true
			}
			if ctx.Err() != nil {
				return d.exhausted(sel, lastErr, passes, sel.Degraded, start, ctx.Err())
			}
		}

		if len(skipped) == len(sel.Candidates) || pass == d.maxRetries {
			break
		}
		if err := d.sleep(ctx, d.retryDelay); err != nil {
			return d.exhausted(sel, lastErr, passes, sel.Degraded, start, err)
		}
	}

	return d.exhausted(sel, lastErr, passes, sel.Degraded, start, nil)
}

func (d *Dispatcher) call(ctx context.Context, b models.Backend, req models.Request) models.Result {
	client, ok := d.clients[b]
	if !ok || client == nil {
		return models.NewFailure(b, "", models.KindConfig,
			fmt.Sprintf("%s backend is not configured", b), 0)
	}
	res := client.Call(ctx, req)
	if res.Backend == "" {
		res.Backend = b
	}
	if res.Model == "" {
		res.Model = client.Model()
	}
	return res
}

func (d *Dispatcher) record(ctx context.Context, a Attempt) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.RecordAttempt(ctx, a); err != nil {
		logger.Warn("Failed to record backend attempt", "backend", string(a.Result.Backend), "error", err)
	}
}

func (d *Dispatcher) exhausted(
	sel Selection,
	lastErr map[models.Backend]string,
	passes int,
	degraded bool,
	start time.Time,
	cause error,
) models.Result {
	parts := make([]string, 0, len(sel.Candidates))
	for _, b := range sel.Candidates {
		if msg, ok := lastErr[b]; ok {
			parts = append(parts, fmt.Sprintf("%s: %s", b, msg))
		}
	}

	msg := fmt.Sprintf("all backends failed after %d pass(es)", passes)
	if cause != nil {
		msg = fmt.Sprintf("dispatch stopped after %d pass(es): %v", passes, cause)
	}
	if len(parts) > 0 {
		msg += ": " + strings.Join(parts, "; ")
	}

	logger.Error("All backends failed", "candidates", len(sel.Candidates), "passes", passes)
	return d.sentinel(models.KindExhausted, msg, degraded, start)
}

func (d *Dispatcher) sentinel(kind models.ErrorKind, msg string, degraded bool, start time.Time) models.Result {
	return models.NewFailure(models.BackendNone, string(models.BackendNone), kind, msg, time.Since(start)).
		WithDegraded(degraded)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
