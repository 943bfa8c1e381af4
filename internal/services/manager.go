// Package services provides service orchestration for the TUI and CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/j-veylop/ai-dispatch-tui/internal/config"
	"github.com/j-veylop/ai-dispatch-tui/internal/db"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services/jobs"
)

type (
	// DispatchCompletedEvent is emitted after every dispatch, direct or queued.
	DispatchCompletedEvent struct {
		JobID  string
		Result models.Result
	}

	// JobsChangedEvent is emitted when the job queue changes.
	JobsChangedEvent struct {
		Jobs    []models.Job
		Summary models.JobSummary
	}

	// AvailabilityChangedEvent is emitted after the availability snapshot is refreshed.
	AvailabilityChangedEvent struct {
		Availability engine.Availability
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}

	// StatsEvent carries the in-memory backend statistics.
	StatsEvent struct {
		Backends []models.BackendStats
		Jobs     models.JobSummary
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (DispatchCompletedEvent) isServiceEvent()   {}
func (JobsChangedEvent) isServiceEvent()         {}
func (AvailabilityChangedEvent) isServiceEvent() {}
func (ErrorEvent) isServiceEvent()               {}
func (StatsEvent) isServiceEvent()               {}

// NotifyFunc shows a desktop notification.
type NotifyFunc func(title, body string) error

// Options overrides how the manager builds its parts. The zero value builds
// everything from the configuration.
type Options struct {
	// Clients replaces the backend clients built from the configuration.
	Clients []engine.BackendClient
	// Availability replaces the probed availability snapshot. Only used with Clients.
	Availability engine.Availability
	// Sleep replaces the wait between dispatch passes.
	Sleep func(ctx context.Context, d time.Duration) error
	// Notify replaces desktop notifications.
	Notify NotifyFunc
	// NoJobs skips the job queue, for one-shot CLI commands.
	NoJobs bool
}

// Manager orchestrates services and event routing.
type Manager struct {
	mu           sync.RWMutex
	cfg          *config.Config
	database     *db.DB
	dispatcher   *engine.Dispatcher
	jobs         *jobs.Service
	clients      []engine.BackendClient
	closers      []io.Closer
	notify       NotifyFunc
	stopChan     chan struct{}
	subscribers  []chan<- ServiceEvent
	lastDegraded bool
	closeOnce    sync.Once
}

// NewManager creates a manager with clients built from the configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	return NewManagerWithOptions(cfg, Options{})
}

// NewManagerWithOptions creates a manager, opening the call log, building
// the dispatcher and starting the job queue.
func NewManagerWithOptions(cfg *config.Config, opts Options) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	m := &Manager{
		cfg:      cfg,
		notify:   opts.Notify,
		stopChan: make(chan struct{}),
	}
	if m.notify == nil {
		m.notify = desktopNotify
	}

	var err error
	m.database, err = db.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if cfg.Retention > 0 {
		if n, err := m.database.PruneAPICalls(context.Background(), cfg.Retention); err != nil {
			logger.Warn("Failed to prune call log", "error", err)
		} else if n > 0 {
			logger.Info("Pruned call log", "rows", n)
		}
	}

	avail := opts.Availability
	if opts.Clients != nil {
		m.clients = opts.Clients
		if avail == nil {
			avail = make(engine.Availability)
			for _, c := range m.clients {
				avail[c.Backend()] = true
			}
		}
	} else {
		m.clients, m.closers = buildClients(context.Background(), cfg)
		avail = probeAvailability(context.Background(), m.clients, cfg.ProbeLocal)
	}

	m.dispatcher = engine.New(m.clients, avail, engine.Options{
		Recorder:   m.database,
		Sleep:      opts.Sleep,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Selector: engine.SelectorOptions{
			PreferLocal:        cfg.PreferLocal,
			FallbackEnabled:    cfg.FallbackEnabled,
			UseCloudForComplex: cfg.UseCloudForComplex,
		},
	})
	logger.Info("Dispatcher ready", "backends", len(m.clients), "available", availableNames(avail))

	if !opts.NoJobs {
		m.jobs, err = jobs.New(cfg.JobsPath, m.dispatcher)
		if err != nil {
			m.closeParts()
			return nil, fmt.Errorf("failed to start job queue: %w", err)
		}
		go m.routeEvents()
	}

	return m, nil
}

func desktopNotify(title, body string) error {
	return beeep.Notify(title, body, "")
}

func availableNames(avail engine.Availability) []string {
	var names []string
	for _, b := range models.AllBackends() {
		if avail[b] {
			names = append(names, string(b))
		}
	}
	return names
}

// routeEvents routes events from the job queue to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.jobs.Events():
			m.handleJobEvent(event)

		case <-m.stopChan:
			return
		}
	}
}

// handleJobEvent converts and broadcasts job events.
func (m *Manager) handleJobEvent(event jobs.Event) {
	switch event.Type {
	case jobs.EventJobsLoaded, jobs.EventJobsChanged, jobs.EventJobAdded, jobs.EventJobStarted:
		m.broadcastJobs()

	case jobs.EventJobFinished:
		m.broadcastJobs()
		if event.Result != nil {
			jobID := ""
			if event.Job != nil {
				jobID = event.Job.ID
			}
			m.completed(jobID, *event.Result)
		}

	case jobs.EventError:
		m.broadcast(ErrorEvent{Service: "jobs", Error: event.Error})
	}
}

func (m *Manager) broadcastJobs() {
	m.broadcast(JobsChangedEvent{
		Jobs:    m.jobs.Jobs(),
		Summary: m.jobs.Summary(),
	})
}

// Generate dispatches one request and broadcasts the outcome.
func (m *Manager) Generate(ctx context.Context, req models.Request) models.Result {
	result := m.dispatcher.Generate(ctx, req)
	m.completed("", result)
	return result
}

// completed broadcasts a finished dispatch and raises notifications.
func (m *Manager) completed(jobID string, r models.Result) {
	m.broadcast(DispatchCompletedEvent{JobID: jobID, Result: r})
	m.broadcast(m.GetStats())
	m.checkNotifications(r)
}

// checkNotifications notifies on exhausted dispatches, and when advanced
// requests start degrading to the local server.
func (m *Manager) checkNotifications(r models.Result) {
	if !m.cfg.Notify {
		return
	}

	var title, body string
	m.mu.Lock()
	switch {
	case !r.Success && r.Kind == models.KindExhausted:
		title = "AI dispatch failed"
		body = r.Error
	case r.Degraded && !m.lastDegraded:
		title = "AI dispatch degraded"
		body = "No cloud backend is available, advanced requests run on the local server."
	}
	if r.Success || r.Kind == models.KindExhausted {
		m.lastDegraded = r.Degraded
	}
	m.mu.Unlock()

	if title == "" {
		return
	}
	if err := m.notify(title, body); err != nil {
		logger.Debug("Notification failed", "error", err)
	}
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// RefreshAvailability probes the local server again and broadcasts the result.
func (m *Manager) RefreshAvailability(ctx context.Context) engine.Availability {
	if !m.cfg.ProbeLocal {
		return m.dispatcher.Availability()
	}

	for _, c := range m.clients {
		if c.Backend() != models.BackendLocal {
			continue
		}
		fresh := probeAvailability(ctx, []engine.BackendClient{c}, true)
		m.dispatcher.SetAvailable(models.BackendLocal, fresh[models.BackendLocal])
	}

	avail := m.dispatcher.Availability()
	m.broadcast(AvailabilityChangedEvent{Availability: avail})
	m.broadcast(m.GetStats())
	return avail
}

// GetStats returns the in-memory backend statistics and the job summary.
func (m *Manager) GetStats() StatsEvent {
	stats := StatsEvent{Backends: m.dispatcher.Tracker().Snapshot()}
	if m.jobs != nil {
		stats.Jobs = m.jobs.Summary()
	}
	return stats
}

// ErrJobsNotRunning is returned by job operations when the queue was not started.
var ErrJobsNotRunning = errors.New("job queue is not running")

// AddJob queues a generation job.
func (m *Manager) AddJob(job models.Job) (models.Job, error) {
	if m.jobs == nil {
		return models.Job{}, ErrJobsNotRunning
	}
	return m.jobs.Add(job)
}

// RetryJob puts a failed job back in the queue.
func (m *Manager) RetryJob(id string) error {
	if m.jobs == nil {
		return ErrJobsNotRunning
	}
	return m.jobs.Retry(id)
}

// RemoveJob deletes a job that is not running.
func (m *Manager) RemoveJob(id string) error {
	if m.jobs == nil {
		return ErrJobsNotRunning
	}
	return m.jobs.Remove(id)
}

// ClearFinishedJobs deletes done and failed jobs and returns how many were removed.
func (m *Manager) ClearFinishedJobs() (int, error) {
	if m.jobs == nil {
		return 0, ErrJobsNotRunning
	}
	return m.jobs.ClearFinished()
}

// GetJobs returns the queued jobs, or nil when the queue is not running.
func (m *Manager) GetJobs() []models.Job {
	if m.jobs == nil {
		return nil
	}
	return m.jobs.Jobs()
}

// GetRecentCalls returns the newest call log rows.
func (m *Manager) GetRecentCalls(ctx context.Context, limit int) ([]models.APICall, error) {
	return m.database.GetRecentAPICalls(ctx, limit)
}

// GetHourlyStats returns call log statistics grouped by hour.
func (m *Manager) GetHourlyStats(ctx context.Context, hours int) ([]models.HourlyStats, error) {
	return m.database.GetHourlyStats(ctx, hours)
}

// GetTotalStats returns call log totals.
func (m *Manager) GetTotalStats(ctx context.Context) (*models.TotalStats, error) {
	return m.database.GetTotalStats(ctx)
}

// GetBackendTotals returns call log totals per backend.
func (m *Manager) GetBackendTotals(ctx context.Context) ([]models.BackendTotals, error) {
	return m.database.GetBackendTotals(ctx)
}

// Config returns the configuration the manager was built from.
func (m *Manager) Config() *config.Config {
	return m.cfg
}

// Dispatcher returns the dispatcher.
func (m *Manager) Dispatcher() *engine.Dispatcher {
	return m.dispatcher
}

// Jobs returns the job queue, or nil when it is not running.
func (m *Manager) Jobs() *jobs.Service {
	return m.jobs
}

// Database returns the database instance for direct access.
func (m *Manager) Database() *db.DB {
	return m.database
}

// InitialState returns the state the TUI renders before the first event.
func (m *Manager) InitialState() ([]models.Job, StatsEvent) {
	return m.GetJobs(), m.GetStats()
}

// Close closes the manager and all its services.
func (m *Manager) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.stopChan)

		m.mu.Lock()
		for _, sub := range m.subscribers {
			close(sub)
		}
		m.subscribers = nil
		m.mu.Unlock()

		err = m.closeParts()
	})
	return err
}

func (m *Manager) closeParts() error {
	var errs []error

	if m.jobs != nil {
		if err := m.jobs.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if m.database != nil {
		if err := m.database.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
