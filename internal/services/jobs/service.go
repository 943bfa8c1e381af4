// Package jobs provides a file-backed generation job queue with file watching.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// fileVersion is written to every jobs file.
const fileVersion = 1

// debounceInterval groups bursts of file events into one reload.
const debounceInterval = 100 * time.Millisecond

// ErrJobNotFound is returned when no job has the requested ID.
var ErrJobNotFound = errors.New("job not found")

// JobsFile represents the JSON file structure for job storage.
type JobsFile struct {
	Jobs    []models.Job `json:"jobs"`
	Version int          `json:"version,omitempty"`
}

// Generator runs one request. *engine.Dispatcher satisfies it.
type Generator interface {
	Generate(ctx context.Context, req models.Request) models.Result
}

// Event represents a job service event.
type Event struct {
	Error  error
	Job    *models.Job
	Result *models.Result
	Type   EventType
}

// EventType defines the type of job event.
type EventType int

const (
	EventJobsLoaded EventType = iota
	EventJobsChanged
	EventJobAdded
	EventJobStarted
	EventJobFinished
	EventError
)

// Service keeps the job list in sync with the jobs file and runs pending jobs one at a time.
type Service struct {
	generator     Generator
	watcher       *fsnotify.Watcher
	debounceTimer *time.Timer
	eventChan     chan Event
	stopChan      chan struct{}
	wakeChan      chan struct{}
	cancel        context.CancelFunc
	filePath      string
	lastWritten   []byte
	jobs          []models.Job
	wg            sync.WaitGroup
	mu            sync.RWMutex
	closeOnce     sync.Once
}

// New loads the jobs file (creating it if missing), starts watching it and
// starts the worker that feeds pending jobs to gen. With a nil gen the
// service only edits the file, leaving execution to another process.
func New(filePath string, gen Generator) (*Service, error) {
	if filePath == "" {
		return nil, fmt.Errorf("jobs file path is empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		generator: gen,
		filePath:  filePath,
		jobs:      make([]models.Job, 0),
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
		wakeChan:  make(chan struct{}, 1),
		cancel:    cancel,
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o750); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create jobs directory: %w", err)
	}

	if _, err := s.load(true); err != nil {
		if !os.IsNotExist(err) {
			cancel()
			return nil, fmt.Errorf("failed to load jobs: %w", err)
		}
		if err := s.save(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to create jobs file: %w", err)
		}
	}

	if err := s.startWatcher(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start file watcher: %w", err)
	}

	if gen != nil {
		s.wg.Add(1)
		go s.worker(ctx)
		s.wake()
	}

	s.sendEvent(Event{Type: EventJobsLoaded})
	return s, nil
}

// Events returns the event channel for subscribing to job changes.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Path returns the jobs file path.
func (s *Service) Path() string {
	return s.filePath
}

// Jobs returns a copy of all jobs in file order.
func (s *Service) Jobs() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Job, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// Get returns the job with the given ID.
func (s *Service) Get(id string) (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(id); i >= 0 {
		return s.jobs[i], true
	}
	return models.Job{}, false
}

// Summary counts jobs per status.
func (s *Service) Summary() models.JobSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum models.JobSummary
	for _, j := range s.jobs {
		switch j.Status {
		case models.JobPending:
			sum.Pending++
		case models.JobRunning:
			sum.Running++
		case models.JobDone:
			sum.Done++
		case models.JobFailed:
			sum.Failed++
		}
	}
	return sum
}

// Add queues a new job and returns it with its ID and defaults filled in.
func (s *Service) Add(job models.Job) (models.Job, error) {
	if strings.TrimSpace(job.Prompt) == "" {
		return models.Job{}, fmt.Errorf("job prompt is empty")
	}
	normalize(&job, time.Now())
	job.Status = models.JobPending
	job.Output, job.Error, job.CompletedAt = "", "", nil

	s.mu.Lock()
	if s.indexLocked(job.ID) >= 0 {
		s.mu.Unlock()
		return models.Job{}, fmt.Errorf("job with id %s already exists", job.ID)
	}
	s.jobs = append(s.jobs, job)
	if err := s.saveLocked(); err != nil {
		s.jobs = s.jobs[:len(s.jobs)-1]
		s.mu.Unlock()
		return models.Job{}, fmt.Errorf("failed to save jobs: %w", err)
	}
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventJobAdded, Job: &job})
	s.wake()
	return job, nil
}

// Retry puts a failed job back in the queue.
func (s *Service) Retry(id string) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if s.jobs[i].Status != models.JobFailed {
		s.mu.Unlock()
		return fmt.Errorf("job %s is %s, only failed jobs can be retried", id, s.jobs[i].Status)
	}
	s.jobs[i].Status = models.JobPending
	s.jobs[i].Error = ""
	s.jobs[i].CompletedAt = nil
	err := s.saveLocked()
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to save jobs: %w", err)
	}

	s.sendEvent(Event{Type: EventJobsChanged})
	s.wake()
	return nil
}

// Remove deletes a job that is not running.
func (s *Service) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if s.jobs[i].Status == models.JobRunning {
		return fmt.Errorf("job %s is running", id)
	}

	removed := s.jobs[i]
	s.jobs = append(s.jobs[:i], s.jobs[i+1:]...)
	if err := s.saveLocked(); err != nil {
		s.jobs = append(s.jobs[:i], append([]models.Job{removed}, s.jobs[i:]...)...)
		return fmt.Errorf("failed to save jobs: %w", err)
	}

	s.sendEvent(Event{Type: EventJobsChanged})
	return nil
}

// ClearFinished removes done and failed jobs and returns how many were removed.
func (s *Service) ClearFinished() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]models.Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		if j.Status != models.JobDone && j.Status != models.JobFailed {
			kept = append(kept, j)
		}
	}
	removed := len(s.jobs) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	previous := s.jobs
	s.jobs = kept
	if err := s.saveLocked(); err != nil {
		s.jobs = previous
		return 0, fmt.Errorf("failed to save jobs: %w", err)
	}

	s.sendEvent(Event{Type: EventJobsChanged})
	return removed, nil
}

// worker runs pending jobs sequentially until the service is closed.
func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.wakeChan:
		}

		for ctx.Err() == nil {
			job, ok := s.claimNext()
			if !ok {
				break
			}
			s.run(ctx, job)
		}
	}
}

// claimNext marks the first pending job as running.
func (s *Service) claimNext() (models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].Status != models.JobPending {
			continue
		}
		s.jobs[i].Status = models.JobRunning
		if err := s.saveLocked(); err != nil {
			logger.Warn("Failed to persist running job", "job", s.jobs[i].ID, "error", err)
		}
		return s.jobs[i], true
	}
	return models.Job{}, false
}

func (s *Service) run(ctx context.Context, job models.Job) {
	s.sendEvent(Event{Type: EventJobStarted, Job: &job})
	logger.Info("Running job", "job", job.ID, "complexity", job.Complexity.String())

	result := s.generator.Generate(ctx, job.Request())
	if ctx.Err() != nil {
		s.requeue(job.ID)
		return
	}

	s.mu.Lock()
	i := s.indexLocked(job.ID)
	if i < 0 {
		s.mu.Unlock()
		logger.Warn("Job removed while running, dropping result", "job", job.ID)
		return
	}
	s.jobs[i].Complete(result, time.Now())
	finished := s.jobs[i]
	if err := s.saveLocked(); err != nil {
		logger.Error("Failed to save job result", "job", job.ID, "error", err)
	}
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventJobFinished, Job: &finished, Result: &result})
}

// requeue returns an interrupted job to pending so it runs on the next start.
func (s *Service) requeue(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexLocked(id); i >= 0 && s.jobs[i].Status == models.JobRunning {
		s.jobs[i].Status = models.JobPending
		if err := s.saveLocked(); err != nil {
			logger.Warn("Failed to requeue job", "job", id, "error", err)
		}
	}
}

func (s *Service) wake() {
	select {
	case s.wakeChan <- struct{}{}:
	default:
	}
}

func (s *Service) indexLocked(id string) int {
	for i := range s.jobs {
		if s.jobs[i].ID == id {
			return i
		}
	}
	return -1
}

// parse decodes a jobs document. A bare array of jobs is accepted as well.
func parse(data []byte) ([]models.Job, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []models.Job{}, nil
	}
	if trimmed[0] == '[' {
		trimmed = append(append([]byte(`{"jobs":`), trimmed...), '}')
	}

	if err := validate(trimmed); err != nil {
		return nil, err
	}

	var file JobsFile
	if err := json.Unmarshal(trimmed, &file); err != nil {
		return nil, fmt.Errorf("failed to parse jobs file: %w", err)
	}
	if file.Jobs == nil {
		file.Jobs = []models.Job{}
	}
	return file.Jobs, nil
}

// normalize fills in defaults on a job read from disk or added by a caller.
// It reports whether anything changed.
func normalize(j *models.Job, now time.Time) bool {
	changed := false
	if j.ID == "" {
		j.ID = uuid.NewString()
		changed = true
	}
	if !j.Complexity.Valid() {
		j.Complexity = models.ComplexityMedium
		changed = true
	}
	if j.Status == "" {
		j.Status = models.JobPending
		changed = true
	}
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
		changed = true
	}
	return changed
}

// load reads the jobs file. At startup, a service with a worker puts jobs
// left running by a previous process back in the queue. The lock is held across the read so a
// reload never observes a file older than the last save.
func (s *Service) load(startup bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return false, err
	}
	if !startup && (bytes.Equal(data, s.lastWritten) || len(bytes.TrimSpace(data)) == 0) {
		// Our own write, or an editor still truncating the file
		return false, nil
	}

	jobs, err := parse(data)
	if err != nil {
		return false, err
	}

	now := time.Now()
	dirty := false
	for i := range jobs {
		if normalize(&jobs[i], now) {
			dirty = true
		}
		if startup && s.generator != nil && jobs[i].Status == models.JobRunning {
			jobs[i].Status = models.JobPending
			dirty = true
		}
	}

	s.jobs = jobs
	if dirty {
		return true, s.saveLocked()
	}
	s.lastWritten = data
	return true, nil
}

func (s *Service) save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

// saveLocked writes the jobs file atomically (must hold lock).
func (s *Service) saveLocked() error {
	data, err := json.MarshalIndent(JobsFile{Jobs: s.jobs, Version: fileVersion}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal jobs: %w", err)
	}

	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tmpFile, s.filePath); err != nil {
		if removeErr := os.Remove(tmpFile); removeErr != nil {
			logger.Error("failed to remove temp file", "error", removeErr)
		}
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	s.lastWritten = data
	return nil
}

// startWatcher starts the file system watcher on the jobs directory.
func (s *Service) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory to catch atomic replacements
	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		if closeErr := watcher.Close(); closeErr != nil {
			logger.Error("failed to close watcher", "error", closeErr)
		}
		return err
	}

	go s.watchLoop()
	return nil
}

// watchLoop handles file system events with debouncing.
func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.filePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			s.mu.Lock()
			if s.debounceTimer != nil {
				s.debounceTimer.Stop()
			}
			s.debounceTimer = time.AfterFunc(debounceInterval, s.handleFileChange)
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.sendEvent(Event{Type: EventError, Error: err})

		case <-s.stopChan:
			return
		}
	}
}

// handleFileChange reloads jobs after an external edit and wakes the worker.
func (s *Service) handleFileChange() {
	select {
	case <-s.stopChan:
		return
	default:
	}

	changed, err := s.load(false)
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		logger.Warn("Ignoring invalid jobs file", "path", s.filePath, "error", err)
		s.sendEvent(Event{Type: EventError, Error: err})
		return
	}
	if !changed {
		return
	}

	s.sendEvent(Event{Type: EventJobsChanged})
	s.wake()
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		// Channel full, drop oldest event
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}

// Close stops the watcher and the worker. A job in flight is put back in the queue.
func (s *Service) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.cancel()

		s.mu.Lock()
		if s.debounceTimer != nil {
			s.debounceTimer.Stop()
		}
		s.mu.Unlock()

		s.wg.Wait()

		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}
