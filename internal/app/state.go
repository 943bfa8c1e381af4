// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"sync"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
	// NotificationLoading represents a loading notification with spinner.
	NotificationLoading
)

const (
	// LoadingNotificationID is the fixed ID for loading notifications.
	LoadingNotificationID = "__loading__"

	maxNotifications = 10
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	case NotificationLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	CreatedAt time.Time
	ID        string
	Message   string
	Type      NotificationType
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// LoadingState tracks loading states for different resources.
type LoadingState struct {
	Initial      bool
	Jobs         bool
	Stats        bool
	Availability bool
}

// State is the data shared between the root model and the tabs.
type State struct {
	mu sync.RWMutex

	Jobs          []models.Job
	JobSummary    models.JobSummary
	Stats         *services.StatsEvent
	Availability  engine.Availability
	LastResult    *models.Result
	LastJobID     string
	SelectedJob   int
	capturingKeys bool

	Loading LoadingState

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty state that is still loading.
func NewState() *State {
	return &State{
		Jobs:          make([]models.Job, 0),
		Availability:  make(engine.Availability),
		notifications: make([]Notification, 0),
		Loading: LoadingState{
			Initial: true,
		},
	}
}

// SetLoading sets the loading state for a specific resource.
func (s *State) SetLoading(resource string, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch resource {
	case "initial":
		s.Loading.Initial = loading
	case "jobs":
		s.Loading.Jobs = loading
	case "stats":
		s.Loading.Stats = loading
	case "availability":
		s.Loading.Availability = loading
	}
}

// AnyLoading returns true if any resource is currently loading.
func (s *State) AnyLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.Loading.Initial ||
		s.Loading.Jobs ||
		s.Loading.Stats ||
		s.Loading.Availability
}

// IsInitialLoading returns true if initial data is still loading.
func (s *State) IsInitialLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Loading.Initial
}

// GetLoadingResources returns a list of currently loading resources.
func (s *State) GetLoadingResources() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var resources []string
	if s.Loading.Initial {
		resources = append(resources, "initial")
	}
	if s.Loading.Jobs {
		resources = append(resources, "jobs")
	}
	if s.Loading.Stats {
		resources = append(resources, "stats")
	}
	if s.Loading.Availability {
		resources = append(resources, "availability")
	}
	return resources
}

// SetJobs replaces the job list and keeps the selection in range.
func (s *State) SetJobs(jobs []models.Job, summary models.JobSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Jobs = jobs
	s.JobSummary = summary
	s.LastUpdated = time.Now()
	s.SelectedJob = clampIndex(s.SelectedJob, len(jobs))
}

// GetJobs returns a copy of the job list.
func (s *State) GetJobs() []models.Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]models.Job, len(s.Jobs))
	copy(jobs, s.Jobs)
	return jobs
}

// GetJobSummary returns the job counts per status.
func (s *State) GetJobSummary() models.JobSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.JobSummary
}

// SelectedJobItem returns the selected job, if any.
func (s *State) SelectedJobItem() (models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.SelectedJob < 0 || s.SelectedJob >= len(s.Jobs) {
		return models.Job{}, false
	}
	return s.Jobs[s.SelectedJob], true
}

// GetSelectedJobIndex returns the currently selected job index.
func (s *State) GetSelectedJobIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SelectedJob
}

// SetSelectedJobIndex updates the selected job index.
func (s *State) SetSelectedJobIndex(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SelectedJob = clampIndex(idx, len(s.Jobs))
}

func clampIndex(idx, n int) int {
	if n == 0 {
		return 0
	}
	return min(max(idx, 0), n-1)
}

// SetStats updates the statistics.
func (s *State) SetStats(stats services.StatsEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Stats = &stats
	s.JobSummary = stats.Jobs
	for _, b := range stats.Backends {
		s.Availability[b.Backend] = b.Available
	}
}

// GetStats returns the current statistics.
func (s *State) GetStats() *services.StatsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// SetAvailability replaces the availability snapshot.
func (s *State) SetAvailability(avail engine.Availability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Availability = avail.Clone()
}

// GetAvailability returns a copy of the availability snapshot.
func (s *State) GetAvailability() engine.Availability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Availability.Clone()
}

// SetLastResult records the most recent dispatch outcome.
func (s *State) SetLastResult(jobID string, r models.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastResult = &r
	s.LastJobID = jobID
	s.LastUpdated = time.Now()
}

// GetLastResult returns the most recent dispatch outcome and its job ID.
func (s *State) GetLastResult() (*models.Result, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastResult, s.LastJobID
}

// SetCapturingKeys marks whether a tab is reading text input.
// Global key bindings are ignored while it is set.
func (s *State) SetCapturingKeys(capturing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.capturingKeys = capturing
}

// IsCapturingKeys reports whether a tab is reading text input.
func (s *State) IsCapturingKeys() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capturingKeys
}

// AddNotification adds a new notification and returns its ID.
func (s *State) AddNotification(notifType NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := time.Now().Format("20060102150405") + "-" + string(rune('A'+s.notificationSeq%26))

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      notifType,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})

	if len(s.notifications) > maxNotifications {
		s.notifications = s.notifications[len(s.notifications)-maxNotifications:]
	}

	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications removes all expired notifications.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = activeNotifications(s.notifications)
}

// GetNotifications returns a copy of all active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return activeNotifications(s.notifications)
}

func activeNotifications(all []Notification) []Notification {
	active := make([]Notification, 0, len(all))
	for _, n := range all {
		if !n.IsExpired() {
			active = append(active, n)
		}
	}
	return active
}

// ClearAllNotifications removes all notifications.
func (s *State) ClearAllNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = make([]Notification, 0)
}

// SetLoadingNotification sets a loading notification message.
func (s *State) SetLoadingNotification(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == LoadingNotificationID {
			s.notifications[i].Message = message
			return
		}
	}

	s.notifications = append(s.notifications, Notification{
		ID:        LoadingNotificationID,
		Type:      NotificationLoading,
		Message:   message,
		CreatedAt: time.Now(),
	})
}

// ClearLoadingNotification removes the loading notification.
func (s *State) ClearLoadingNotification() {
	s.RemoveNotification(LoadingNotificationID)
}

// GetLastUpdated returns the last time the state was updated.
func (s *State) GetLastUpdated() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastUpdated
}

// TimeSinceUpdate returns the duration since the last update.
func (s *State) TimeSinceUpdate() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.LastUpdated.IsZero() {
		return 0
	}
	return time.Since(s.LastUpdated)
}
