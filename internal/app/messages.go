package app

import (
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

// TickMsg is sent periodically to trigger state refresh.
type TickMsg struct {
	Time time.Time
}

// StartLoadingMsg signals that a resource is starting to load.
type StartLoadingMsg struct {
	Resource string
}

// StopLoadingMsg signals that a resource has finished loading.
type StopLoadingMsg struct {
	Resource string
}

// StateLoadedMsg contains the jobs and statistics read at startup or on refresh.
type StateLoadedMsg struct {
	Jobs  []models.Job
	Stats services.StatsEvent
}

// StatsLoadedMsg contains loaded statistics.
type StatsLoadedMsg struct {
	Stats services.StatsEvent
}

// JobsChangedMsg is forwarded to tabs after the job queue changed.
type JobsChangedMsg struct {
	Jobs    []models.Job
	Summary models.JobSummary
}

// AvailabilityRefreshedMsg contains a freshly probed availability snapshot.
type AvailabilityRefreshedMsg struct {
	Availability engine.Availability
}

// DispatchCompletedMsg is forwarded to tabs after any dispatch finished.
type DispatchCompletedMsg struct {
	JobID  string
	Result models.Result
}

// SubmitPromptMsg requests queueing a new generation job.
type SubmitPromptMsg struct {
	Prompt     string
	Complexity models.Complexity
}

// RetryJobMsg requests retrying a failed job.
type RetryJobMsg struct {
	ID string
}

// RemoveJobMsg requests removing a job from the queue.
type RemoveJobMsg struct {
	ID string
}

// ClearFinishedMsg requests removing every done and failed job.
type ClearFinishedMsg struct{}

// JobActionResultMsg contains the outcome of a job queue operation.
type JobActionResultMsg struct {
	Error   error
	Action  string
	JobID   string
	Removed int
}

// RefreshMsg requests a refresh of data.
type RefreshMsg struct {
	Resource string // "all", "jobs", "stats", "availability"
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Message  string
	Type     NotificationType
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg triggers clearing of expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ServiceEventMsg wraps a service event from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SubscriptionEventMsg is the callback wrapper for service subscription.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ErrorMsg represents a general error.
type ErrorMsg struct {
	Error   error
	Context string
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}

// ToggleHelpMsg toggles the help display.
type ToggleHelpMsg struct{}
