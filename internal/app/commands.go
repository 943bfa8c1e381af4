package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// AvailabilityRefreshInterval is how often the local server is probed again.
	AvailabilityRefreshInterval = 30 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// QuickNotificationDuration is for brief notifications.
	QuickNotificationDuration = 3 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second

	availabilityTimeout = 5 * time.Second
)

// Job action names reported in JobActionResultMsg.
const (
	ActionSubmit = "submit"
	ActionRetry  = "retry"
	ActionRemove = "remove"
	ActionClear  = "clear"
)

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// loadStateCmd returns a command that loads jobs and statistics.
func loadStateCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		jobs, stats := mgr.InitialState()
		return StateLoadedMsg{Jobs: jobs, Stats: stats}
	}
}

// loadStatsCmd returns a command that loads statistics.
func loadStatsCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		return StatsLoadedMsg{Stats: mgr.GetStats()}
	}
}

// refreshAvailabilityCmd returns a command that probes the local server again.
func refreshAvailabilityCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), availabilityTimeout)
		defer cancel()
		return AvailabilityRefreshedMsg{Availability: mgr.RefreshAvailability(ctx)}
	}
}

// submitJobCmd returns a command that queues a prompt.
func submitJobCmd(mgr *services.Manager, prompt string, complexity models.Complexity) tea.Cmd {
	return func() tea.Msg {
		job, err := mgr.AddJob(models.Job{Prompt: prompt, Complexity: complexity})
		return JobActionResultMsg{Action: ActionSubmit, JobID: job.ID, Error: err}
	}
}

// retryJobCmd returns a command that requeues a failed job.
func retryJobCmd(mgr *services.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		return JobActionResultMsg{Action: ActionRetry, JobID: id, Error: mgr.RetryJob(id)}
	}
}

// removeJobCmd returns a command that deletes a job.
func removeJobCmd(mgr *services.Manager, id string) tea.Cmd {
	return func() tea.Msg {
		return JobActionResultMsg{Action: ActionRemove, JobID: id, Error: mgr.RemoveJob(id)}
	}
}

// clearFinishedCmd returns a command that deletes every finished job.
func clearFinishedCmd(mgr *services.Manager) tea.Cmd {
	return func() tea.Msg {
		n, err := mgr.ClearFinishedJobs()
		return JobActionResultMsg{Action: ActionClear, Removed: n, Error: err}
	}
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}

func notifyCmd(t NotificationType, message string, d time.Duration) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{Type: t, Message: message, Duration: d}
	}
}

// notifySuccessCmd returns a command that adds a success notification.
func notifySuccessCmd(message string) tea.Cmd {
	return notifyCmd(NotificationSuccess, message, DefaultNotificationDuration)
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return notifyCmd(NotificationError, message, LongNotificationDuration)
}

// notifyWarningCmd returns a command that adds a warning notification.
func notifyWarningCmd(message string) tea.Cmd {
	return notifyCmd(NotificationWarning, message, DefaultNotificationDuration)
}

// notifyInfoCmd returns a command that adds an info notification.
func notifyInfoCmd(message string) tea.Cmd {
	return notifyCmd(NotificationInfo, message, QuickNotificationDuration)
}

// Commands provides a public interface to the command functions.
type Commands struct {
	manager *services.Manager
}

// NewCommands creates a new Commands instance.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{manager: mgr}
}

// LoadState returns a command that loads jobs and statistics.
func (c *Commands) LoadState() tea.Cmd {
	return loadStateCmd(c.manager)
}

// LoadStats returns a command that loads statistics.
func (c *Commands) LoadStats() tea.Cmd {
	return loadStatsCmd(c.manager)
}

// RefreshAvailability returns a command that probes the local server again.
func (c *Commands) RefreshAvailability() tea.Cmd {
	return refreshAvailabilityCmd(c.manager)
}

// SubmitJob returns a command that queues a prompt.
func (c *Commands) SubmitJob(prompt string, complexity models.Complexity) tea.Cmd {
	return submitJobCmd(c.manager, prompt, complexity)
}

// RetryJob returns a command that requeues a failed job.
func (c *Commands) RetryJob(id string) tea.Cmd {
	return retryJobCmd(c.manager, id)
}

// RemoveJob returns a command that deletes a job.
func (c *Commands) RemoveJob(id string) tea.Cmd {
	return removeJobCmd(c.manager, id)
}

// ClearFinished returns a command that deletes every finished job.
func (c *Commands) ClearFinished() tea.Cmd {
	return clearFinishedCmd(c.manager)
}

// NotifySuccess returns a command that adds a success notification.
func (c *Commands) NotifySuccess(message string) tea.Cmd {
	return notifySuccessCmd(message)
}

// NotifyError returns a command that adds an error notification.
func (c *Commands) NotifyError(message string) tea.Cmd {
	return notifyErrorCmd(message)
}

// NotifyWarning returns a command that adds a warning notification.
func (c *Commands) NotifyWarning(message string) tea.Cmd {
	return notifyWarningCmd(message)
}

// NotifyInfo returns a command that adds an info notification.
func (c *Commands) NotifyInfo(message string) tea.Cmd {
	return notifyInfoCmd(message)
}
