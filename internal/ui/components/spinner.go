package components

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-dispatch-tui/internal/ui/styles"
)

// ActivitySpinner shows what the dispatcher is busy with: probing backends,
// running queued jobs, or nothing.
type ActivitySpinner struct {
	spinner spinner.Model
	style   lipgloss.Style
	idle    lipgloss.Style
	probing bool
	running int
}

// NewActivitySpinner creates an idle activity spinner.
func NewActivitySpinner() ActivitySpinner {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return ActivitySpinner{
		spinner: s,
		style:   lipgloss.NewStyle().Foreground(styles.TextSecondary),
		idle:    lipgloss.NewStyle().Foreground(styles.TextMuted),
	}
}

// Init starts the animation.
func (a ActivitySpinner) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update advances the animation on its own tick messages.
func (a ActivitySpinner) Update(msg tea.Msg) (ActivitySpinner, tea.Cmd) {
	var cmd tea.Cmd
	a.spinner, cmd = a.spinner.Update(msg)
	return a, cmd
}

// Tick returns the command that restarts the animation.
func (a ActivitySpinner) Tick() tea.Cmd {
	return a.spinner.Tick
}

// Set records the current activity.
func (a *ActivitySpinner) Set(probing bool, running int) {
	a.probing = probing
	a.running = max(running, 0)
}

// Busy reports whether anything is in progress.
func (a ActivitySpinner) Busy() bool {
	return a.probing || a.running > 0
}

// Label describes the current activity.
func (a ActivitySpinner) Label() string {
	jobs := fmt.Sprintf("%d jobs", a.running)
	if a.running == 1 {
		jobs = "1 job"
	}

	switch {
	case a.probing && a.running > 0:
		return "Probing backends, running " + jobs
	case a.probing:
		return "Probing backends..."
	case a.running > 0:
		return "Running " + jobs
	default:
		return "Idle"
	}
}

// View renders the spinner and label while busy and a static dot when idle.
func (a ActivitySpinner) View() string {
	if !a.Busy() {
		return a.idle.Render("· " + a.Label())
	}
	return a.spinner.View() + " " + a.style.Render(a.Label())
}

// RenderActivityCentered renders the spinner centered in a given width and height.
func RenderActivityCentered(a ActivitySpinner, width, height int) string {
	return styles.CenterBoth(a.View(), width, height)
}
