// Package dashboard provides the main dashboard tab: backend health, the last
// dispatch result and the job queue.
package dashboard

import (
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-dispatch-tui/internal/app"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/components"
)

const animationDuration = 1.5 // seconds

type animationTickMsg time.Time

func animationTickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*40, func(t time.Time) tea.Msg {
		return animationTickMsg(t)
	})
}

// keyMap defines the key bindings specific to the dashboard tab.
type keyMap struct {
	NextJob       key.Binding
	PrevJob       key.Binding
	FirstJob      key.Binding
	LastJob       key.Binding
	ToggleOutput  key.Binding
	NewPrompt     key.Binding
	Retry         key.Binding
	Delete        key.Binding
	ClearFinished key.Binding
	Submit        key.Binding
	Cancel        key.Binding
	Complexity    key.Binding
}

// defaultKeyMap returns the default key bindings for the dashboard tab.
func defaultKeyMap() keyMap {
	return keyMap{
		NextJob: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j", "next job"),
		),
		PrevJob: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k", "prev job"),
		),
		FirstJob: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "first job"),
		),
		LastJob: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "last job"),
		),
		ToggleOutput: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "show output"),
		),
		NewPrompt: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new prompt"),
		),
		Retry: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "retry failed job"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "delete"),
			key.WithHelp("d", "remove job"),
		),
		ClearFinished: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear finished"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "queue prompt"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Complexity: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "cycle complexity"),
		),
	}
}

// AnimationState tracks an eased transition of a success rate bar.
type AnimationState struct {
	StartTime      time.Time
	CurrentPercent float64
	TargetPercent  float64
	StartPercent   float64
}

// Model represents the dashboard tab state.
type Model struct {
	state          *app.State
	animations     map[models.Backend]*AnimationState
	activity       components.ActivitySpinner
	keys           keyMap
	viewport       viewport.Model
	input          textinput.Model
	rateBar        components.RateBar
	complexity     models.Complexity
	width          int
	height         int
	animationFrame int
	composing      bool
	showOutput     bool
}

// New creates a new dashboard model.
func New(state *app.State) *Model {
	ti := textinput.New()
	ti.Placeholder = "Describe what to generate..."
	ti.CharLimit = 4000
	ti.Prompt = "› "

	return &Model{
		state:      state,
		activity:   components.NewActivitySpinner(),
		rateBar:    components.NewRateBar(),
		keys:       defaultKeyMap(),
		viewport:   viewport.New(0, 0),
		input:      ti,
		complexity: models.ComplexityMedium,
		animations: make(map[models.Backend]*AnimationState),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.activity.Init(), animationTickCmd())
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case animationTickMsg:
		cmds = append(cmds, m.handleAnimationTick(msg))

	case app.StateLoadedMsg, app.StatsLoadedMsg, app.DispatchCompletedMsg, app.RefreshMsg:
		m.syncAnimationTargets(time.Now())
		cmds = append(cmds, animationTickCmd())

	case app.TabSwitchMsg:
		// Ticks are only delivered to the active tab
		if msg.Tab == app.TabDashboard {
			m.syncAnimationTargets(time.Now())
			cmds = append(cmds, animationTickCmd(), m.activity.Tick())
		}

	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyMsg(msg))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.activity, cmd = m.activity.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAnimationTick(msg animationTickMsg) tea.Cmd {
	m.animationFrame++
	now := time.Time(msg)

	animating := m.syncAnimationTargets(now)
	m.stepAnimations(now)

	if animating || m.state.IsInitialLoading() {
		return animationTickCmd()
	}
	return nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.composing {
		return m.handleComposeKey(msg)
	}

	jobs := m.state.GetJobs()
	selected := m.state.GetSelectedJobIndex()

	switch {
	case key.Matches(msg, m.keys.NextJob):
		if len(jobs) > 0 {
			m.state.SetSelectedJobIndex((selected + 1) % len(jobs))
		}
	case key.Matches(msg, m.keys.PrevJob):
		if len(jobs) > 0 {
			m.state.SetSelectedJobIndex((selected - 1 + len(jobs)) % len(jobs))
		}
	case key.Matches(msg, m.keys.FirstJob):
		m.state.SetSelectedJobIndex(0)
	case key.Matches(msg, m.keys.LastJob):
		m.state.SetSelectedJobIndex(len(jobs) - 1)
	case key.Matches(msg, m.keys.ToggleOutput):
		m.showOutput = !m.showOutput
	case key.Matches(msg, m.keys.NewPrompt):
		m.composing = true
		m.input.Reset()
		m.state.SetCapturingKeys(true)
		return m.input.Focus()
	case key.Matches(msg, m.keys.Retry):
		if job, ok := m.state.SelectedJobItem(); ok && job.Status == models.JobFailed {
			return func() tea.Msg { return app.RetryJobMsg{ID: job.ID} }
		}
	case key.Matches(msg, m.keys.Delete):
		if job, ok := m.state.SelectedJobItem(); ok && job.Status != models.JobRunning {
			return func() tea.Msg { return app.RemoveJobMsg{ID: job.ID} }
		}
	case key.Matches(msg, m.keys.ClearFinished):
		return func() tea.Msg { return app.ClearFinishedMsg{} }
	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) handleComposeKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.stopComposing()
		return nil

	case key.Matches(msg, m.keys.Complexity):
		m.complexity = nextComplexity(m.complexity)
		return nil

	case key.Matches(msg, m.keys.Submit):
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return nil
		}
		complexity := m.complexity
		m.stopComposing()
		return func() tea.Msg {
			return app.SubmitPromptMsg{Prompt: prompt, Complexity: complexity}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *Model) stopComposing() {
	m.composing = false
	m.input.Blur()
	m.input.Reset()
	m.state.SetCapturingKeys(false)
}

func nextComplexity(c models.Complexity) models.Complexity {
	if c >= models.ComplexityAdvanced {
		return models.ComplexitySimple
	}
	return c + 1
}

// SetSize sets the available size for the dashboard.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.input.Width = max(width-20, 20)
}

// syncAnimationTargets points every backend animation at its current
// success rate and reports whether any bar is still moving.
func (m *Model) syncAnimationTargets(now time.Time) bool {
	stats := m.state.GetStats()
	if stats == nil {
		return false
	}

	animating := false
	for _, s := range stats.Backends {
		if s.TotalCalls == 0 {
			continue
		}
		if m.updateAnimationState(s.Backend, s.SuccessRate(), now) {
			animating = true
		}
	}
	return animating
}

func (m *Model) updateAnimationState(b models.Backend, target float64, now time.Time) bool {
	state, exists := m.animations[b]
	if !exists {
		state = &AnimationState{StartTime: now}
		m.animations[b] = state
	}

	if target != state.TargetPercent {
		state.StartPercent = state.CurrentPercent
		state.TargetPercent = target
		state.StartTime = now
	}

	return state.CurrentPercent != state.TargetPercent
}

func (m *Model) stepAnimations(now time.Time) {
	for _, state := range m.animations {
		if state.CurrentPercent == state.TargetPercent {
			continue
		}
		elapsed := now.Sub(state.StartTime).Seconds()
		if elapsed >= animationDuration {
			state.CurrentPercent = state.TargetPercent
			continue
		}
		progress := elapsed / animationDuration
		ease := 1.0 - (1.0-progress)*(1.0-progress)
		state.CurrentPercent = state.StartPercent + (state.TargetPercent-state.StartPercent)*ease
	}
}

// syncActivity points the activity spinner at the current probe and job state.
func (m *Model) syncActivity() {
	probing := m.state.IsInitialLoading() || slices.Contains(m.state.GetLoadingResources(), "availability")
	m.activity.Set(probing, m.state.GetJobSummary().Running)
}

// displayedRate returns the animated success rate of a backend.
func (m *Model) displayedRate(s models.BackendStats) float64 {
	if a, ok := m.animations[s.Backend]; ok {
		return a.CurrentPercent
	}
	return s.SuccessRate()
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	if m.composing {
		return []key.Binding{m.keys.Submit, m.keys.Complexity, m.keys.Cancel}
	}
	return []key.Binding{
		m.keys.NextJob,
		m.keys.PrevJob,
		m.keys.ToggleOutput,
		m.keys.NewPrompt,
		m.keys.Retry,
		m.keys.Delete,
		m.keys.ClearFinished,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.NextJob, m.keys.PrevJob, m.keys.FirstJob, m.keys.LastJob},
		{m.keys.NewPrompt, m.keys.Retry, m.keys.Delete, m.keys.ClearFinished},
		{m.keys.Submit, m.keys.Complexity, m.keys.Cancel},
	}
}
