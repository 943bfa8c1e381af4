// Package history provides the history tab for viewing call log statistics.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/ai-dispatch-tui/internal/app"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

const (
	recentCallsLimit = 15
	loadTimeout      = 5 * time.Second
)

// timeRange is the window of hourly statistics shown by the tab.
type timeRange int

const (
	range24Hours timeRange = iota
	range7Days
)

// Hours returns the number of hourly buckets covered by the range.
func (r timeRange) Hours() int {
	if r == range7Days {
		return 7 * 24
	}
	return 24
}

// Next cycles to the following range.
func (r timeRange) Next() timeRange {
	if r == range24Hours {
		return range7Days
	}
	return range24Hours
}

func (r timeRange) String() string {
	if r == range7Days {
		return "Last 7 days"
	}
	return "Last 24 hours"
}

// keyMap defines the key bindings specific to the history tab.
type keyMap struct {
	ToggleRange key.Binding
	Refresh     key.Binding
	Up          key.Binding
	Down        key.Binding
}

// defaultKeyMap returns the default key bindings for the history tab.
func defaultKeyMap() keyMap {
	return keyMap{
		ToggleRange: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "toggle time range"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
	}
}

// historyData is one snapshot of the call log.
type historyData struct {
	loadedAt time.Time
	totals   *models.TotalStats
	hourly   []models.HourlyStats
	backends []models.BackendTotals
	recent   []models.APICall
	rng      timeRange
}

// HasData reports whether any call has been logged.
func (d *historyData) HasData() bool {
	return d != nil && d.totals != nil && d.totals.TotalCalls > 0
}

// series expands the sparse hourly rows into dense, oldest-first call and
// error counts ending at the hour containing loadedAt.
func (d *historyData) series() (calls, errors []float64) {
	hours := d.rng.Hours()
	calls = make([]float64, hours)
	errors = make([]float64, hours)

	end := d.loadedAt.UTC().Truncate(time.Hour)
	for _, h := range d.hourly {
		age := int(end.Sub(h.Hour.UTC().Truncate(time.Hour)) / time.Hour)
		if age < 0 || age >= hours {
			continue
		}
		idx := hours - 1 - age
		calls[idx] += float64(h.TotalCalls)
		errors[idx] += float64(h.ErrorCount)
	}
	return calls, errors
}

// historyLoadedMsg is sent when history data is loaded.
type historyLoadedMsg struct {
	data *historyData
}

// historyErrorMsg is sent when there's an error loading history.
type historyErrorMsg struct {
	err string
}

// Model represents the history tab state.
type Model struct {
	state    *app.State
	services *services.Manager
	width    int
	height   int
	keys     keyMap
	viewport viewport.Model

	timeRange   timeRange
	data        *historyData
	loading     bool
	lastRefresh time.Time
	errorMsg    string
}

// New creates a new history model.
func New(state *app.State, svc *services.Manager) *Model {
	return &Model{
		state:     state,
		services:  svc,
		keys:      defaultKeyMap(),
		viewport:  viewport.New(0, 0),
		timeRange: range24Hours,
	}
}

// Init initializes the history tab.
func (m *Model) Init() tea.Cmd {
	return m.loadHistoryCmd()
}

// loadHistoryCmd creates a command to load history data.
func (m *Model) loadHistoryCmd() tea.Cmd {
	svc := m.services
	rng := m.timeRange
	return func() tea.Msg {
		if svc == nil {
			return historyErrorMsg{err: "Services not initialized"}
		}

		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		data := &historyData{loadedAt: time.Now(), rng: rng}
		var err error
		if data.totals, err = svc.GetTotalStats(ctx); err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		if data.hourly, err = svc.GetHourlyStats(ctx, rng.Hours()); err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		if data.backends, err = svc.GetBackendTotals(ctx); err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		if data.recent, err = svc.GetRecentCalls(ctx, recentCallsLimit); err != nil {
			return historyErrorMsg{err: err.Error()}
		}
		return historyLoadedMsg{data: data}
	}
}

// Update handles messages for the history tab.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case historyLoadedMsg:
		m.data = msg.data
		m.loading = false
		m.lastRefresh = time.Now()
		m.errorMsg = ""

	case historyErrorMsg:
		m.loading = false
		m.errorMsg = msg.err
		cmds = append(cmds, func() tea.Msg {
			return app.AddNotificationMsg{
				Type:     app.NotificationError,
				Message:  fmt.Sprintf("History error: %s", msg.err),
				Duration: app.LongNotificationDuration,
			}
		})

	case app.TabSwitchMsg:
		// Loads started while another tab was active never reach this one
		if msg.Tab == app.TabHistory {
			m.loading = true
			cmds = append(cmds, m.loadHistoryCmd())
		}

	case app.DispatchCompletedMsg:
		cmds = append(cmds, m.reload())

	case app.RefreshMsg:
		if msg.Resource == "" || msg.Resource == "all" || msg.Resource == "stats" {
			cmds = append(cmds, m.reload())
		}

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}

	return m, tea.Batch(cmds...)
}

// reload starts a load unless one is already in flight.
func (m *Model) reload() tea.Cmd {
	if m.loading {
		return nil
	}
	m.loading = true
	return m.loadHistoryCmd()
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd
	switch {
	case key.Matches(msg, m.keys.ToggleRange):
		m.timeRange = m.timeRange.Next()
		m.loading = true
		cmds = append(cmds, m.loadHistoryCmd())

	case key.Matches(msg, m.keys.Refresh):
		m.loading = true
		cmds = append(cmds, m.loadHistoryCmd())

	default:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// SetSize sets the available size for the history tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
}

// ShortHelp returns the key bindings for the short help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{
		m.keys.ToggleRange,
		m.keys.Refresh,
	}
}

// FullHelp returns the key bindings for the full help view.
func (m *Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.keys.ToggleRange, m.keys.Refresh},
		{m.keys.Up, m.keys.Down},
	}
}
