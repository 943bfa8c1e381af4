package dashboard

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/ai-dispatch-tui/internal/app"
	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/services"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedState() *app.State {
	state := app.NewState()
	state.SetLoading("initial", false)
	state.SetAvailability(engine.Availability{models.BackendLocal: true, models.BackendQwen: true})
	state.SetStats(services.StatsEvent{Backends: []models.BackendStats{
		{Backend: models.BackendLocal, TotalCalls: 10, SuccessCount: 9, FailureCount: 1, AvgLatency: 420 * time.Millisecond, Available: true},
		{Backend: models.BackendQwen, TotalCalls: 4, SuccessCount: 1, FailureCount: 3, ConsecutiveFail: 3, LastError: "HTTP 503", Available: true},
		{Backend: models.BackendErnie},
		{Backend: models.BackendGemini},
	}})
	state.SetJobs([]models.Job{
		{ID: "job-done-1234567", Prompt: "write a haiku", Status: models.JobDone, Complexity: models.ComplexitySimple, Backend: models.BackendLocal, Output: "autumn moon"},
		{ID: "job-failed", Prompt: "translate", Status: models.JobFailed, Complexity: models.ComplexityAdvanced, Error: "all backends failed"},
		{ID: "job-running", Prompt: "summarize", Status: models.JobRunning, Complexity: models.ComplexityMedium},
	}, models.JobSummary{Done: 1, Failed: 1, Running: 1})
	return state
}

func TestModel_Init(t *testing.T) {
	m := New(app.NewState())
	if m.Init() == nil {
		t.Error("Init returned nil")
	}
}

func TestModel_ViewLoading(t *testing.T) {
	m := New(app.NewState())
	m.SetSize(80, 24)
	assert.Contains(t, m.View(), "Probing backends")
}

func TestModel_View(t *testing.T) {
	state := loadedState()
	state.SetLastResult("job-done-1234567", models.Result{
		Success: true, Output: "autumn moon", Backend: models.BackendLocal, Model: "qwen2.5:7b",
		Elapsed: 1500 * time.Millisecond, Degraded: true,
	})

	m := New(state)
	m.SetSize(140, 300)
	view := ansi.Strip(m.View())

	for _, want := range []string{
		"Backends", "Local (Ollama)", "90%", "HTTP 503", "3 failures in a row",
		"unavailable", "Last result", "DEGRADED", "job job-done", "1.5s",
		"0 pending", "write a haiku", "translate", "failed", "Running 1 job",
	} {
		assert.Contains(t, view, want)
	}
}

func TestModel_ViewEmpty(t *testing.T) {
	state := app.NewState()
	state.SetLoading("initial", false)

	m := New(state)
	m.SetSize(120, 200)
	view := ansi.Strip(m.View())

	assert.Contains(t, view, "No dispatch yet")
	assert.Contains(t, view, "No jobs queued")
	assert.Contains(t, view, "Idle")
}

func TestModel_Animation(t *testing.T) {
	m := New(loadedState())

	start := time.Now()
	cmd := m.handleAnimationTick(animationTickMsg(start))
	assert.NotNil(t, cmd, "bars should still be moving")

	// Past the animation duration every bar reaches its target
	m.handleAnimationTick(animationTickMsg(start.Add(2 * time.Second)))
	assert.InDelta(t, 90, m.animations[models.BackendLocal].CurrentPercent, 0.001)
	assert.InDelta(t, 25, m.animations[models.BackendQwen].CurrentPercent, 0.001)
	assert.NotContains(t, m.animations, models.BackendErnie)

	assert.Nil(t, m.handleAnimationTick(animationTickMsg(start.Add(3*time.Second))))
}

func TestModel_JobNavigation(t *testing.T) {
	state := loadedState()
	m := New(state)

	m.handleKeyMsg(runes("j"))
	assert.Equal(t, 1, state.GetSelectedJobIndex())

	m.handleKeyMsg(runes("k"))
	m.handleKeyMsg(runes("k"))
	assert.Equal(t, 2, state.GetSelectedJobIndex(), "navigation wraps")

	m.handleKeyMsg(runes("g"))
	assert.Equal(t, 0, state.GetSelectedJobIndex())

	m.handleKeyMsg(runes("G"))
	assert.Equal(t, 2, state.GetSelectedJobIndex())

	m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, m.showOutput)
}

func TestModel_JobActions(t *testing.T) {
	state := loadedState()
	m := New(state)

	// Done jobs cannot be retried
	assert.Nil(t, m.handleKeyMsg(runes("R")))

	cmd := m.handleKeyMsg(runes("d"))
	require.NotNil(t, cmd)
	assert.Equal(t, app.RemoveJobMsg{ID: "job-done-1234567"}, cmd())

	state.SetSelectedJobIndex(1)
	cmd = m.handleKeyMsg(runes("R"))
	require.NotNil(t, cmd)
	assert.Equal(t, app.RetryJobMsg{ID: "job-failed"}, cmd())

	// Running jobs cannot be removed
	state.SetSelectedJobIndex(2)
	assert.Nil(t, m.handleKeyMsg(runes("d")))

	cmd = m.handleKeyMsg(runes("c"))
	require.NotNil(t, cmd)
	assert.Equal(t, app.ClearFinishedMsg{}, cmd())
}

func TestModel_ComposePrompt(t *testing.T) {
	state := loadedState()
	m := New(state)
	m.SetSize(120, 200)

	m.handleKeyMsg(runes("n"))
	require.True(t, m.composing)
	assert.True(t, state.IsCapturingKeys())
	assert.Len(t, m.ShortHelp(), 3)

	// Typed keys go to the input, including ones bound outside compose mode
	m.handleKeyMsg(runes("draft"))
	m.handleKeyMsg(runes("d"))
	assert.Equal(t, "draftd", m.input.Value())
	assert.True(t, strings.Contains(ansi.Strip(m.View()), "New prompt"))

	m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, models.ComplexityComplex, m.complexity)

	cmd := m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, app.SubmitPromptMsg{Prompt: "draftd", Complexity: models.ComplexityComplex}, cmd())
	assert.False(t, m.composing)
	assert.False(t, state.IsCapturingKeys())
	assert.Empty(t, m.input.Value())
}

func TestModel_ComposeCancelAndEmpty(t *testing.T) {
	state := loadedState()
	m := New(state)

	m.handleKeyMsg(runes("n"))
	assert.Nil(t, m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEnter}), "empty prompt is not submitted")
	assert.True(t, m.composing)

	m.handleKeyMsg(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.composing)
	assert.False(t, state.IsCapturingKeys())
}

func TestNextComplexity(t *testing.T) {
	assert.Equal(t, models.ComplexityMedium, nextComplexity(models.ComplexitySimple))
	assert.Equal(t, models.ComplexitySimple, nextComplexity(models.ComplexityAdvanced))
}

func TestFormatLatency(t *testing.T) {
	assert.Equal(t, "-", formatLatency(0))
	assert.Equal(t, "250ms", formatLatency(250*time.Millisecond))
	assert.Equal(t, "2.5s", formatLatency(2500*time.Millisecond))
}

func TestPreview(t *testing.T) {
	text := strings.Repeat("line\n", 20)
	lines := preview(text, 40, 5)
	require.Len(t, lines, 6)
	assert.Contains(t, ansi.Strip(lines[5]), "15 more lines")
}

func TestModel_Help(t *testing.T) {
	m := New(app.NewState())
	assert.NotEmpty(t, m.ShortHelp())
	assert.NotEmpty(t, m.FullHelp())
}

func TestModel_TabSwitchRestartsTicks(t *testing.T) {
	m := New(loadedState())

	_, cmd := m.Update(app.TabSwitchMsg{Tab: app.TabDashboard})
	assert.NotNil(t, cmd)

	_, cmd = m.Update(app.TabSwitchMsg{Tab: app.TabHistory})
	assert.Nil(t, cmd)
}
