package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/components"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/styles"
)

const (
	maxVisibleJobs    = 12
	outputPreviewRows = 8
)

// View renders the dashboard component.
func (m *Model) View() string {
	m.syncActivity()
	if m.state.IsInitialLoading() {
		return components.RenderActivityCentered(m.activity, m.width, m.height)
	}

	cardWidth := max(m.width-6, 40)

	sections := []string{
		m.renderTitle(),
		m.renderBackends(cardWidth),
	}
	if m.composing {
		sections = append(sections, m.renderComposer(cardWidth))
	}
	sections = append(sections,
		m.renderLastResult(cardWidth),
		m.renderJobs(cardWidth),
	)

	m.viewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, sections...))

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderTitle() string {
	title := lipgloss.JoinHorizontal(lipgloss.Top,
		styles.TitleStyle.Render("AI Dispatch"), "  ", m.activity.View())
	subtitle := styles.HelpStyle.Render("Complexity-routed generation across local and cloud models")
	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func cardHeader(icon, title string) string {
	return fmt.Sprintf("%s %s",
		lipgloss.NewStyle().Foreground(styles.Primary).Render(icon),
		styles.CardTitleStyle.Render(title))
}

// renderBackends renders one success rate row per backend.
func (m *Model) renderBackends(cardWidth int) string {
	rows := []string{cardHeader("◈", "Backends"), ""}

	stats := m.state.GetStats()
	avail := m.state.GetAvailability()
	byBackend := make(map[models.Backend]models.BackendStats)
	if stats != nil {
		for _, s := range stats.Backends {
			byBackend[s.Backend] = s
		}
	}

	contentWidth := cardWidth - 6
	for _, b := range models.AllBackends() {
		s, ok := byBackend[b]
		if !ok {
			s = models.BackendStats{Backend: b, Available: avail[b]}
		}
		rows = append(rows, m.renderBackendRow(s, avail[b], contentWidth)...)
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderBackendRow(s models.BackendStats, available bool, width int) []string {
	dot := lipgloss.NewStyle().Foreground(styles.BackendColor(s.Backend)).Render("●")
	if !available {
		dot = styles.UnavailableStyle.Render("○")
	}
	label := fmt.Sprintf("%s %s", dot, s.Backend.DisplayName())

	var bar string
	switch {
	case !available:
		bar = m.rateBar.ViewUnavailable(label, "unavailable", width)
	case s.TotalCalls == 0:
		bar = lipgloss.JoinHorizontal(lipgloss.Center,
			styles.ProgressLabelStyle.Width(18).Render(label),
			components.LoadingBar(styles.BackendColor(s.Backend), max(width-30, 10), m.animationFrame),
			styles.HelpStyle.Render("  no calls"),
		)
	default:
		bar = m.rateBar.View(m.displayedRate(s), label, width)
	}

	detail := fmt.Sprintf("   %d calls · %d ok · %d failed · avg %s",
		s.TotalCalls, s.SuccessCount, s.FailureCount, formatLatency(s.AvgLatency))
	if s.ConsecutiveFail > 1 {
		detail += styles.WarningTextStyle.Render(fmt.Sprintf(" · %d failures in a row", s.ConsecutiveFail))
	}

	lines := []string{bar, styles.HelpStyle.Render(detail)}
	if s.LastError != "" {
		lines = append(lines, styles.ErrorTextStyle.Render("   last error: "+ansi.Truncate(s.LastError, max(width-16, 10), "…")))
	}
	return append(lines, "")
}

func formatLatency(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
}

func (m *Model) renderComposer(cardWidth int) string {
	complexity := styles.InfoTextStyle.Render(m.complexity.String())
	rows := []string{
		cardHeader("✎", "New prompt"),
		"",
		m.input.View(),
		"",
		styles.HelpStyle.Render("complexity: ") + complexity +
			styles.HelpStyle.Render("   tab cycle · enter queue · esc cancel"),
	}
	return styles.FocusedBorderStyle.Width(cardWidth).Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderLastResult shows the most recent dispatch outcome.
func (m *Model) renderLastResult(cardWidth int) string {
	rows := []string{cardHeader("◎", "Last result"), ""}

	r, jobID := m.state.GetLastResult()
	if r == nil {
		rows = append(rows, styles.HelpStyle.Render("  No dispatch yet"))
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	source := "direct"
	if jobID != "" {
		source = "job " + shortID(jobID)
	}

	status := styles.SuccessTextStyle.Render("✓ success")
	if !r.Success {
		status = styles.ErrorTextStyle.Render("✗ " + string(r.Kind))
	}
	header := fmt.Sprintf("  %s  %s  %s  %s",
		status,
		lipgloss.NewStyle().Foreground(styles.BackendColor(r.Backend)).Bold(true).Render(r.Backend.DisplayName()),
		styles.HelpStyle.Render(r.Model),
		styles.HelpStyle.Render(fmt.Sprintf("%s · %s", formatLatency(r.Elapsed), source)),
	)
	if r.Degraded {
		header += "  " + styles.DegradedStyle.Render("DEGRADED")
	}
	rows = append(rows, header, "")

	body := r.Output
	if !r.Success {
		body = r.Error
	}
	rows = append(rows, preview(body, cardWidth-8, outputPreviewRows)...)

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderJobs renders the job queue with the selected job highlighted.
func (m *Model) renderJobs(cardWidth int) string {
	summary := m.state.GetJobSummary()
	title := fmt.Sprintf("Jobs  %d pending · %d running · %d done · %d failed",
		summary.Pending, summary.Running, summary.Done, summary.Failed)
	rows := []string{cardHeader("≡", title), ""}

	jobs := m.state.GetJobs()
	if len(jobs) == 0 {
		rows = append(rows,
			styles.HelpStyle.Render("  No jobs queued"),
			"",
			styles.InfoTextStyle.Render("  ╰─▶ Press n to queue a prompt or add entries to jobs.json"),
		)
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	selected := m.state.GetSelectedJobIndex()
	start := max(0, min(selected-maxVisibleJobs/2, len(jobs)-maxVisibleJobs))
	end := min(len(jobs), start+maxVisibleJobs)

	promptWidth := max(cardWidth-44, 16)
	for i := start; i < end; i++ {
		rows = append(rows, renderJobRow(jobs[i], i == selected, promptWidth))
	}
	if end-start < len(jobs) {
		rows = append(rows, styles.HelpStyle.Render(fmt.Sprintf("  showing %d-%d of %d", start+1, end, len(jobs))))
	}

	if m.showOutput {
		if job, ok := m.state.SelectedJobItem(); ok {
			rows = append(rows, "", m.renderJobDetail(job, cardWidth-8))
		}
	}

	return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderJobRow(job models.Job, selected bool, promptWidth int) string {
	prefix := "  "
	if selected {
		prefix = styles.FocusedStyle.Render("▸ ")
	}

	status := styles.JobStatusStyle(job.Status).Width(8).Render(string(job.Status))
	complexity := styles.HelpStyle.Width(9).Render(job.Complexity.String())
	prompt := ansi.Truncate(strings.Join(strings.Fields(job.Prompt), " "), promptWidth, "…")

	backend := ""
	if job.Backend != "" && job.Backend != models.BackendNone {
		backend = lipgloss.NewStyle().Foreground(styles.BackendColor(job.Backend)).Render(string(job.Backend))
		if job.Degraded {
			backend += styles.DegradedStyle.Render("*")
		}
	}

	return fmt.Sprintf("%s%s %s %s  %s", prefix, status, complexity, prompt, backend)
}

func (m *Model) renderJobDetail(job models.Job, width int) string {
	lines := []string{
		styles.SubTitleStyle.Render("Job " + job.ID),
		styles.HelpStyle.Render("prompt: ") + ansi.Truncate(job.Prompt, width-8, "…"),
	}
	if job.CompletedAt != nil {
		lines = append(lines, styles.HelpStyle.Render("completed: "+job.CompletedAt.Local().Format(time.DateTime)))
	}
	switch job.Status {
	case models.JobDone:
		lines = append(lines, preview(job.Output, width, outputPreviewRows)...)
	case models.JobFailed:
		lines = append(lines, styles.ErrorTextStyle.Render(job.Error))
	default:
		lines = append(lines, styles.HelpStyle.Render("waiting for a backend..."))
	}
	return styles.BlurredBorderStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// preview wraps text to width and keeps at most rows lines.
func preview(text string, width, rows int) []string {
	wrapped := strings.Split(ansi.Wordwrap(strings.TrimSpace(text), max(width, 10), ""), "\n")
	if len(wrapped) > rows {
		wrapped = append(wrapped[:rows], styles.HelpStyle.Render(fmt.Sprintf("… %d more lines", len(wrapped)-rows)))
	}
	for i := range wrapped {
		wrapped[i] = "  " + wrapped[i]
	}
	return wrapped
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
