package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/ai-dispatch-tui/internal/ui/components"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/styles"
)

// View renders the history tab.
func (m *Model) View() string {
	if m.data == nil {
		if m.errorMsg != "" {
			return m.renderError()
		}
		return m.renderLoading()
	}
	if !m.data.HasData() {
		return m.renderEmpty()
	}

	sections := []string{
		m.renderHeader(),
		m.renderTotals(),
		m.renderCallsChart(),
		m.renderHourlyPattern(),
		m.renderBackends(),
		m.renderRecentCalls(),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)
	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

func (m *Model) renderLoading() string {
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(styles.HelpStyle.Render("Loading call history..."))
}

func (m *Model) renderError() string {
	content := fmt.Sprintf("%s %s",
		styles.ErrorTextStyle.Render("Error:"),
		m.errorMsg,
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) renderEmpty() string {
	content := lipgloss.JoinVertical(lipgloss.Left,
		styles.TitleStyle.Render("History"),
		"",
		styles.HelpStyle.Render("No calls logged yet."),
		styles.HelpStyle.Render("Every backend attempt is recorded once a prompt is dispatched."),
	)
	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(content)
}

func (m *Model) cardWidth() int {
	return max(m.width-6, 40)
}

func (m *Model) renderHeader() string {
	title := styles.TitleStyle.Render("History")

	rangeStyle := lipgloss.NewStyle().
		Foreground(styles.Primary).
		Bold(true).
		Padding(0, 1).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Primary)

	rangeIndicator := rangeStyle.Render(fmt.Sprintf("[t] %s", m.data.rng.String()))

	header := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", rangeIndicator)

	subtitle := styles.HelpStyle.Render(fmt.Sprintf("Updated %s", m.lastRefresh.Format("15:04:05")))
	if m.errorMsg != "" {
		subtitle = styles.ErrorTextStyle.Render("Refresh failed: " + m.errorMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, subtitle, "")
}

func (m *Model) renderTotals() string {
	t := m.data.totals

	errorRate := 0.0
	if t.TotalCalls > 0 {
		errorRate = float64(t.ErrorCount) / float64(t.TotalCalls) * 100
	}

	label := lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(14)
	value := lipgloss.NewStyle().Foreground(styles.TextPrimary).Bold(true)

	line := func(name, v string) string {
		return label.Render(name) + value.Render(v)
	}

	rows := []string{
		styles.CardTitleStyle.Render("Totals"),
		line("Attempts", fmt.Sprintf("%d", t.TotalCalls)),
		line("Requests", fmt.Sprintf("%d", t.UniqueRequests)),
		line("Errors", fmt.Sprintf("%d (%.1f%%)", t.ErrorCount, errorRate)),
		line("Tokens", fmt.Sprintf("%d", t.TotalTokens)),
		line("Avg latency", fmt.Sprintf("%.0fms", t.AvgDurationMs)),
		line("Backends", fmt.Sprintf("%d (%d models)", t.UniqueBackends, t.UniqueModels)),
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderCallsChart() string {
	cardWidth := m.cardWidth()

	rows := []string{styles.CardTitleStyle.Render("Calls per Hour")}

	calls, errs := m.data.series()
	chartWidth := max(cardWidth-12, 30)
	chart := components.RenderCallsChart(calls, errs, chartWidth, 8, m.data.rng.String())
	for line := range strings.SplitSeq(chart, "\n") {
		rows = append(rows, "  "+line)
	}

	rows = append(rows, "", "  "+components.RenderLegend([]components.LegendItem{
		{Label: "attempts", Color: components.ChartCallsColor},
		{Label: "errors", Color: components.ChartErrorsColor},
	}))

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderHourlyPattern() string {
	calls, _ := m.data.series()
	last := calls[max(len(calls)-24, 0):]

	peak, peakIdx := 0.0, 0
	for i, v := range last {
		if v > peak {
			peak, peakIdx = v, i
		}
	}

	rows := []string{
		styles.CardTitleStyle.Render("Last 24 Hours"),
		"  " + components.RenderHourlyHeatmap(last),
	}
	if peak > 0 {
		ago := len(last) - 1 - peakIdx
		when := "this hour"
		if ago > 0 {
			when = fmt.Sprintf("%dh ago", ago)
		}
		rows = append(rows, "", fmt.Sprintf("  Busiest: %s (%s attempts)",
			lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Render(when),
			fmt.Sprintf("%.0f", peak),
		))
	}

	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderBackends() string {
	cardWidth := m.cardWidth()
	rows := []string{styles.CardTitleStyle.Render("By Backend")}

	if len(m.data.backends) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  No backend data"))
		return styles.CardStyle.Width(cardWidth).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
	}

	values := make([]float64, len(m.data.backends))
	labels := make([]string, len(m.data.backends))
	for i, b := range m.data.backends {
		values[i] = float64(b.TotalCalls)
		labels[i] = string(b.Backend)
	}
	for line := range strings.SplitSeq(components.RenderBarChart(values, labels, max(cardWidth-12, 30)), "\n") {
		rows = append(rows, "  "+line)
	}

	rows = append(rows, "", "  "+styles.TableHeaderStyle.Render(
		fmt.Sprintf("%-16s %8s %8s %8s %10s", "Backend", "Calls", "Success", "Tokens", "Avg"),
	))
	for _, b := range m.data.backends {
		rate := 0.0
		if b.TotalCalls > 0 {
			rate = float64(b.SuccessCount) / float64(b.TotalCalls) * 100
		}
		rateCell := styles.GetRateStyle(rate).Render(fmt.Sprintf("%7.0f%%", rate))
		name := lipgloss.NewStyle().Foreground(styles.BackendColor(b.Backend)).
			Render(fmt.Sprintf("%-16s", b.Backend.DisplayName()))
		rows = append(rows, fmt.Sprintf("  %s %8d %s %8d %8.0fms",
			name, b.TotalCalls, rateCell, b.TotalTokens, b.AvgDurationMs))
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}

func (m *Model) renderRecentCalls() string {
	cardWidth := m.cardWidth()
	rows := []string{styles.CardTitleStyle.Render("Recent Attempts")}

	if len(m.data.recent) == 0 {
		rows = append(rows, styles.HelpStyle.Render("  Nothing logged"))
	}

	for _, c := range m.data.recent {
		status := styles.SuccessTextStyle.Render("ok  ")
		if !c.Success {
			status = styles.ErrorTextStyle.Render("fail")
		}
		line := fmt.Sprintf("  %s %s %-8s %-10s pass %d %6dms",
			c.Timestamp.Local().Format("15:04:05"),
			status,
			c.Backend,
			c.Complexity,
			c.Pass,
			c.DurationMs,
		)
		if c.Degraded {
			line += " " + styles.DegradedStyle.Render("DEGRADED")
		}
		if c.Error != "" {
			detail := c.Error
			if c.ErrorKind != "" {
				detail = c.ErrorKind + ": " + detail
			}
			line += " " + styles.HelpStyle.Render(ansi.Truncate(detail, max(cardWidth-60, 20), "…"))
		}
		rows = append(rows, line)
	}

	return styles.CardStyle.Width(cardWidth).Render(
		lipgloss.JoinVertical(lipgloss.Left, rows...),
	)
}
