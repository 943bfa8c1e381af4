// Package components provides reusable UI components for the TUI.
package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/j-veylop/ai-dispatch-tui/internal/ui/styles"
)

// Chart series colors.
var (
	ChartCallsColor  = lipgloss.Color("#7D56F4")
	ChartErrorsColor = lipgloss.Color("#ff5f87")
)

// sparkChars are the eighth-block characters used by sparklines.
var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// HeatmapBlocks are Unicode block characters for heatmaps (low to high intensity).
var HeatmapBlocks = []rune{'░', '▒', '▓', '█'}

func clampChartSize(width, height int) (int, int) {
	return max(width, 20), max(height, 3)
}

func maxValue(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		m = max(m, v)
	}
	if m == 0 {
		return 1
	}
	return m
}

// level maps v onto 0..steps-1 relative to top.
func level(v, top float64, steps int) int {
	return min(max(int(v/top*float64(steps-1)), 0), steps-1)
}

// RenderLineChart creates a single-series ASCII line chart.
func RenderLineChart(data []float64, width, height int, caption string) string {
	if len(data) == 0 {
		return styles.HelpStyle.Render("No data available")
	}
	width, height = clampChartSize(width, height)

	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// RenderCallsChart plots calls and failures per bucket on one chart.
func RenderCallsChart(calls, errors []float64, width, height int, caption string) string {
	if len(calls) == 0 && len(errors) == 0 {
		return styles.HelpStyle.Render("No data available")
	}
	width, height = clampChartSize(width, height)

	n := max(len(calls), len(errors))
	callData := make([]float64, n)
	errorData := make([]float64, n)
	copy(callData, calls)
	copy(errorData, errors)

	return asciigraph.PlotMany([][]float64{callData, errorData},
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
		asciigraph.LowerBound(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
	)
}

// RenderBarChart creates a simple horizontal bar chart.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}

	top := maxValue(values)
	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	barWidth := max(width-labelWidth-10, 10)

	lines := make([]string, 0, len(values))
	for i, v := range values {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		barLen := max(int(v/top*float64(barWidth)), 0)
		lines = append(lines, fmt.Sprintf("%*s │%s %.0f", labelWidth, label, strings.Repeat("█", barLen), v))
	}

	return strings.Join(lines, "\n")
}

// RenderHourlyHeatmap renders 24 buckets as one colored strip, oldest first.
func RenderHourlyHeatmap(buckets []float64) string {
	padded := make([]float64, 24)
	copy(padded, buckets)
	top := maxValue(padded)

	intensityStyles := []lipgloss.Style{
		lipgloss.NewStyle().Foreground(styles.Subtle),
		lipgloss.NewStyle().Foreground(styles.Success),
		lipgloss.NewStyle().Foreground(styles.Warning),
		lipgloss.NewStyle().Foreground(styles.Error),
	}

	var b strings.Builder
	b.WriteString("-24h ")
	for i, v := range padded {
		lvl := level(v, top, len(HeatmapBlocks))
		b.WriteString(intensityStyles[lvl].Render(string(HeatmapBlocks[lvl])))
		if i == 11 {
			b.WriteString(" ")
		}
	}
	b.WriteString(" now")
	return b.String()
}

// RenderSparkline creates a compact inline sparkline, sampling values to width.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}

	top := maxValue(values)
	step := max(float64(len(values))/float64(width), 1)

	var b strings.Builder
	for i := 0; i < width && int(float64(i)*step) < len(values); i++ {
		v := values[int(float64(i)*step)]
		b.WriteRune(sparkChars[level(v, top, len(sparkChars))])
	}
	return b.String()
}

// RenderLegend creates a chart legend.
func RenderLegend(items []LegendItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		colorBox := lipgloss.NewStyle().Foreground(item.Color).Render("■")
		parts = append(parts, fmt.Sprintf("%s %s", colorBox, item.Label))
	}
	return strings.Join(parts, "  ")
}

// LegendItem represents a single legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}
