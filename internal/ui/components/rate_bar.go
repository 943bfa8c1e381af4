package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/styles"
)

const (
	rateLowColor  = "#ff6b6b"
	rateHighColor = "#51cf66"
)

// RateBar renders a backend success rate as a gradient progress bar.
type RateBar struct {
	progress progress.Model
}

// NewRateBar creates a rate bar with a red to green gradient.
func NewRateBar() RateBar {
	return RateBar{
		progress: progress.New(
			progress.WithScaledGradient(rateLowColor, rateHighColor),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
	}
}

// View renders the bar with a label and the percentage.
func (r RateBar) View(percent float64, label string, width int) string {
	r.progress.Width = max(width-30, 10)

	labelStr := styles.ProgressLabelStyle.Width(18).Render(label)
	percentStr := styles.GetRateStyle(percent).
		Width(6).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return lipgloss.JoinHorizontal(lipgloss.Center,
		labelStr,
		r.progress.ViewAs(clampPercent(percent)/100),
		" ",
		percentStr,
	)
}

// ViewUnavailable renders an empty bar for a backend that cannot be selected.
func (r RateBar) ViewUnavailable(label, reason string, width int) string {
	barWidth := max(width-30, 10)

	return lipgloss.JoinHorizontal(lipgloss.Center,
		styles.ProgressLabelStyle.Width(18).Render(label),
		lipgloss.NewStyle().Foreground(styles.Subtle).Render(strings.Repeat("░", barWidth)),
		" ",
		styles.UnavailableStyle.Width(14).Align(lipgloss.Right).Render(reason),
	)
}

func clampPercent(p float64) float64 {
	return min(max(p, 0), 100)
}

// RenderGradientBar renders just the bar part with gradient colors.
func RenderGradientBar(percent float64, width int) string {
	if width < 1 {
		return ""
	}

	filled := int(float64(width) * clampPercent(percent) / 100)
	empty := lipgloss.NewStyle().Foreground(styles.Subtle)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i >= filled {
			b.WriteString(empty.Render("░"))
			continue
		}
		t := float64(i) / float64(max(1, width-1))
		color := interpolateColor(rateLowColor, rateHighColor, t)
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render("█"))
	}
	return b.String()
}

// SimpleRateBar renders a label, a gradient bar and the percentage on one line.
func SimpleRateBar(percent float64, label string, width int) string {
	const percentWidth = 6
	barWidth := max(width-lipgloss.Width(label)-percentWidth-5, 5)

	labelStr := lipgloss.NewStyle().Foreground(styles.TextSecondary).Render(label)
	percentStr := styles.GetRateStyle(percent).
		Width(percentWidth).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	return fmt.Sprintf("%s [%s] %s", labelStr, RenderGradientBar(percent, barWidth), percentStr)
}

// LoadingBar renders a shimmer animation for a backend whose first call is in flight.
func LoadingBar(accent lipgloss.Color, width, frame int) string {
	barWidth := max(width, 10)

	const cycle = 120
	t := float64(frame%cycle) / float64(cycle)
	p := t * 2
	if t >= 0.5 {
		p = (1 - t) * 2
	}
	eased := p * p * (3 - 2*p)
	shimmer := int(eased * float64(barWidth))

	near := lipgloss.NewStyle().Foreground(accent)
	mid := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	far := lipgloss.NewStyle().Foreground(styles.BgLight)

	var b strings.Builder
	for i := 0; i < barWidth; i++ {
		dist := shimmer - i
		if dist < 0 {
			dist = -dist
		}
		switch {
		case dist < 3:
			b.WriteString(near.Render("▓"))
		case dist < 5:
			b.WriteString(mid.Render("▒"))
		default:
			b.WriteString(far.Render("░"))
		}
	}
	return b.String()
}

func interpolateColor(fromHex, toHex string, t float64) string {
	from := hexToRGB(fromHex)
	to := hexToRGB(toHex)

	r := int(float64(from[0]) + t*(float64(to[0])-float64(from[0])))
	g := int(float64(from[1]) + t*(float64(to[1])-float64(from[1])))
	b := int(float64(from[2]) + t*(float64(to[2])-float64(from[2])))

	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func hexToRGB(hex string) [3]int {
	hex = strings.TrimPrefix(hex, "#")
	var r, g, b int
	if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
		logger.Error("failed to parse hex color", "hex", hex, "error", err)
		return [3]int{0, 0, 0}
	}
	return [3]int{r, g, b}
}
