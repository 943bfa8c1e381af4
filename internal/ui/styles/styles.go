// Package styles defines the visual styling for the application.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

// Color definitions for the dispatcher theme.
var (
	// Primary colors
	Primary   = lipgloss.Color("205") // Pink
	Secondary = lipgloss.Color("63")  // Purple
	Subtle    = lipgloss.Color("240") // Gray

	// Backend colors
	Local  = lipgloss.Color("42")  // Green
	Qwen   = lipgloss.Color("208") // Orange
	Ernie  = lipgloss.Color("33")  // Deep blue
	Gemini = lipgloss.Color("39")  // Blue

	// Status colors
	Success = lipgloss.Color("42")  // Green
	Error   = lipgloss.Color("196") // Red
	Warning = lipgloss.Color("220") // Yellow
	Info    = lipgloss.Color("39")  // Blue

	// Background colors
	BgDark  = lipgloss.Color("235")
	BgLight = lipgloss.Color("237")

	// Text colors
	TextPrimary   = lipgloss.Color("252")
	TextSecondary = lipgloss.Color("245")
	TextMuted     = lipgloss.Color("240")

	// ToastStyle for floating notifications.
	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1).
			MarginBottom(1)
)

// TitleStyle is used for main headings.
var TitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// SubTitleStyle is used for section headings.
var SubTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Secondary).
	MarginBottom(1)

// DocStyle provides consistent document margins.
var DocStyle = lipgloss.NewStyle().
	Margin(1, 2).
	Padding(0, 1)

// CardStyle creates a bordered card container.
var CardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(1, 2).
	MarginBottom(1)

// CardTitleStyle styles card headers.
var CardTitleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	MarginBottom(1)

// FocusedStyle is used for focused input elements.
var FocusedStyle = lipgloss.NewStyle().
	Foreground(Primary).
	Bold(true)

// FocusedBorderStyle creates a focused border.
var FocusedBorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Primary).
	Padding(0, 1)

// BlurredBorderStyle creates an unfocused border.
var BlurredBorderStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(Subtle).
	Padding(0, 1)

// ProgressLabelStyle styles progress bar labels.
var ProgressLabelStyle = lipgloss.NewStyle().
	Foreground(TextSecondary).
	Width(20)

// HelpStyle is the base style for help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(TextMuted)

// HelpPanelStyle creates the help overlay panel.
var HelpPanelStyle = lipgloss.NewStyle().
	Border(lipgloss.DoubleBorder()).
	BorderForeground(Primary).
	Padding(1, 3).
	Background(BgDark)

// TableHeaderStyle styles table headers.
var TableHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(Primary).
	BorderStyle(lipgloss.NormalBorder()).
	BorderBottom(true).
	BorderForeground(Subtle)

// RateHighStyle for healthy success rates (>90%).
var RateHighStyle = lipgloss.NewStyle().
	Foreground(Success)

// RateMediumStyle for degraded success rates (60-90%).
var RateMediumStyle = lipgloss.NewStyle().
	Foreground(Warning)

// RateLowStyle for failing backends (<60%).
var RateLowStyle = lipgloss.NewStyle().
	Foreground(Error)

// UnavailableStyle marks backends missing from the availability snapshot.
var UnavailableStyle = lipgloss.NewStyle().
	Foreground(Subtle).
	Italic(true)

// DegradedStyle marks results served by the local fallback for advanced requests.
var DegradedStyle = lipgloss.NewStyle().
	Foreground(Warning).
	Bold(true)

// ErrorTextStyle for error messages.
var ErrorTextStyle = lipgloss.NewStyle().
	Foreground(Error)

// SuccessTextStyle for success messages.
var SuccessTextStyle = lipgloss.NewStyle().
	Foreground(Success)

// WarningTextStyle for warning messages.
var WarningTextStyle = lipgloss.NewStyle().
	Foreground(Warning)

// InfoTextStyle for info messages.
var InfoTextStyle = lipgloss.NewStyle().
	Foreground(Info)

// GetRateStyle returns the style for a success rate percentage.
func GetRateStyle(percent float64) lipgloss.Style {
	switch {
	case percent > 90:
		return RateHighStyle
	case percent >= 60:
		return RateMediumStyle
	default:
		return RateLowStyle
	}
}

// BackendColor returns the accent color of a backend.
func BackendColor(b models.Backend) lipgloss.Color {
	switch b {
	case models.BackendLocal:
		return Local
	case models.BackendQwen:
		return Qwen
	case models.BackendErnie:
		return Ernie
	case models.BackendGemini:
		return Gemini
	default:
		return Subtle
	}
}

// JobStatusStyle returns the style for a job status label.
func JobStatusStyle(status models.JobStatus) lipgloss.Style {
	switch status {
	case models.JobDone:
		return SuccessTextStyle
	case models.JobFailed:
		return ErrorTextStyle
	case models.JobRunning:
		return InfoTextStyle.Bold(true)
	default:
		return HelpStyle
	}
}

// CenterBoth centers content both horizontally and vertically.
func CenterBoth(content string, width, height int) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center).
		AlignVertical(lipgloss.Center).
		Render(content)
}
