package info

import (
	"fmt"
	"runtime"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/ai-dispatch-tui/internal/models"
	"github.com/j-veylop/ai-dispatch-tui/internal/ui/styles"
	"github.com/j-veylop/ai-dispatch-tui/internal/version"
)

// View renders the info tab.
func (m *Model) View() string {
	sections := []string{m.renderTitle()}

	if m.config == nil {
		sections = append(sections, styles.HelpStyle.Render("Configuration not loaded"))
	} else {
		sections = append(sections,
			m.renderBackendsCard(),
			m.renderDispatchCard(),
			m.renderPathsCard(),
		)
	}
	sections = append(sections, m.renderAboutCard())

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	m.viewport.SetContent(content)

	return styles.DocStyle.
		Width(m.width).
		Height(m.height).
		Render(m.viewport.View())
}

// renderTitle renders the info tab title.
func (m *Model) renderTitle() string {
	title := styles.TitleStyle.Render("Info")
	subtitle := styles.HelpStyle.Render("Configuration and application information")

	return lipgloss.JoinVertical(lipgloss.Left, title, subtitle, "")
}

func (m *Model) cardWidth() int {
	return min(max(m.width-6, 50), 90)
}

func (m *Model) card(title string, rows ...string) string {
	body := append([]string{styles.CardTitleStyle.Render(title)}, rows...)
	return styles.CardStyle.Width(m.cardWidth()).Render(
		lipgloss.JoinVertical(lipgloss.Left, body...),
	)
}

// renderBackendsCard lists every backend with its configuration and last probe.
func (m *Model) renderBackendsCard() string {
	avail := m.state.GetAvailability()

	var rows []string
	for _, b := range models.AllBackends() {
		bc := m.config.Backend(b)

		name := lipgloss.NewStyle().
			Foreground(styles.BackendColor(b)).
			Bold(true).
			Width(16).
			Render(b.DisplayName())

		var status string
		switch {
		case !m.config.Configured(b):
			status = styles.UnavailableStyle.Render("not configured")
		case avail[b]:
			status = styles.SuccessTextStyle.Render("available")
		default:
			status = styles.WarningTextStyle.Render("unreachable")
		}

		rows = append(rows, name+" "+status)
		rows = append(rows, m.renderConfigRow("  Model", orDash(bc.Model)))
		endpoint := bc.BaseURL
		if endpoint == "" {
			endpoint = bc.Endpoint
		}
		rows = append(rows, m.renderConfigRow("  Endpoint", orDash(endpoint)))
		if b == models.BackendErnie {
			rows = append(rows, m.renderConfigRow("  Token URL", orDash(bc.TokenURL)))
		}
		if b.IsCloud() {
			rows = append(rows, m.renderConfigRow("  Credentials", credentials(b, bc.APIKey, bc.SecretKey)))
		}
		rows = append(rows, m.renderConfigRow("  Timeout", bc.Timeout.String()), "")
	}

	rows = append(rows, styles.HelpStyle.Render("Press 'p' to probe backends again"))
	return m.card("Backends", rows...)
}

func (m *Model) renderDispatchCard() string {
	c := m.config

	retention := c.Retention.String()
	if c.Retention == 0 {
		retention = "forever"
	}

	return m.card("Dispatch",
		m.renderConfigRow("Max Retries", strconv.Itoa(c.MaxRetries)),
		m.renderConfigRow("Retry Delay", c.RetryDelay.String()),
		m.renderConfigRow("Request Timeout", c.RequestTimeout.String()),
		m.renderConfigRow("Prefer Local", onOff(c.PreferLocal)),
		m.renderConfigRow("Fallback", onOff(c.FallbackEnabled)),
		m.renderConfigRow("Cloud for Complex", onOff(c.UseCloudForComplex)),
		m.renderConfigRow("Probe Local", onOff(c.ProbeLocal)),
		m.renderConfigRow("Notifications", onOff(c.Notify)),
		m.renderConfigRow("Keep History", retention),
	)
}

func (m *Model) renderPathsCard() string {
	c := m.config
	return m.card("Files",
		m.renderConfigRow("Database", c.DatabasePath),
		m.renderConfigRow("Jobs File", c.JobsPath),
		m.renderConfigRow("Log File", orDash(c.LogPath)),
		m.renderConfigRow("Log Level", orDash(c.LogLevel)),
	)
}

// renderConfigRow renders a configuration key-value row.
func (m *Model) renderConfigRow(label, value string) string {
	labelStyle := lipgloss.NewStyle().
		Width(20).
		Foreground(styles.TextMuted)

	valueStyle := lipgloss.NewStyle().
		Foreground(styles.TextPrimary)

	return labelStyle.Render(label+":") + " " + valueStyle.Render(value)
}

// renderAboutCard renders the about/version information card.
func (m *Model) renderAboutCard() string {
	summary := m.state.GetJobSummary()
	return m.card("About AI Dispatch",
		m.renderConfigRow("Version", version.GetVersion()),
		m.renderConfigRow("Build Date", version.GetDate()),
		m.renderConfigRow("Git Commit", version.GetCommit()),
		m.renderConfigRow("Go Version", runtime.Version()),
		m.renderConfigRow("Platform", fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)),
		"",
		fmt.Sprintf("Jobs: %s", styles.InfoTextStyle.Render(strconv.Itoa(summary.Total()))),
	)
}

// credentials reports which secrets are set without revealing them.
func credentials(b models.Backend, apiKey, secretKey string) string {
	if apiKey == "" {
		return styles.ErrorTextStyle.Render("API key missing")
	}
	if b == models.BackendErnie && secretKey == "" {
		return styles.ErrorTextStyle.Render("secret key missing")
	}
	return "set (" + mask(apiKey) + ")"
}

func mask(secret string) string {
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
