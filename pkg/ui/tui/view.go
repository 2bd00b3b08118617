package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the dashboard
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	width := m.width - 4
	sections := []string{
		titleBarStyle.Render(m.spinnerView() + " " + m.title),
		m.renderStagePanel(width),
		m.renderStatsPanel(width),
		m.renderLogsPanel(width),
	}

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) spinnerView() string {
	if m.finished {
		if m.err != nil {
			return errorStyle.Render("✗")
		}
		return successStyle.Render("✓")
	}
	return m.spinner.View()
}

func (m Model) renderStagePanel(width int) string {
	stage := m.stage
	if stage == "" {
		stage = "starting"
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Stage:"), statsValueStyle.Render(stage)),
		fmt.Sprintf("%s %d/%d", m.bar.ViewAs(m.Fraction()), m.index, m.total),
	)
	return panelStyle.Width(width).Render(titleStyle.Render(" PROGRESS ") + "\n" + content)
}

func (m Model) renderStatsPanel(width int) string {
	stats := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(time.Since(m.startTime)))),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f rows/min", m.Rate()))),
	}
	for _, k := range m.sortedKinds() {
		stats = append(stats, fmt.Sprintf("%s %s", statsLabelStyle.Render(k+":"), statsValueStyle.Render(fmt.Sprintf("%d", m.counts[k]))))
	}
	if m.skipped > 0 {
		stats = append(stats, warningStyle.Render(fmt.Sprintf("%d skipped", m.skipped)))
	}
	return panelStyle.Width(width).Render(titleStyle.Render(" STATS ") + "\n" + lipgloss.JoinVertical(lipgloss.Left, stats...))
}

func (m Model) renderLogsPanel(width int) string {
	lines := max(m.height-20, 5)
	logs := m.logMessages
	if len(logs) > lines {
		logs = logs[len(logs)-lines:]
	}

	var b strings.Builder
	for i, msg := range logs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(logTimestampStyle.Render(msg.Time.Format("15:04:05")))
		b.WriteString(" ")
		b.WriteString(levelStyle(msg.Level).Render(fmt.Sprintf("%-7s", msg.Level)))
		b.WriteString(" ")
		b.WriteString(logMessageStyle.Render(msg.Message))
	}
	return panelStyle.Width(width).Render(titleStyle.Render(" ACTIVITY ") + "\n" + b.String())
}

func (m Model) renderHelp() string {
	return helpStyle.Render(strings.Join([]string{
		"q / ctrl+c  stop the crawl",
		"ctrl+l      clear activity",
		"?           toggle help",
	}, "\n"))
}
