package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StageMsg is sent when a window or subreddit starts
type StageMsg struct {
	Platform string
	Stage    string
	Index    int
	Total    int
}

// ItemMsg is sent for every written row
type ItemMsg struct {
	Platform string
	Kind     string
}

// SkipMsg is sent when a unit of work is skipped
type SkipMsg struct {
	Platform string
	Kind     string
	ID       string
	Err      error
}

// LogMsg adds a line to the activity panel
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg is sent once the crawl returns
type DoneMsg struct {
	Err error
}

// TickMsg is sent periodically to refresh elapsed time and rate
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case StageMsg:
		m.setStage(msg.Platform, msg.Stage, msg.Index, msg.Total)
		m.AddLogMessage(LevelInfo, fmt.Sprintf("%s %s (%d/%d)", msg.Platform, msg.Stage, msg.Index, msg.Total))
		return m, nil

	case ItemMsg:
		m.addItem(msg.Platform, msg.Kind)
		return m, nil

	case SkipMsg:
		m.skipped++
		m.AddLogMessage(LevelWarn, fmt.Sprintf("skipped %s %s: %v", msg.Kind, msg.ID, msg.Err))
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		m.finished = true
		m.err = msg.Err
		if msg.Err != nil {
			m.AddLogMessage(LevelError, "crawl failed: "+msg.Err.Error())
		} else {
			m.AddLogMessage(LevelSuccess, "crawl finished")
		}
		return m, nil
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
