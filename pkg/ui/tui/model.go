package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Log levels shown in the activity panel
const (
	LevelInfo    = "INFO"
	LevelSuccess = "SUCCESS"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
)

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the dashboard state. It is only touched from the program loop.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	title    string
	stage    string
	index    int
	total    int
	counts   map[string]int
	skipped  int
	finished bool
	err      error

	startTime      time.Time
	logMessages    []LogMessage
	maxLogMessages int

	width    int
	height   int
	showHelp bool
}

// NewModel creates a new dashboard model
func NewModel(title string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:        s,
		bar:            progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		title:          title,
		counts:         make(map[string]int),
		startTime:      time.Now(),
		maxLogMessages: 50,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *Model) setStage(platform, stage string, index, total int) {
	m.stage = platform + " " + stage
	m.index = index
	m.total = total
}

func (m *Model) addItem(platform, kind string) {
	m.counts[platform+"/"+kind]++
}

// AddLogMessage appends to the activity panel, dropping the oldest entry
// once the panel is full
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{Time: time.Now(), Level: level, Message: message})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Fraction returns completed stages over total stages
func (m Model) Fraction() float64 {
	if m.total <= 0 {
		return 0
	}
	done := m.index - 1
	if m.finished {
		done = m.total
	}
	if done < 0 {
		done = 0
	}
	return float64(done) / float64(m.total)
}

// Count returns the number of written items for platform/kind
func (m Model) Count(platform, kind string) int {
	return m.counts[platform+"/"+kind]
}

// Skipped returns the number of skipped units
func (m Model) Skipped() int {
	return m.skipped
}

func (m Model) sortedKinds() []string {
	keys := make([]string, 0, len(m.counts))
	for k := range m.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Rate returns written items per minute since the dashboard started
func (m Model) Rate() float64 {
	total := 0
	for _, v := range m.counts {
		total += v
	}
	minutes := time.Since(m.startTime).Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(total) / minutes
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
