package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI runs the dashboard program and forwards crawl milestones to it
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a new dashboard titled title
func NewTUI(title string, opts ...tea.ProgramOption) *TUI {
	model := NewModel(title)
	if len(opts) == 0 {
		opts = []tea.ProgramOption{tea.WithAltScreen()}
	}
	return &TUI{
		program: tea.NewProgram(&model, opts...),
		model:   &model,
	}
}

// Start runs the program until the user quits or Stop is called
func (t *TUI) Start() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop stops the program
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the program
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// StageStarted reports a new window or subreddit
func (t *TUI) StageStarted(platform, stage string, index, total int) {
	t.Send(StageMsg{Platform: platform, Stage: stage, Index: index, Total: total})
}

// ItemWritten reports one written row
func (t *TUI) ItemWritten(platform, kind string) {
	t.Send(ItemMsg{Platform: platform, Kind: kind})
}

// ItemSkipped reports one skipped unit of work
func (t *TUI) ItemSkipped(platform, kind, id string, err error) {
	t.Send(SkipMsg{Platform: platform, Kind: kind, ID: id, Err: err})
}

// Finish marks the crawl as done
func (t *TUI) Finish(err error) {
	t.Send(DoneMsg{Err: err})
}

// Logf adds a line to the activity panel
func (t *TUI) Logf(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
