package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestModelTracksMilestones(t *testing.T) {
	model := NewModel("tiktok crawl")
	m := &model

	m.Update(StageMsg{Platform: "tiktok", Stage: "2025-01-01..2025-01-30", Index: 1, Total: 4})
	m.Update(ItemMsg{Platform: "tiktok", Kind: "video"})
	m.Update(ItemMsg{Platform: "tiktok", Kind: "video"})
	m.Update(ItemMsg{Platform: "tiktok", Kind: "comment"})
	m.Update(SkipMsg{Platform: "tiktok", Kind: "video_comments", ID: "42", Err: errors.New("gone")})
	m.Update(StageMsg{Platform: "tiktok", Stage: "2025-02-28..2025-03-29", Index: 3, Total: 4})

	assert.Equal(t, 2, m.Count("tiktok", "video"))
	assert.Equal(t, 1, m.Count("tiktok", "comment"))
	assert.Equal(t, 1, m.Skipped())
	assert.InDelta(t, 0.5, m.Fraction(), 1e-9)
	assert.Len(t, m.logMessages, 3)
	assert.Equal(t, LevelWarn, m.logMessages[1].Level)

	m.Update(DoneMsg{})
	assert.InDelta(t, 1.0, m.Fraction(), 1e-9)
	assert.Equal(t, LevelSuccess, m.logMessages[len(m.logMessages)-1].Level)
}

func TestModelDoneWithError(t *testing.T) {
	model := NewModel("reddit crawl")
	m := &model
	m.Update(DoneMsg{Err: errors.New("retries exhausted")})

	assert.True(t, m.finished)
	assert.Equal(t, LevelError, m.logMessages[0].Level)
	assert.Contains(t, m.logMessages[0].Message, "retries exhausted")
}

func TestModelLogCap(t *testing.T) {
	model := NewModel("x")
	m := &model
	for i := 0; i < 60; i++ {
		m.AddLogMessage(LevelInfo, "line")
	}
	assert.Len(t, m.logMessages, 50)
}

func TestModelKeys(t *testing.T) {
	model := NewModel("x")
	m := &model

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.Nil(t, cmd)
	assert.True(t, m.showHelp)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
}

func TestView(t *testing.T) {
	model := NewModel("reddit crawl")
	m := &model
	assert.Equal(t, "Initializing...", m.View())

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(StageMsg{Platform: "reddit", Stage: "r/Aphantasia", Index: 1, Total: 4})
	m.Update(ItemMsg{Platform: "reddit", Kind: "comment"})

	view := m.View()
	assert.Contains(t, view, "reddit crawl")
	assert.Contains(t, view, "r/Aphantasia")
	assert.Contains(t, view, "reddit/comment")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h30m", formatDuration(90*time.Minute))
}
