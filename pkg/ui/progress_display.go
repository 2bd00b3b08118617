package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressDisplay prints a single, rewritten progress line per milestone.
// In debug mode every skip is printed on its own line as well.
type ProgressDisplay struct {
	mu       sync.Mutex
	counters *Counters
	bar      progress.Model
	isDebug  bool
}

// NewProgressDisplay creates a new progress display
func NewProgressDisplay(debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		counters: NewCounters(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage()),
		isDebug:  debug,
	}
}

// Counters exposes the underlying tally
func (p *ProgressDisplay) Counters() *Counters {
	return p.counters
}

// StageStarted moves the bar to the new window or subreddit
func (p *ProgressDisplay) StageStarted(platform, stage string, index, total int) {
	p.counters.SetStage(platform+" "+stage, index, total)
	p.print()
}

// ItemWritten counts one row
func (p *ProgressDisplay) ItemWritten(platform, kind string) {
	p.counters.AddWritten(platform, kind)
	p.print()
}

// ItemSkipped counts one skipped unit of work
func (p *ProgressDisplay) ItemSkipped(platform, kind, id string, err error) {
	p.counters.AddSkipped(platform, kind)
	if p.isDebug {
		write(false, fmt.Sprintf("\n%s skipped %s %s: %v\n", Yellow("!"), kind, id, err))
	}
	p.print()
}

// Line renders the current progress line
func (p *ProgressDisplay) Line() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	stage, index, total := p.counters.Stage()
	parts := []string{
		fmt.Sprintf("%s %s %d/%d", Cyan(stage), p.bar.ViewAs(p.counters.Fraction()), index, total),
	}
	for _, k := range p.counters.Kinds() {
		parts = append(parts, fmt.Sprintf("%s %d", k, p.counters.Count(k)))
	}
	parts = append(parts, fmt.Sprintf("%.1f/min", p.counters.Rate()))
	if n := p.counters.Skipped(); n > 0 {
		parts = append(parts, Red(fmt.Sprintf("%d skipped", n)))
	}
	return strings.Join(parts, " • ")
}

func (p *ProgressDisplay) print() {
	write(false, "\r\033[2K"+p.Line())
}

// Complete prints the final summary
func (p *ProgressDisplay) Complete(platform string) {
	lines := []string{fmt.Sprintf("\n\n%s %s crawl finished in %s", Green("✓"), platform, FormatDuration(p.counters.Elapsed()))}
	for _, k := range p.counters.Kinds() {
		lines = append(lines, fmt.Sprintf("  %s %s: %d", Dim("•"), k, p.counters.Count(k)))
	}
	if n := p.counters.Skipped(); n > 0 {
		lines = append(lines, fmt.Sprintf("  %s %d units skipped", Dim("•"), n))
	}
	write(false, strings.Join(lines, "\n")+"\n")
}
