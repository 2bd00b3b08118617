package ui

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Counters tallies crawl output per platform and kind
type Counters struct {
	mu        sync.Mutex
	written   map[string]int
	skipped   map[string]int
	stage     string
	index     int
	total     int
	startTime time.Time
}

// NewCounters creates a new tally starting now
func NewCounters() *Counters {
	return &Counters{
		written:   make(map[string]int),
		skipped:   make(map[string]int),
		startTime: time.Now(),
	}
}

func key(platform, kind string) string {
	return platform + "/" + kind
}

// SetStage records the stage in progress
func (c *Counters) SetStage(stage string, index, total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stage, c.index, c.total = stage, index, total
}

// AddWritten counts one written item
func (c *Counters) AddWritten(platform, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written[key(platform, kind)]++
}

// AddSkipped counts one skipped unit of work
func (c *Counters) AddSkipped(platform, kind string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.skipped[key(platform, kind)]++
}

// Written returns the number of items of one kind
func (c *Counters) Written(platform, kind string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written[key(platform, kind)]
}

// Skipped returns the total number of skips
func (c *Counters) Skipped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.skipped {
		n += v
	}
	return n
}

// Stage returns the current stage with its position
func (c *Counters) Stage() (string, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stage, c.index, c.total
}

// Fraction returns completed stages over total stages, in [0, 1]
func (c *Counters) Fraction() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total <= 0 {
		return 0
	}
	done := c.index - 1
	if done < 0 {
		done = 0
	}
	return float64(done) / float64(c.total)
}

// Kinds returns the written keys in a stable order
func (c *Counters) Kinds() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]string, 0, len(c.written))
	for k := range c.written {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the written count for a key returned by Kinds
func (c *Counters) Count(k string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written[k]
}

// Elapsed returns the time since the tally started
func (c *Counters) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

// Rate returns the average number of written items per minute
func (c *Counters) Rate() float64 {
	c.mu.Lock()
	total := 0
	for _, v := range c.written {
		total += v
	}
	c.mu.Unlock()

	minutes := c.Elapsed().Minutes()
	if minutes == 0 {
		return 0
	}
	return float64(total) / minutes
}

// FormatDuration formats a duration in a compact human form
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
