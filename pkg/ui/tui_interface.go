package ui

// Progress receives crawl milestones. The line display and the terminal
// dashboard both implement it.
type Progress interface {
	StageStarted(platform, stage string, index, total int)
	ItemWritten(platform, kind string)
	ItemSkipped(platform, kind, id string, err error)
}

// NopProgress discards every milestone
type NopProgress struct{}

func (NopProgress) StageStarted(string, string, int, int)     {}
func (NopProgress) ItemWritten(string, string)                {}
func (NopProgress) ItemSkipped(string, string, string, error) {}
