// Package sweep splits a long date range into fixed-size calendar windows
// for APIs that cap the span of a single query.
package sweep

import (
	"context"
	"fmt"
	"time"
)

const day = 24 * time.Hour

// APIDateLayout is the YYYYMMDD form expected by date-bounded queries
const APIDateLayout = "20060102"

// Window is an inclusive range of calendar days
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days covered
func (w Window) Days() int {
	return int(w.End.Sub(w.Start)/day) + 1
}

// StartParam formats Start as YYYYMMDD
func (w Window) StartParam() string {
	return w.Start.Format(APIDateLayout)
}

// EndParam formats End as YYYYMMDD
func (w Window) EndParam() string {
	return w.End.Format(APIDateLayout)
}

func (w Window) String() string {
	return fmt.Sprintf("%s..%s", w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
}

// Truncate reduces t to midnight UTC of its calendar day
func Truncate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Windows partitions [start, end] into contiguous windows of sizeDays.
// The last window is clipped to end. A window is only opened while its
// start is strictly before end.
func Windows(start, end time.Time, sizeDays int) []Window {
	if sizeDays < 1 {
		sizeDays = 1
	}
	start, end = Truncate(start), Truncate(end)
	span := time.Duration(sizeDays-1) * day

	var windows []Window
	for ws := start; ws.Before(end); {
		we := ws.Add(span)
		if we.After(end) {
			we = end
		}
		windows = append(windows, Window{Start: ws, End: we})
		ws = we.Add(day)
	}
	return windows
}

// Run calls fn once per window, in order. The first error aborts the sweep.
func Run(ctx context.Context, start, end time.Time, sizeDays int, fn func(ctx context.Context, w Window) error) error {
	for _, w := range Windows(start, end, sizeDays) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, w); err != nil {
			return fmt.Errorf("window %s: %w", w, err)
		}
	}
	return nil
}
