// Package paginate drives cursor-based listing endpoints as lazy sequences.
package paginate

import (
	"context"
	"iter"
	"time"

	"socialcrawl/pkg/retry"
)

// DefaultPageDelay is the cooperative pause between pages
const DefaultPageDelay = 150 * time.Millisecond

// Page is one decoded response envelope
type Page[T any, C comparable] struct {
	Items   []T
	HasMore bool
	Cursor  C
}

// FetchFunc retrieves the page at cursor. The zero value of C asks for
// the first page.
type FetchFunc[T any, C comparable] func(ctx context.Context, cursor C) (Page[T, C], error)

// Options tunes a pagination run
type Options struct {
	// MaxItems stops the sequence once that many items were yielded; 0 is unlimited
	MaxItems int
	// PageDelay is slept after every page that does not end the sequence
	PageDelay time.Duration
	// Sleep defaults to retry.Wait
	Sleep func(ctx context.Context, d time.Duration) error
}

// Iterate returns a sequence over every item of every page. Each call
// starts from the first page. A fetch error is yielded once as the final
// element. Stopping the range loop early stops fetching.
func Iterate[T any, C comparable](ctx context.Context, fetch FetchFunc[T, C], opts Options) iter.Seq2[T, error] {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = retry.Wait
	}

	return func(yield func(T, error) bool) {
		var (
			zero    T
			cursor  C
			yielded int
		)

		for {
			page, err := fetch(ctx, cursor)
			if err != nil {
				yield(zero, err)
				return
			}

			for _, item := range page.Items {
				if !yield(item, nil) {
					return
				}
				yielded++
				if opts.MaxItems > 0 && yielded >= opts.MaxItems {
					return
				}
			}

			if !page.HasMore || len(page.Items) == 0 {
				return
			}
			cursor = page.Cursor

			if err := sleep(ctx, opts.PageDelay); err != nil {
				yield(zero, err)
				return
			}
		}
	}
}

// Collect drains seq into a slice, stopping at the first error
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	var out []T
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}
