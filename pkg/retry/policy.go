package retry

import (
	"fmt"
	"time"

	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/httpx"
)

// ActionKind is what the caller should do after a failed attempt
type ActionKind int

const (
	ActionRetryAfter ActionKind = iota
	ActionRefreshAndRetry
	ActionReturnPermanent
	ActionAbort
)

func (k ActionKind) String() string {
	switch k {
	case ActionRetryAfter:
		return "retry_after"
	case ActionRefreshAndRetry:
		return "refresh_and_retry"
	case ActionReturnPermanent:
		return "return_permanent"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Action is a retry decision. Delay applies to RetryAfter and
// RefreshAndRetry; Err is set on Abort.
type Action struct {
	Kind  ActionKind
	Delay time.Duration
	Err   *errs.Error
}

// Policy maps a failed disposition to an Action
type Policy struct {
	Backoff      BackoffStrategy
	RefreshGrace time.Duration
}

// DefaultPolicy returns the policy used by both vendor clients
func DefaultPolicy() Policy {
	return Policy{
		Backoff:      DefaultExponentialBackoff(),
		RefreshGrace: time.Second,
	}
}

// Decide classifies the attempt. attempt is zero-based; once it reaches
// maxAttempts-1 every disposition aborts, so at most maxAttempts requests
// are ever sent.
func (p Policy) Decide(d httpx.Disposition, attempt, maxAttempts int, permanentIsFatal bool) Action {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	if d.Kind == httpx.Success {
		return Action{Kind: ActionAbort, Err: &errs.Error{
			Type:    errs.ErrorTypeUnknown,
			Message: "successful response passed to retry policy",
			Code:    d.Status,
			URL:     d.URL,
		}}
	}

	if attempt >= maxAttempts-1 {
		e := d.AsError(fmt.Sprintf("giving up after %d attempts, last outcome %s", attempt+1, d.Kind))
		e.Type = errs.ErrorTypeRetriesExhausted
		return Action{Kind: ActionAbort, Err: e}
	}

	if !errs.IsRetryable(d.Kind.ErrorType()) {
		if d.Kind != httpx.PermanentClientError {
			return Action{Kind: ActionAbort, Err: d.AsError("unclassified response")}
		}
		if permanentIsFatal {
			return Action{Kind: ActionAbort, Err: d.AsError(fmt.Sprintf("request rejected with status %d", d.Status))}
		}
		return Action{Kind: ActionReturnPermanent}
	}

	switch d.Kind {
	case httpx.AuthExpired:
		return Action{Kind: ActionRefreshAndRetry, Delay: p.RefreshGrace}
	case httpx.RateLimited:
		if d.RetryAfter > 0 {
			return Action{Kind: ActionRetryAfter, Delay: d.RetryAfter}
		}
		return Action{Kind: ActionRetryAfter, Delay: p.backoff(attempt)}
	default:
		return Action{Kind: ActionRetryAfter, Delay: p.backoff(attempt)}
	}
}

func (p Policy) backoff(attempt int) time.Duration {
	if p.Backoff == nil {
		return DefaultExponentialBackoff().NextDelay(attempt)
	}
	return p.Backoff.NextDelay(attempt)
}
