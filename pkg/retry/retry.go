package retry

import (
	"context"
	"fmt"
	"time"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/config"
	"socialcrawl/pkg/httpx"
	"socialcrawl/pkg/logger"
)

// DefaultMaxAttempts is the attempt budget per logical request
const DefaultMaxAttempts = 6

// SendFunc performs one attempt. It must build its request from the
// current credential every time it is called.
type SendFunc func(ctx context.Context) httpx.Disposition

// Refresher exchanges a new credential. *auth.TokenManager satisfies it.
type Refresher interface {
	Refresh(ctx context.Context) (auth.Credential, error)
}

// Counter receives retry and refresh events. *metrics.Metrics satisfies it.
type Counter interface {
	IncRetry(platform, reason string)
	IncRefresh(platform string)
}

// Retrier drives a SendFunc to completion under a Policy
type Retrier struct {
	MaxAttempts int
	Policy      Policy
	Refresher   Refresher
	Platform    string
	// Sleep defaults to Wait; tests swap it to avoid real delays
	Sleep   func(ctx context.Context, d time.Duration) error
	Logger  logger.Logger
	Counter Counter
}

// NewRetrier creates a retrier from the retry configuration
func NewRetrier(platform string, cfg config.RetryConfig, refresher Refresher, log logger.Logger) *Retrier {
	if log == nil {
		log = logger.GetLogger()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	policy := DefaultPolicy()
	if cfg.BackoffBase > 0 {
		policy.Backoff = &ExponentialBackoff{
			BaseDelay:  cfg.BackoffBase,
			MaxDelay:   cfg.BackoffCap,
			Multiplier: 2.0,
		}
	}
	if cfg.RefreshGrace > 0 {
		policy.RefreshGrace = cfg.RefreshGrace
	}

	return &Retrier{
		MaxAttempts: maxAttempts,
		Policy:      policy,
		Refresher:   refresher,
		Platform:    platform,
		Sleep:       Wait,
		Logger:      log,
	}
}

// Do calls send until it succeeds or the policy gives up. A permanent
// client error with permanentIsFatal=false is returned with a nil error;
// callers inspect the disposition kind to skip the unit of work.
func (r *Retrier) Do(ctx context.Context, send SendFunc, permanentIsFatal bool) (httpx.Disposition, error) {
	sleep := r.Sleep
	if sleep == nil {
		sleep = Wait
	}
	log := r.Logger
	if log == nil {
		log = logger.GetLogger()
	}

	for attempt := 0; ; attempt++ {
		d := send(ctx)
		if d.OK() {
			if attempt > 0 {
				log.DebugWithFields("request succeeded after retry", map[string]interface{}{
					"url":     d.URL,
					"attempt": attempt + 1,
				})
			}
			return d, nil
		}
		if err := ctx.Err(); err != nil {
			return d, fmt.Errorf("request cancelled: %w", err)
		}

		action := r.Policy.Decide(d, attempt, r.MaxAttempts, permanentIsFatal)
		switch action.Kind {
		case ActionAbort:
			log.ErrorWithFields("request failed", map[string]interface{}{
				"url":      d.URL,
				"status":   d.Status,
				"attempts": attempt + 1,
				"outcome":  d.Kind.String(),
				"body":     d.Snippet(),
			})
			return d, action.Err

		case ActionReturnPermanent:
			log.WarnWithFields("request rejected", map[string]interface{}{
				"url":    d.URL,
				"status": d.Status,
				"body":   d.Snippet(),
			})
			return d, nil

		case ActionRefreshAndRetry:
			if r.Refresher == nil {
				return d, d.AsError("credential expired and no refresher configured")
			}
			log.InfoWithFields("access token expired, refreshing", map[string]interface{}{
				"url":     d.URL,
				"attempt": attempt + 1,
			})
			if _, err := r.Refresher.Refresh(ctx); err != nil {
				return d, fmt.Errorf("refresh credential: %w", err)
			}
			if r.Counter != nil {
				r.Counter.IncRefresh(r.Platform)
			}

		case ActionRetryAfter:
			if d.Kind == httpx.RateLimited {
				logger.LogRateLimit(log, d.URL, action.Delay)
			} else {
				log.WarnWithFields("retrying request", map[string]interface{}{
					"url":          d.URL,
					"attempt":      attempt + 1,
					"outcome":      d.Kind.String(),
					"status":       d.Status,
					"delay_ms":     action.Delay.Milliseconds(),
					"max_attempts": r.MaxAttempts,
				})
			}
		}

		if r.Counter != nil {
			r.Counter.IncRetry(r.Platform, d.Kind.String())
		}
		if err := sleep(ctx, action.Delay); err != nil {
			return d, fmt.Errorf("retry cancelled: %w", err)
		}
	}
}
