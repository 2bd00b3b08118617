// Package retry decides how to react to a failed HTTP attempt and runs the
// bounded retry loop shared by every vendor endpoint.
//
// A Policy maps an httpx.Disposition to one of four actions:
//
//   - RetryAfter: wait, then send again (429, 5xx, transport failures)
//   - RefreshAndRetry: exchange a new credential, wait a short grace period, send again (401)
//   - ReturnPermanent: hand a 4xx back to the caller, which skips the unit of work
//   - Abort: stop with a typed error carrying the last status and a body snippet
//
// Attempts are counted from zero. The last permitted attempt always aborts,
// whatever its outcome, so a budget of six never sends a seventh request.
//
// Basic usage:
//
//	r := retry.NewRetrier("tiktok", cfg.Retry, tokens, log)
//	d, err := r.Do(ctx, func(ctx context.Context) httpx.Disposition {
//		req := httpx.NewJSONRequest(endpoint, body)
//		req.Header.Set("Authorization", "Bearer "+tokens.Current().AccessToken)
//		return exec.Execute(ctx, req)
//	}, true)
//
// The send function is invoked once per attempt so that a retried request
// always picks up the credential installed by the most recent refresh.
package retry
