// Package ratelimit paces outbound vendor requests.
//
// The vendors publish per-minute quotas (Reddit's OAuth API allows 100
// queries per minute per client, the TikTok Research API a daily budget
// that is easiest to respect by spreading calls out). A Limiter is waited
// by the HTTP executor before every attempt, retries included:
//
//	limiter := ratelimit.NewPerMinute(cfg.Throttle.RequestsPerMinute)
//	exec := httpx.NewExecutor(client, httpx.WithLimiter(limiter))
//
// A quota of zero disables pacing. The fixed delays between pages and
// posts are a separate, cooperative throttle applied by the drivers.
package ratelimit
