// Package tiktok crawls the TikTok Research API.
//
// The crawl sweeps a date range in fixed windows (the query endpoint caps
// the span of one search), pages through the matching videos of each
// window and lists the comments of every video that has any. Requests go
// through the shared retry policy: a rejected video query stops the run,
// while a rejected comment listing only skips that video.
//
// Example usage:
//
//	exec := httpx.NewExecutor("tiktok", 60*time.Second, log)
//	tokens := auth.NewTokenManager("tiktok", tiktok.NewTokenExchanger(exec, "", key, secret), log)
//	if _, err := tokens.Refresh(ctx); err != nil {
//	    return err
//	}
//	client := tiktok.NewClient(exec, retry.NewRetrier("tiktok", cfg.Retry, tokens, log), tokens, tiktok.Options{}, log)
//
//	for video, err := range client.QueryVideos(ctx, tiktok.HashtagQuery(tags), window) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(video.URL())
//	}
package tiktok
