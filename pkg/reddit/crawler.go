package reddit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/metrics"
	"socialcrawl/pkg/output"
	"socialcrawl/pkg/retry"
	"socialcrawl/pkg/ui"
)

// TimestampLayout formats post and comment times in the dataset
const TimestampLayout = "2006-01-02 15:04:05"

// Columns is the header of the comments-with-media dataset
var Columns = []string{
	"subreddit", "post_id", "post_title", "post_body", "post_author",
	"post_timestamp", "post_score", "media_urls", "media_types",
	"comment_id", "parent_id", "parent_raw", "is_top_level", "depth",
	"comment_author", "comment_timestamp", "comment_body", "comment_score",
	"permalink",
}

// Subreddit is one community and the inclusive creation range of the
// posts to keep
type Subreddit struct {
	Name  string
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the range
func (s Subreddit) Contains(t time.Time) bool {
	return !t.Before(s.Start) && !t.After(s.End)
}

// CrawlerOptions configures a Crawler
type CrawlerOptions struct {
	PostLimit int
	PostDelay time.Duration
	// Sleep replaces the per-post pause, for tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// Stats summarises a crawl
type Stats struct {
	Subreddits   int
	PostsSeen    int
	PostsInRange int
	Comments     int
	SkippedPosts int
}

// Crawler walks each subreddit's newest posts and writes one row per
// comment of every post created inside the configured range
type Crawler struct {
	client     *Client
	subreddits []Subreddit
	opts       CrawlerOptions
	out        output.RowWriter
	metrics    *metrics.Metrics
	progress   ui.Progress
	logger     logger.Logger
}

// NewCrawler creates a crawler writing to out
func NewCrawler(client *Client, subreddits []Subreddit, opts CrawlerOptions, out output.RowWriter, m *metrics.Metrics, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Sleep == nil {
		opts.Sleep = retry.Wait
	}
	return &Crawler{
		client:     client,
		subreddits: subreddits,
		opts:       opts,
		out:        out,
		metrics:    m,
		progress:   ui.NopProgress{},
		logger:     log,
	}
}

// SetProgress installs a progress sink
func (c *Crawler) SetProgress(p ui.Progress) {
	if p == nil {
		p = ui.NopProgress{}
	}
	c.progress = p
}

// Run crawls every configured subreddit in order. A failing listing
// aborts the run; a failing comment tree only skips that post.
func (c *Crawler) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	for i, sub := range c.subreddits {
		stats.Subreddits++
		c.progress.StageStarted("reddit", "r/"+sub.Name, i+1, len(c.subreddits))
		if err := c.crawlSubreddit(ctx, sub, &stats); err != nil {
			return stats, fmt.Errorf("r/%s: %w", sub.Name, err)
		}
	}
	return stats, nil
}

func (c *Crawler) crawlSubreddit(ctx context.Context, sub Subreddit, stats *Stats) error {
	c.logger.InfoWithFields("crawling subreddit", map[string]interface{}{
		"subreddit": sub.Name,
		"start":     sub.Start.Format(time.DateOnly),
		"end":       sub.End.Format(time.DateOnly),
	})

	seen, kept, comments := 0, 0, 0
	for post, err := range c.client.NewPosts(ctx, sub.Name, c.opts.PostLimit) {
		if err != nil {
			return err
		}
		seen++
		created := post.Created()

		// Listings are newest first, so the first regular post older than
		// the range ends the walk. Stickied posts are pinned out of order.
		if created.Before(sub.Start) && !post.Stickied {
			break
		}
		if !sub.Contains(created) {
			continue
		}
		kept++
		c.metrics.IncItem("reddit", "post")
		c.progress.ItemWritten("reddit", "post")

		if err := c.opts.Sleep(ctx, c.opts.PostDelay); err != nil {
			return err
		}

		n, err := c.crawlPost(ctx, sub.Name, post)
		comments += n
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.SkippedPosts++
			c.metrics.IncSkipped("reddit", "post_comments")
			c.progress.ItemSkipped("reddit", "post_comments", post.ID, err)
			logger.LogSkip(c.logger, "post_comments", post.ID, err)
		}
	}

	stats.PostsSeen += seen
	stats.PostsInRange += kept
	stats.Comments += comments
	c.logger.InfoWithFields("valid posts", map[string]interface{}{
		"subreddit": sub.Name,
		"in_range":  kept,
		"seen":      seen,
	})
	logger.LogCrawlProgress(c.logger, "r/"+sub.Name, kept, comments)
	return nil
}

func (c *Crawler) crawlPost(ctx context.Context, subreddit string, post Post) (int, error) {
	comments, err := c.client.Comments(ctx, post.ID)
	if err != nil {
		return 0, err
	}

	urls, types := ExtractMedia(post)
	base := PostRow(subreddit, post, strings.Join(urls, "; "), strings.Join(types, "; "))

	for i, cm := range comments {
		if err := c.out.Write(CommentRow(base, cm)); err != nil {
			return i, fmt.Errorf("write comment %s: %w", cm.ID, err)
		}
		c.metrics.IncItem("reddit", "comment")
		c.progress.ItemWritten("reddit", "comment")
	}
	return len(comments), nil
}

// PostRow builds the post half of a dataset row
func PostRow(subreddit string, p Post, mediaURLs, mediaTypes string) output.Row {
	return output.Row{
		"subreddit":      subreddit,
		"post_id":        p.ID,
		"post_title":     CleanText(p.Title),
		"post_body":      CleanText(p.Selftext),
		"post_author":    AuthorName(p.Author),
		"post_timestamp": p.Created().Format(TimestampLayout),
		"post_score":     p.Score,
		"media_urls":     mediaURLs,
		"media_types":    mediaTypes,
	}
}

// CommentRow copies the post fields and adds those of one comment
func CommentRow(post output.Row, cm Comment) output.Row {
	row := make(output.Row, len(Columns))
	for k, v := range post {
		row[k] = v
	}
	topLevel := 0
	if cm.IsTopLevel() {
		topLevel = 1
	}
	row["comment_id"] = cm.ID
	row["parent_id"] = cm.ParentShortID()
	row["parent_raw"] = cm.ParentID
	row["is_top_level"] = topLevel
	row["depth"] = cm.Depth
	row["comment_author"] = AuthorName(cm.Author)
	row["comment_timestamp"] = cm.Created().Format(TimestampLayout)
	row["comment_body"] = CleanText(cm.Body)
	row["comment_score"] = cm.Score
	row["permalink"] = AbsolutePermalink(cm.Permalink)
	return row
}
