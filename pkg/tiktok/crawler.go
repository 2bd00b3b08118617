package tiktok

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/metrics"
	"socialcrawl/pkg/output"
	"socialcrawl/pkg/sweep"
	"socialcrawl/pkg/ui"
)

// VideoColumns is the header of the videos dataset
var VideoColumns = []string{
	"video_id", "username", "create_time", "region_code",
	"video_description", "view_count", "like_count", "comment_count",
	"share_count", "video_duration", "hashtag_names", "video_url",
}

// CommentColumns is the header of the comments dataset
var CommentColumns = []string{
	"video_id", "comment_id", "text", "like_count", "reply_count",
	"parent_comment_id", "create_time",
}

// Stats summarises a crawl
type Stats struct {
	Windows         int
	Videos          int
	Comments        int
	SkippedComments int
}

// Crawler sweeps a date range window by window and writes every video and
// its comments
type Crawler struct {
	client     *Client
	query      Query
	windowDays int
	videos     output.RowWriter
	comments   output.RowWriter
	metrics    *metrics.Metrics
	progress   ui.Progress
	logger     logger.Logger
}

// NewCrawler creates a crawler writing to the given datasets
func NewCrawler(client *Client, query Query, windowDays int, videos, comments output.RowWriter, m *metrics.Metrics, log logger.Logger) *Crawler {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Crawler{
		client:     client,
		query:      query,
		windowDays: windowDays,
		videos:     videos,
		comments:   comments,
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

// Run crawls [start, end]. A failing window aborts the run; a failing
// comment listing only skips that video.
func (c *Crawler) Run(ctx context.Context, start, end time.Time) (Stats, error) {
	var stats Stats
	total := len(sweep.Windows(start, end, c.windowDays))

	err := sweep.Run(ctx, start, end, c.windowDays, func(ctx context.Context, w sweep.Window) error {
		stats.Windows++
		c.progress.StageStarted("tiktok", w.String(), stats.Windows, total)
		c.logger.InfoWithFields("querying window", map[string]interface{}{
			"window": w.String(),
			"query":  c.query.String(),
		})

		videos, comments := 0, 0
		for video, err := range c.client.QueryVideos(ctx, c.query, w) {
			if err != nil {
				return err
			}
			if err := c.videos.Write(VideoRow(video)); err != nil {
				return fmt.Errorf("write video %d: %w", video.ID, err)
			}
			videos++
			c.metrics.IncItem("tiktok", "video")
			c.progress.ItemWritten("tiktok", "video")

			if video.CommentCount <= 0 || video.ID == 0 {
				continue
			}
			n, err := c.crawlComments(ctx, video.ID)
			comments += n
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				kind := "video_comments"
				if errors.Is(err, ErrCommentsUnavailable) {
					kind = "comments"
				} else {
					c.metrics.IncSkipped("tiktok", kind)
				}
				stats.SkippedComments++
				c.progress.ItemSkipped("tiktok", kind, strconv.FormatInt(video.ID, 10), err)
				logger.LogSkip(c.logger, kind, strconv.FormatInt(video.ID, 10), err)
			}
		}

		stats.Videos += videos
		stats.Comments += comments
		logger.LogCrawlProgress(c.logger, w.String(), videos, comments)
		return nil
	})

	return stats, err
}

func (c *Crawler) crawlComments(ctx context.Context, videoID int64) (int, error) {
	n := 0
	for comment, err := range c.client.ListComments(ctx, videoID) {
		if err != nil {
			return n, err
		}
		if err := c.comments.Write(CommentRow(comment)); err != nil {
			return n, fmt.Errorf("write comment %d: %w", comment.ID, err)
		}
		n++
		c.metrics.IncItem("tiktok", "comment")
		c.progress.ItemWritten("tiktok", "comment")
	}
	return n, nil
}

// VideoRow flattens a video into a dataset row
func VideoRow(v Video) output.Row {
	return output.Row{
		"video_id":          v.ID,
		"username":          v.Username,
		"create_time":       v.CreateTime,
		"region_code":       v.RegionCode,
		"video_description": v.VideoDescription,
		"view_count":        v.ViewCount,
		"like_count":        v.LikeCount,
		"comment_count":     v.CommentCount,
		"share_count":       v.ShareCount,
		"video_duration":    v.VideoDuration,
		"hashtag_names":     strings.Join(v.HashtagNames, ","),
		"video_url":         v.URL(),
	}
}

// CommentRow flattens a comment into a dataset row
func CommentRow(cm Comment) output.Row {
	return output.Row{
		"video_id":          cm.VideoID,
		"comment_id":        cm.ID,
		"text":              cm.Text,
		"like_count":        cm.LikeCount,
		"reply_count":       cm.ReplyCount,
		"parent_comment_id": cm.ParentCommentID,
		"create_time":       cm.CreateTime,
	}
}
