package tiktok

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"time"

	"socialcrawl/pkg/auth"
	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/httpx"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/paginate"
	"socialcrawl/pkg/retry"
	"socialcrawl/pkg/sweep"
)

// TokenSource exposes the current access token
type TokenSource interface {
	Current() auth.Credential
}

// SkipCounter records units of work dropped after a permanent error
type SkipCounter interface {
	IncSkipped(platform, kind string)
}

// Options configures a Client
type Options struct {
	BaseURL         string
	PageSize        int
	CommentPageSize int
	MaxComments     int
	PageDelay       time.Duration
	// Sleep replaces the inter-page pause, for tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client talks to the TikTok Research API
type Client struct {
	baseURL         string
	exec            *httpx.Executor
	retrier         *retry.Retrier
	tokens          TokenSource
	pageSize        int
	commentPageSize int
	maxComments     int
	pageDelay       time.Duration
	sleep           func(ctx context.Context, d time.Duration) error
	skips           SkipCounter
	logger          logger.Logger
}

// NewClient creates a new Research API client
func NewClient(exec *httpx.Executor, retrier *retry.Retrier, tokens TokenSource, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}
	if opts.MaxComments <= 0 {
		opts.MaxComments = DefaultMaxComments
	}

	return &Client{
		baseURL:         opts.BaseURL,
		exec:            exec,
		retrier:         retrier,
		tokens:          tokens,
		pageSize:        clampPageSize(opts.PageSize),
		commentPageSize: clampPageSize(opts.CommentPageSize),
		maxComments:     opts.MaxComments,
		pageDelay:       opts.PageDelay,
		sleep:           opts.Sleep,
		logger:          log,
	}
}

// SetSkipCounter installs a counter for skipped comment listings
func (c *Client) SetSkipCounter(s SkipCounter) {
	c.skips = s
}

// post returns a send function that rebuilds the request from the
// current token on every attempt
func (c *Client) post(endpoint string, payload []byte) retry.SendFunc {
	return func(ctx context.Context) httpx.Disposition {
		req := httpx.NewJSONRequest(endpoint, payload)
		req.Header.Set("Authorization", c.tokens.Current().AuthorizationHeader())
		return c.exec.Execute(ctx, req)
	}
}

// QueryVideos iterates over every video matching q within the window.
// Any failure that survives the retry policy ends the sequence with an error.
func (c *Client) QueryVideos(ctx context.Context, q Query, w sweep.Window) iter.Seq2[Video, error] {
	endpoint := VideoQueryURL(c.baseURL)
	block := q.block()

	fetch := func(ctx context.Context, cur videoCursor) (paginate.Page[Video, videoCursor], error) {
		payload, err := json.Marshal(videoQueryRequest{
			Query:     block,
			StartDate: w.StartParam(),
			EndDate:   w.EndParam(),
			MaxCount:  c.pageSize,
			Cursor:    cur.Cursor,
			SearchID:  cur.SearchID,
		})
		if err != nil {
			return paginate.Page[Video, videoCursor]{}, fmt.Errorf("encode video query: %w", err)
		}

		d, err := c.retrier.Do(ctx, c.post(endpoint, payload), true)
		if err != nil {
			return paginate.Page[Video, videoCursor]{}, fmt.Errorf("query videos %s: %w", w, err)
		}

		var resp videoQueryResponse
		if err := json.Unmarshal(d.Body, &resp); err != nil {
			return paginate.Page[Video, videoCursor]{}, parseError("video query", d, err)
		}

		c.logger.DebugWithFields("video page received", map[string]interface{}{
			"window":   w.String(),
			"count":    len(resp.Data.Videos),
			"has_more": resp.Data.HasMore,
			"cursor":   resp.Data.Cursor,
		})

		searchID := resp.Data.SearchID
		if searchID == "" {
			searchID = cur.SearchID
		}
		return paginate.Page[Video, videoCursor]{
			Items:   resp.Data.Videos,
			HasMore: resp.Data.HasMore,
			Cursor:  videoCursor{Cursor: resp.Data.Cursor, SearchID: searchID},
		}, nil
	}

	return paginate.Iterate(ctx, fetch, paginate.Options{
		PageDelay: c.pageDelay,
		Sleep:     c.sleep,
	})
}

// ErrCommentsUnavailable marks a comment listing the API rejected with a
// permanent client error. The video is kept; only its comments are skipped.
var ErrCommentsUnavailable = errors.New("comments unavailable")

// ListComments iterates over the comments of one video, up to the
// configured cap. A permanent client error (the video is gone, private or
// not eligible) ends the sequence with an error wrapping
// ErrCommentsUnavailable.
func (c *Client) ListComments(ctx context.Context, videoID int64) iter.Seq2[Comment, error] {
	endpoint := CommentListURL(c.baseURL)
	id := strconv.FormatInt(videoID, 10)

	fetch := func(ctx context.Context, cursor int64) (paginate.Page[Comment, int64], error) {
		payload, err := json.Marshal(commentListRequest{
			VideoID:  id,
			MaxCount: c.commentPageSize,
			Cursor:   cursor,
		})
		if err != nil {
			return paginate.Page[Comment, int64]{}, fmt.Errorf("encode comment request: %w", err)
		}

		d, err := c.retrier.Do(ctx, c.post(endpoint, payload), false)
		if err != nil {
			return paginate.Page[Comment, int64]{}, fmt.Errorf("list comments for video %s: %w", id, err)
		}
		if d.Kind == httpx.PermanentClientError {
			if c.skips != nil {
				c.skips.IncSkipped("tiktok", "comments")
			}
			return paginate.Page[Comment, int64]{}, fmt.Errorf("%w: %w", ErrCommentsUnavailable, d.AsError("comment listing rejected"))
		}

		var resp commentListResponse
		if err := json.Unmarshal(d.Body, &resp); err != nil {
			return paginate.Page[Comment, int64]{}, parseError("comment list", d, err)
		}

		return paginate.Page[Comment, int64]{
			Items:   resp.Data.Comments,
			HasMore: resp.Data.HasMore,
			Cursor:  resp.Data.Cursor,
		}, nil
	}

	return paginate.Iterate(ctx, fetch, paginate.Options{
		MaxItems:  c.maxComments,
		PageDelay: c.pageDelay,
		Sleep:     c.sleep,
	})
}

func parseError(what string, d httpx.Disposition, err error) *errs.Error {
	return &errs.Error{
		Type:    errs.ErrorTypeParsing,
		Message: what + " response is not valid JSON",
		Code:    d.Status,
		Body:    d.Snippet(),
		URL:     d.URL,
		Err:     err,
	}
}
