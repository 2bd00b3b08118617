package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"socialcrawl/pkg/auth"
	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/httpx"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/paginate"
	"socialcrawl/pkg/retry"
)

// TokenSource exposes the current access token
type TokenSource interface {
	Current() auth.Credential
}

// SkipCounter records comment placeholders that could not be expanded
type SkipCounter interface {
	IncSkipped(platform, kind string)
}

// Options configures a Client
type Options struct {
	BaseURL   string
	UserAgent string
	PageDelay time.Duration
	// Sleep replaces the inter-page pause, for tests
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client reads subreddit listings and comment trees
type Client struct {
	baseURL   string
	userAgent string
	exec      *httpx.Executor
	retrier   *retry.Retrier
	tokens    TokenSource
	pageDelay time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	skips     SkipCounter
	logger    logger.Logger
}

// NewClient creates a new Reddit API client
func NewClient(exec *httpx.Executor, retrier *retry.Retrier, tokens TokenSource, opts Options, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = BaseURL
	}

	return &Client{
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		exec:      exec,
		retrier:   retrier,
		tokens:    tokens,
		pageDelay: opts.PageDelay,
		sleep:     opts.Sleep,
		logger:    log,
	}
}

// SetSkipCounter installs a counter for comment placeholders that could not be expanded
func (c *Client) SetSkipCounter(s SkipCounter) {
	c.skips = s
}

func (c *Client) get(rawURL string) retry.SendFunc {
	return func(ctx context.Context) httpx.Disposition {
		req := httpx.NewGetRequest(rawURL)
		req.Header.Set("Authorization", c.tokens.Current().AuthorizationHeader())
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		return c.exec.Execute(ctx, req)
	}
}

// NewPosts iterates over the newest posts of a subreddit, newest first,
// yielding at most limit posts (0 means no limit). A rejected listing
// ends the sequence with an error.
func (c *Client) NewPosts(ctx context.Context, subreddit string, limit int) iter.Seq2[Post, error] {
	fetch := func(ctx context.Context, after string) (paginate.Page[Post, string], error) {
		d, err := c.retrier.Do(ctx, c.get(NewPostsURL(c.baseURL, subreddit, after)), true)
		if err != nil {
			return paginate.Page[Post, string]{}, fmt.Errorf("list r/%s: %w", subreddit, err)
		}

		var l listing
		if err := json.Unmarshal(d.Body, &l); err != nil {
			return paginate.Page[Post, string]{}, parseError("listing", d, err)
		}

		posts := make([]Post, 0, len(l.Data.Children))
		for _, child := range l.Data.Children {
			if child.Kind != kindPost {
				continue
			}
			var p Post
			if err := json.Unmarshal(child.Data, &p); err != nil {
				return paginate.Page[Post, string]{}, parseError("listing", d, err)
			}
			posts = append(posts, p)
		}

		c.logger.DebugWithFields("listing page received", map[string]interface{}{
			"subreddit": subreddit,
			"count":     len(posts),
			"after":     l.Data.After,
		})

		return paginate.Page[Post, string]{
			Items:   posts,
			HasMore: l.Data.After != "",
			Cursor:  l.Data.After,
		}, nil
	}

	return paginate.Iterate(ctx, fetch, paginate.Options{
		MaxItems:  limit,
		PageDelay: c.pageDelay,
		Sleep:     c.sleep,
	})
}

// Comments returns the comment tree of a post flattened depth-first in
// server order. "Load more" placeholders are expanded in place, including
// "continue this thread" links. A placeholder the API refuses to expand is
// counted as a more_comments skip. A permanent client error on the tree
// itself is returned as a client_error so the caller can skip the post.
func (c *Client) Comments(ctx context.Context, postID string) ([]Comment, error) {
	d, err := c.retrier.Do(ctx, c.get(CommentsURL(c.baseURL, postID)), false)
	if err != nil {
		return nil, fmt.Errorf("comments of post %s: %w", postID, err)
	}
	if d.Kind == httpx.PermanentClientError {
		return nil, d.AsError("comments of post " + postID + " rejected")
	}

	var listings []listing
	if err := json.Unmarshal(d.Body, &listings); err != nil {
		return nil, parseError("comment tree", d, err)
	}
	if len(listings) < 2 {
		return nil, &errs.Error{
			Type:    errs.ErrorTypeParsing,
			Message: fmt.Sprintf("comment tree has %d listings, want 2", len(listings)),
			Code:    d.Status,
			Body:    d.Snippet(),
			URL:     d.URL,
		}
	}

	var t treeWalk
	if err := t.walk(listings[1].Data.Children, 0); err != nil {
		return nil, parseError("comment tree", d, err)
	}

	return c.expand(ctx, postID, t.nodes)
}

// node is one slot of a flattened comment tree: a comment, or a
// placeholder still to be expanded
type node struct {
	comment Comment
	more    *moreData
	depth   int
}

// expand replaces every placeholder in nodes with the comments it stands
// for, keeping depth-first order
func (c *Client) expand(ctx context.Context, postID string, nodes []node) ([]Comment, error) {
	var (
		comments   []Comment
		unexpanded int
		missing    int
		expanded   int
	)
	seen := make(map[string]bool)

	for len(nodes) > 0 {
		n := nodes[0]
		nodes = nodes[1:]
		if n.more == nil {
			comments = append(comments, n.comment)
			continue
		}

		key := n.more.key()
		if seen[key] {
			unexpanded++
			missing += n.more.missing()
			continue
		}
		seen[key] = true

		replacement, left, err := c.expandMore(ctx, postID, n)
		if err != nil {
			return nil, err
		}
		if left > 0 {
			unexpanded++
			missing += left
		}
		expanded++
		nodes = slices.Concat(replacement, nodes)
	}

	if expanded > 0 {
		c.logger.DebugWithFields("comment placeholders expanded", map[string]interface{}{
			"post_id":      postID,
			"placeholders": expanded,
			"comments":     len(comments),
		})
	}
	if unexpanded > 0 {
		c.logger.WarnWithFields("comment placeholders left unexpanded", map[string]interface{}{
			"post_id":      postID,
			"placeholders": unexpanded,
			"missing":      missing,
		})
		if c.skips != nil {
			for i := 0; i < unexpanded; i++ {
				c.skips.IncSkipped("reddit", "more_comments")
			}
		}
	}

	return comments, nil
}

// expandMore fetches the comments behind one placeholder. left is the
// number of comments that could not be fetched.
func (c *Client) expandMore(ctx context.Context, postID string, n node) ([]node, int, error) {
	if len(n.more.Children) == 0 {
		return c.continueThread(ctx, postID, n)
	}

	var out []node
	for batch := range slices.Chunk(n.more.Children, MoreChildrenBatch) {
		if err := c.pause(ctx); err != nil {
			return nil, 0, err
		}

		d, err := c.retrier.Do(ctx, c.get(MoreChildrenURL(c.baseURL, postID, batch)), false)
		if err != nil {
			return nil, 0, fmt.Errorf("expand comments of post %s: %w", postID, err)
		}
		if d.Kind == httpx.PermanentClientError {
			logger.LogSkip(c.logger, "more_comments", postID, d.AsError("comment expansion rejected"))
			return out, max(n.more.missing()-len(out), 1), nil
		}

		var resp moreChildrenResponse
		if err := json.Unmarshal(d.Body, &resp); err != nil {
			return nil, 0, parseError("morechildren", d, err)
		}
		if len(resp.JSON.Errors) > 0 {
			logger.LogSkip(c.logger, "more_comments", postID, d.AsError("comment expansion failed: "+string(resp.JSON.Errors[0])))
			return out, max(n.more.missing()-len(out), 1), nil
		}

		nodes, err := flattenThings(resp.JSON.Data.Things, n.depth)
		if err != nil {
			return nil, 0, parseError("morechildren", d, err)
		}
		out = append(out, nodes...)
	}
	return out, 0, nil
}

// continueThread follows a "continue this thread" link by reading the tree
// rooted at the placeholder's parent and keeping that parent's replies
func (c *Client) continueThread(ctx context.Context, postID string, n node) ([]node, int, error) {
	parent := strings.TrimPrefix(n.more.ParentID, kindComment+"_")
	if parent == "" || parent == n.more.ParentID {
		return nil, n.more.missing(), nil
	}
	if err := c.pause(ctx); err != nil {
		return nil, 0, err
	}

	d, err := c.retrier.Do(ctx, c.get(ThreadURL(c.baseURL, postID, parent)), false)
	if err != nil {
		return nil, 0, fmt.Errorf("continue thread %s of post %s: %w", parent, postID, err)
	}
	if d.Kind == httpx.PermanentClientError {
		logger.LogSkip(c.logger, "more_comments", parent, d.AsError("thread continuation rejected"))
		return nil, n.more.missing(), nil
	}

	var listings []listing
	if err := json.Unmarshal(d.Body, &listings); err != nil || len(listings) < 2 {
		return nil, 0, parseError("thread", d, err)
	}

	for _, child := range listings[1].Data.Children {
		if child.Kind != kindComment {
			continue
		}
		var cd commentData
		if err := json.Unmarshal(child.Data, &cd); err != nil {
			return nil, 0, parseError("thread", d, err)
		}
		if cd.Name != n.more.ParentID && cd.ID != parent {
			continue
		}
		var t treeWalk
		if cd.Replies.listing != nil {
			if err := t.walk(cd.Replies.listing.Data.Children, n.depth); err != nil {
				return nil, 0, parseError("thread", d, err)
			}
		}
		return t.nodes, 0, nil
	}
	return nil, n.more.missing(), nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.pageDelay <= 0 {
		return ctx.Err()
	}
	sleep := c.sleep
	if sleep == nil {
		sleep = retry.Wait
	}
	return sleep(ctx, c.pageDelay)
}

type treeWalk struct {
	nodes []node
}

func (t *treeWalk) walk(children []thing, depth int) error {
	for _, child := range children {
		switch child.Kind {
		case kindComment:
			var cd commentData
			if err := json.Unmarshal(child.Data, &cd); err != nil {
				return err
			}
			cd.Comment.Depth = depth
			t.nodes = append(t.nodes, node{comment: cd.Comment, depth: depth})
			if cd.Replies.listing != nil {
				if err := t.walk(cd.Replies.listing.Data.Children, depth+1); err != nil {
					return err
				}
			}
		case kindMore:
			var m moreData
			if err := json.Unmarshal(child.Data, &m); err != nil {
				return err
			}
			t.nodes = append(t.nodes, node{more: &m, depth: depth})
		}
	}
	return nil
}

// flattenThings orders the flat morechildren result depth-first. Things
// whose parent is not in the result sit at rootDepth.
func flattenThings(things []thing, rootDepth int) ([]node, error) {
	type entry struct {
		node   node
		parent string
	}
	entries := make([]entry, 0, len(things))
	names := make(map[string]bool)

	for _, th := range things {
		switch th.Kind {
		case kindComment:
			var cd commentData
			if err := json.Unmarshal(th.Data, &cd); err != nil {
				return nil, err
			}
			entries = append(entries, entry{node: node{comment: cd.Comment}, parent: cd.ParentID})
			names[cd.Name] = true
		case kindMore:
			var m moreData
			if err := json.Unmarshal(th.Data, &m); err != nil {
				return nil, err
			}
			entries = append(entries, entry{node: node{more: &m}, parent: m.ParentID})
		}
	}

	children := make(map[string][]int)
	var roots []int
	for i, e := range entries {
		if names[e.parent] && e.parent != e.node.comment.Name {
			children[e.parent] = append(children[e.parent], i)
			continue
		}
		roots = append(roots, i)
	}

	out := make([]node, 0, len(entries))
	var emit func(i, depth int)
	emit = func(i, depth int) {
		n := entries[i].node
		n.depth = depth
		if n.more != nil {
			out = append(out, n)
			return
		}
		n.comment.Depth = depth
		out = append(out, n)
		for _, j := range children[n.comment.Name] {
			emit(j, depth+1)
		}
	}
	for _, i := range roots {
		emit(i, rootDepth)
	}
	return out, nil
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
