package reddit

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the OAuth API host used once a token is held
	BaseURL = "https://oauth.reddit.com"
	// AuthURL issues application-only tokens
	AuthURL = "https://www.reddit.com/api/v1/access_token"
	// WebURL prefixes relative permalinks
	WebURL = "https://www.reddit.com"

	// ListingPageSize is the largest page the listing endpoints return
	ListingPageSize = 100
	// CommentLimit is the number of comments requested per post
	CommentLimit = 500
	// MoreChildrenBatch is the most comment ids one morechildren call accepts
	MoreChildrenBatch = 100
)

// NewPostsURL returns the newest-first listing URL of a subreddit
func NewPostsURL(base, subreddit, after string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(ListingPageSize))
	if after != "" {
		q.Set("after", after)
	}
	q.Set("raw_json", "1")
	return strings.TrimRight(base, "/") + "/r/" + url.PathEscape(subreddit) + "/new?" + q.Encode()
}

// CommentsURL returns the comment tree URL of a post
func CommentsURL(base, postID string) string {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(CommentLimit))
	q.Set("raw_json", "1")
	q.Set("threaded", "true")
	return strings.TrimRight(base, "/") + "/comments/" + url.PathEscape(postID) + "?" + q.Encode()
}

// ThreadURL returns the comment tree of a post rooted at one comment,
// used to follow "continue this thread" links
func ThreadURL(base, postID, commentID string) string {
	q := url.Values{}
	q.Set("comment", commentID)
	q.Set("limit", strconv.Itoa(CommentLimit))
	q.Set("raw_json", "1")
	q.Set("threaded", "true")
	return strings.TrimRight(base, "/") + "/comments/" + url.PathEscape(postID) + "?" + q.Encode()
}

// MoreChildrenURL returns the URL expanding the given collapsed comment ids
// of a post
func MoreChildrenURL(base, postID string, ids []string) string {
	q := url.Values{}
	q.Set("api_type", "json")
	q.Set("children", strings.Join(ids, ","))
	q.Set("link_id", kindPost+"_"+postID)
	q.Set("raw_json", "1")
	return strings.TrimRight(base, "/") + "/api/morechildren?" + q.Encode()
}

// AbsolutePermalink turns a relative permalink into a full URL
func AbsolutePermalink(permalink string) string {
	if permalink == "" || strings.HasPrefix(permalink, "http") {
		return permalink
	}
	return WebURL + permalink
}
