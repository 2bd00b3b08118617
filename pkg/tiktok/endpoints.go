package tiktok

import (
	"fmt"
	"strings"
)

const (
	// BaseURL is the Research API host
	BaseURL = "https://open.tiktokapis.com"

	// TokenEndpoint issues client-credential access tokens
	TokenEndpoint = "/v2/oauth/token/"

	// VideoQueryEndpoint searches videos within a date range
	VideoQueryEndpoint = "/v2/research/video/query/"

	// CommentListEndpoint lists the comments of one video
	CommentListEndpoint = "/v2/research/video/comment/list/"

	// MaxPageSize is the largest max_count the API accepts
	MaxPageSize = 100

	// DefaultMaxComments caps the comments fetched per video
	DefaultMaxComments = 1000
)

// VideoFields are requested from the video query endpoint
var VideoFields = []string{
	"id", "username", "create_time", "region_code",
	"video_description", "view_count", "like_count",
	"comment_count", "share_count", "hashtag_names", "video_duration",
}

// CommentFields are requested from the comment list endpoint
var CommentFields = []string{
	"id", "video_id", "text", "like_count", "reply_count", "parent_comment_id", "create_time",
}

// VideoQueryURL builds the query URL with the field selection
func VideoQueryURL(base string) string {
	return fmt.Sprintf("%s%s?fields=%s", strings.TrimRight(base, "/"), VideoQueryEndpoint, strings.Join(VideoFields, ","))
}

// CommentListURL builds the comment list URL with the field selection
func CommentListURL(base string) string {
	return fmt.Sprintf("%s%s?fields=%s", strings.TrimRight(base, "/"), CommentListEndpoint, strings.Join(CommentFields, ","))
}

// TokenURL builds the OAuth token URL
func TokenURL(base string) string {
	return strings.TrimRight(base, "/") + TokenEndpoint
}

// VideoURL returns the public link to a video, or "" when either part is missing
func VideoURL(username string, id int64) string {
	if username == "" || id == 0 {
		return ""
	}
	return fmt.Sprintf("https://www.tiktok.com/@%s/video/%d", username, id)
}

func clampPageSize(n int) int {
	if n <= 0 || n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
