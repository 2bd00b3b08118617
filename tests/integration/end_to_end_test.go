package integration

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/reddit"
	"socialcrawl/pkg/tiktok"
)

func TestTikTokCrawlEndToEnd(t *testing.T) {
	h := NewTestHelper(t)

	h.Server.AddVideos("20250101",
		tiktok.Video{ID: 101, Username: "ann", CreateTime: 1735700000, CommentCount: 3, HashtagNames: []string{"aphantasia", "mindseye"}},
		tiktok.Video{ID: 102, Username: "bob", CreateTime: 1735710000},
		tiktok.Video{ID: 103, CreateTime: 1735720000},
	)
	h.Server.AddVideos("20250106",
		tiktok.Video{ID: 201, Username: "cy", CreateTime: 1736200000, CommentCount: 9},
	)
	h.Server.AddComments(101,
		tiktok.Comment{ID: 1, VideoID: 101, Text: "same here"},
		tiktok.Comment{ID: 2, VideoID: 101, Text: "reply", ParentCommentID: 1},
		tiktok.Comment{ID: 3, VideoID: 101, Text: "third"},
	)
	h.Server.RejectComments(201)

	tokens := h.TikTokTokens()
	h.Server.ExpireTokens("tiktok")
	h.Server.FailNext("/v2/research/video/query/", http.StatusServiceUnavailable)

	crawler, closeFiles := h.TikTokCrawler(tokens, 5)
	stats, err := crawler.Run(context.Background(), day("2025-01-01"), day("2025-01-10"))
	closeFiles()
	require.NoError(t, err)

	assert.Equal(t, tiktok.Stats{Windows: 2, Videos: 4, Comments: 3, SkippedComments: 1}, stats)
	assert.Equal(t, 2, h.Server.TokensIssued("tiktok"), "expired token is exchanged once")

	header, videos := h.ReadCSV("videos")
	assert.Equal(t, tiktok.VideoColumns, header)
	require.Len(t, videos, 4)
	assert.Equal(t, "101", videos[0]["video_id"])
	assert.Equal(t, "aphantasia,mindseye", videos[0]["hashtag_names"])
	assert.Equal(t, "https://www.tiktok.com/@ann/video/101", videos[0]["video_url"])
	assert.Equal(t, "", videos[2]["video_url"], "no username, no link")
	assert.Equal(t, "201", videos[3]["video_id"])

	_, comments := h.ReadCSV("comments")
	require.Len(t, comments, 3)
	assert.Equal(t, "1", comments[1]["parent_comment_id"])
	assert.Equal(t, "third", comments[2]["text"])

	assert.Equal(t, 4.0, testutil.ToFloat64(h.Metrics.ItemsTotal.WithLabelValues("tiktok", "video")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.RefreshesTotal.WithLabelValues("tiktok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.RetriesTotal.WithLabelValues("tiktok", "server_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.SkippedTotal.WithLabelValues("tiktok", "comments")))
}

func TestTikTokCrawlAbortsOnRejectedQuery(t *testing.T) {
	h := NewTestHelper(t)
	h.Server.AddVideos("20250106", tiktok.Video{ID: 201, Username: "cy"})
	h.Server.FailNext("/v2/research/video/query/", http.StatusBadRequest)

	crawler, closeFiles := h.TikTokCrawler(h.TikTokTokens(), 5)
	stats, err := crawler.Run(context.Background(), day("2025-01-01"), day("2025-01-10"))
	closeFiles()

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeClientError))
	assert.Equal(t, 400, errs.StatusOf(err))
	assert.Equal(t, 1, stats.Windows, "the second window is never queried")

	header, videos := h.ReadCSV("videos")
	assert.Equal(t, tiktok.VideoColumns, header)
	assert.Empty(t, videos)
}

func TestTikTokCrawlGivesUpAfterSixAttempts(t *testing.T) {
	h := NewTestHelper(t)
	h.Server.FailNext("/v2/research/video/query/",
		http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway,
		http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)

	tokens := h.TikTokTokens()
	before := h.Server.RequestCount()

	crawler, closeFiles := h.TikTokCrawler(tokens, 30)
	_, err := crawler.Run(context.Background(), day("2025-01-01"), day("2025-01-10"))
	closeFiles()

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeRetriesExhausted))
	assert.Equal(t, 6, h.Server.RequestCount()-before)
	assert.Len(t, h.Sleeps, 5, "no pause after the last attempt")
}

func redditPost(id string, created string, stickied bool) string {
	ts := day(created).Unix() + 15*3600
	return fmt.Sprintf(`{"kind":"t3","data":{"id":%q,"name":"t3_%s","title":"Title %s","selftext":"body text ","author":"ann","created_utc":%d.0,"score":5,"url":"https://i.redd.it/%s.png","stickied":%t}}`,
		id, id, id, ts, id, stickied)
}

const p2Tree = `[
  {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"p2"}}]}},
  {"kind":"Listing","data":{"children":[
    {"kind":"t1","data":{"id":"c1","parent_id":"t3_p2","author":"bob","body":"I see nothing","score":3,"created_utc":1742500000.0,"permalink":"/r/Aphantasia/comments/p2/x/c1/",
      "replies":{"kind":"Listing","data":{"children":[
        {"kind":"t1","data":{"id":"c2","parent_id":"t1_c1","author":"","body":"same&nbsp;here","score":1,"created_utc":1742500100.0,"permalink":"/r/Aphantasia/comments/p2/x/c2/","replies":""}},
        {"kind":"more","data":{"id":"c9","name":"t1_c9","parent_id":"t1_c1","count":1,"children":["c9"]}}
      ]}}}}
  ]}}
]`

func TestRedditCrawlEndToEnd(t *testing.T) {
	h := NewTestHelper(t)

	h.Server.AddListingPage("Aphantasia",
		redditPost("pinned", "2024-01-01", true),
		redditPost("p3", "2025-03-21", false),
		redditPost("p2", "2025-03-20", false),
	)
	h.Server.AddListingPage("Aphantasia",
		redditPost("p1", "2025-03-12", false),
		redditPost("p0", "2025-03-01", false),
		redditPost("never", "2025-02-01", false),
	)
	h.Server.SetCommentTree("p2", p2Tree)
	h.Server.AddHiddenComment("c9", `{"kind":"t1","data":{"id":"c9","name":"t1_c9","parent_id":"t1_c1","author":"dee","body":"collapsed reply","score":0,"created_utc":1742500200.0,"permalink":"/r/Aphantasia/comments/p2/x/c9/","replies":""}}`)
	h.Server.FailNext("/r/Aphantasia/new", http.StatusTooManyRequests)

	subs := []reddit.Subreddit{{Name: "Aphantasia", Start: day("2025-03-10"), End: day("2025-03-20").AddDate(0, 0, 1).Add(-1)}}
	crawler, closeFile := h.RedditCrawler(h.RedditTokens(), subs, 0)
	stats, err := crawler.Run(context.Background())
	closeFile()
	require.NoError(t, err)

	assert.Equal(t, reddit.Stats{Subreddits: 1, PostsSeen: 5, PostsInRange: 2, Comments: 3, SkippedPosts: 1}, stats)

	header, rows := h.ReadCSV("reddit")
	assert.Equal(t, reddit.Columns, header)
	require.Len(t, rows, 3)

	assert.Equal(t, "Aphantasia", rows[0]["subreddit"])
	assert.Equal(t, "p2", rows[0]["post_id"])
	assert.Equal(t, "body text", rows[0]["post_body"])
	assert.Equal(t, "2025-03-20 15:00:00", rows[0]["post_timestamp"])
	assert.Equal(t, "https://i.redd.it/p2.png", rows[0]["media_urls"])
	assert.Equal(t, "image", rows[0]["media_types"])
	assert.Equal(t, "1", rows[0]["is_top_level"])
	assert.Equal(t, "p2", rows[0]["parent_id"])
	assert.Equal(t, "https://www.reddit.com/r/Aphantasia/comments/p2/x/c1/", rows[0]["permalink"])

	assert.Equal(t, "c2", rows[1]["comment_id"])
	assert.Equal(t, "c1", rows[1]["parent_id"])
	assert.Equal(t, "0", rows[1]["is_top_level"])
	assert.Equal(t, "1", rows[1]["depth"])
	assert.Equal(t, "deleted", rows[1]["comment_author"])
	assert.Equal(t, "same here", rows[1]["comment_body"])

	assert.Equal(t, "c9", rows[2]["comment_id"], "collapsed reply is expanded")
	assert.Equal(t, "c1", rows[2]["parent_id"])
	assert.Equal(t, "1", rows[2]["depth"])
	assert.Equal(t, "collapsed reply", rows[2]["comment_body"])

	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.RetriesTotal.WithLabelValues("reddit", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.Metrics.SkippedTotal.WithLabelValues("reddit", "post_comments")))
	assert.Equal(t, 0.0, testutil.ToFloat64(h.Metrics.SkippedTotal.WithLabelValues("reddit", "more_comments")))
	assert.True(t, h.Logger.HasMessage("Skipping item"), "the missing comment tree is logged")
}

func TestRedditCrawlAbortsWhenSubredditIsMissing(t *testing.T) {
	h := NewTestHelper(t)

	subs := []reddit.Subreddit{{Name: "doesnotexist", Start: day("2025-03-10"), End: day("2025-03-20")}}
	crawler, closeFile := h.RedditCrawler(h.RedditTokens(), subs, 0)
	_, err := crawler.Run(context.Background())
	closeFile()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "r/doesnotexist")
	assert.Equal(t, 404, errs.StatusOf(err))
}
