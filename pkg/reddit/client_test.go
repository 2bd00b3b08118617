package reddit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/config"
	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/httpx"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/paginate"
	"socialcrawl/pkg/retry"
)

const (
	testBase = "https://oauth.reddit.test"
	testAuth = "https://www.reddit.test/api/v1/access_token"
	testUA   = "linux:socialcrawl-test:1.0"
)

func noSleep(context.Context, time.Duration) error { return nil }

type skipCounter struct{ kinds []string }

func (s *skipCounter) IncSkipped(_ string, kind string) { s.kinds = append(s.kinds, kind) }

func tokenResponder(t *testing.T, issued *int32) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		id, secret, ok := req.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-id", id)
		assert.Equal(t, "app-secret", secret)
		assert.Equal(t, testUA, req.Header.Get("User-Agent"))
		require.NoError(t, req.ParseForm())
		assert.Equal(t, "client_credentials", req.PostForm.Get("grant_type"))

		n := atomic.AddInt32(issued, 1)
		return httpmock.NewJsonResponse(200, map[string]interface{}{
			"access_token": fmt.Sprintf("tok-%d", n),
			"token_type":   "bearer",
			"expires_in":   86400,
			"scope":        "*",
		})
	}
}

func newTestClient(t *testing.T, transport *httpmock.MockTransport) (*Client, *auth.TokenManager) {
	t.Helper()
	log := logger.NewNopLogger()

	var issued int32
	transport.RegisterResponder("POST", testAuth, tokenResponder(t, &issued))

	exec := httpx.NewExecutor("reddit", 5*time.Second, log)
	exec.SetTransport(transport)

	tokens := auth.NewTokenManager(auth.PlatformReddit, NewTokenExchanger(exec, testAuth, "app-id", "app-secret", testUA), log)
	_, err := tokens.Refresh(context.Background())
	require.NoError(t, err)

	r := retry.NewRetrier("reddit", config.RetryConfig{}, tokens, log)
	r.Sleep = noSleep

	return NewClient(exec, r, tokens, Options{BaseURL: testBase, UserAgent: testUA, Sleep: noSleep}, log), tokens
}

func postJSON(id string, created int64) string {
	return fmt.Sprintf(`{"kind":"t3","data":{"id":%q,"name":"t3_%s","title":"post %s","author":"ann","created_utc":%d.0,"score":3}}`, id, id, id, created)
}

func listingJSON(after string, posts ...string) string {
	children := ""
	for i, p := range posts {
		if i > 0 {
			children += ","
		}
		children += p
	}
	return fmt.Sprintf(`{"kind":"Listing","data":{"after":%q,"children":[%s]}}`, after, children)
}

func TestTokenExchangerFailureIsCredentialError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testAuth,
		httpmock.NewStringResponder(401, `{"message": "Unauthorized", "error": 401}`))

	exec := httpx.NewExecutor("reddit", time.Second, logger.NewNopLogger())
	exec.SetTransport(transport)

	_, err := NewTokenExchanger(exec, testAuth, "app-id", "bad", testUA).Exchange(context.Background())
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeCredential))
	assert.Equal(t, 401, errs.StatusOf(err))
	assert.Equal(t, 1, transport.GetTotalCallCount())
}

func TestTokenExchangerMissingToken(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("POST", testAuth,
		httpmock.NewStringResponder(200, `{"error": "unsupported_grant_type"}`))

	exec := httpx.NewExecutor("reddit", time.Second, logger.NewNopLogger())
	exec.SetTransport(transport)

	_, err := NewTokenExchanger(exec, testAuth, "app-id", "app-secret", testUA).Exchange(context.Background())
	assert.True(t, errs.Is(err, errs.ErrorTypeCredential))
	assert.Contains(t, err.Error(), "unsupported_grant_type")
}

func TestNewPostsFollowsAfterCursor(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)

	var afters []string
	transport.RegisterResponder("GET", testBase+"/r/Aphantasia/new", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer tok-1", req.Header.Get("Authorization"))
		assert.Equal(t, testUA, req.Header.Get("User-Agent"))
		assert.Equal(t, "100", req.URL.Query().Get("limit"))
		assert.Equal(t, "1", req.URL.Query().Get("raw_json"))

		after := req.URL.Query().Get("after")
		afters = append(afters, after)
		switch after {
		case "":
			return httpmock.NewStringResponse(200, listingJSON("t3_b", postJSON("a", 1740000000), postJSON("b", 1739990000))), nil
		case "t3_b":
			return httpmock.NewStringResponse(200, listingJSON("", postJSON("c", 1739980000))), nil
		}
		return httpmock.NewStringResponse(500, "unexpected cursor"), nil
	})

	posts, err := paginate.Collect(client.NewPosts(context.Background(), "Aphantasia", 0))
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{"", "t3_b"}, afters)
	assert.Equal(t, "c", posts[2].ID)
	assert.Equal(t, time.Unix(1740000000, 0).UTC(), posts[0].Created())
}

func TestNewPostsRespectsLimit(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	transport.RegisterResponder("GET", testBase+"/r/Anauralia/new",
		httpmock.NewStringResponder(200, listingJSON("t3_c", postJSON("a", 3), postJSON("b", 2), postJSON("c", 1))))

	posts, err := paginate.Collect(client.NewPosts(context.Background(), "Anauralia", 2))
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET "+testBase+"/r/Anauralia/new"])
}

func TestNewPostsRefreshesExpiredToken(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, tokens := newTestClient(t, transport)

	var auths []string
	transport.RegisterResponder("GET", testBase+"/r/silentminds/new", func(req *http.Request) (*http.Response, error) {
		auths = append(auths, req.Header.Get("Authorization"))
		if len(auths) == 1 {
			return httpmock.NewStringResponse(401, `{"message": "Unauthorized", "error": 401}`), nil
		}
		return httpmock.NewStringResponse(200, listingJSON("", postJSON("a", 1))), nil
	})

	posts, err := paginate.Collect(client.NewPosts(context.Background(), "silentminds", 0))
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, []string{"Bearer tok-1", "Bearer tok-2"}, auths)
	assert.Equal(t, "tok-2", tokens.Current().AccessToken)
}

func TestNewPostsForbiddenIsFatal(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	transport.RegisterResponder("GET", testBase+"/r/private/new",
		httpmock.NewStringResponder(403, `{"reason": "private", "message": "Forbidden", "error": 403}`))

	_, err := paginate.Collect(client.NewPosts(context.Background(), "private", 0))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeClientError))
	assert.Equal(t, 403, errs.StatusOf(err))
	assert.Contains(t, err.Error(), "r/private")
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET "+testBase+"/r/private/new"])
}

func TestNewPostsRetriesServerErrors(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)

	calls := 0
	transport.RegisterResponder("GET", testBase+"/r/Aphantasia/new", func(req *http.Request) (*http.Response, error) {
		calls++
		if calls < 3 {
			return httpmock.NewStringResponse(503, "upstream unavailable"), nil
		}
		return httpmock.NewStringResponse(200, listingJSON("", postJSON("a", 1))), nil
	})

	posts, err := paginate.Collect(client.NewPosts(context.Background(), "Aphantasia", 0))
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 3, calls)
}

const commentTree = `[
  {"kind":"Listing","data":{"after":null,"children":[{"kind":"t3","data":{"id":"p1"}}]}},
  {"kind":"Listing","data":{"after":null,"children":[
    {"kind":"t1","data":{"id":"c1","name":"t1_c1","parent_id":"t3_p1","author":"ann","body":"top","score":4,"created_utc":1740000100.0,"permalink":"/r/Aphantasia/comments/p1/x/c1/",
      "replies":{"kind":"Listing","data":{"children":[
        {"kind":"t1","data":{"id":"c2","name":"t1_c2","parent_id":"t1_c1","author":"[deleted]","body":"nested","score":1,"created_utc":1740000200.0,"permalink":"/r/Aphantasia/comments/p1/x/c2/","replies":""}},
        {"kind":"more","data":{"id":"c5","name":"t1_c5","parent_id":"t1_c1","count":7,"children":["c5","c6"]}}
      ]}}}},
    {"kind":"t1","data":{"id":"c3","name":"t1_c3","parent_id":"t3_p1","author":"bob","body":"second","score":2,"created_utc":1740000300.0,"permalink":"/r/Aphantasia/comments/p1/x/c3/","replies":""}},
    {"kind":"more","data":{"count":0,"children":[]}}
  ]}}
]`

func moreChildrenJSON(things ...string) string {
	return fmt.Sprintf(`{"json":{"errors":[],"data":{"things":[%s]}}}`, strings.Join(things, ","))
}

func commentThing(id, parent string) string {
	return fmt.Sprintf(`{"kind":"t1","data":{"id":%q,"name":"t1_%s","parent_id":%q,"body":"body %s","replies":""}}`, id, id, parent, id)
}

func TestCommentsFlattensDepthFirst(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	skips := &skipCounter{}
	client.SetSkipCounter(skips)

	transport.RegisterResponder("GET", testBase+"/comments/p1", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "500", req.URL.Query().Get("limit"))
		assert.Equal(t, "true", req.URL.Query().Get("threaded"))
		return httpmock.NewStringResponse(200, commentTree), nil
	})

	var requested []string
	transport.RegisterResponder("GET", testBase+"/api/morechildren", func(req *http.Request) (*http.Response, error) {
		q := req.URL.Query()
		assert.Equal(t, "t3_p1", q.Get("link_id"))
		assert.Equal(t, "json", q.Get("api_type"))
		requested = append(requested, q.Get("children"))

		switch q.Get("children") {
		case "c5,c6":
			// c6 replies to c5 and a further placeholder hangs under c5
			return httpmock.NewStringResponse(200, moreChildrenJSON(
				commentThing("c5", "t1_c1"),
				commentThing("c6", "t1_c5"),
				`{"kind":"more","data":{"id":"c8","name":"t1_c8","parent_id":"t1_c5","count":1,"children":["c8"]}}`,
			)), nil
		case "c8":
			return httpmock.NewStringResponse(200, moreChildrenJSON(commentThing("c8", "t1_c5"))), nil
		default:
			return httpmock.NewStringResponse(400, `{"message":"bad children"}`), nil
		}
	})

	comments, err := client.Comments(context.Background(), "p1")
	require.NoError(t, err)

	var ids []string
	var depths []int
	for _, c := range comments {
		ids = append(ids, c.ID)
		depths = append(depths, c.Depth)
	}
	assert.Equal(t, []string{"c1", "c2", "c5", "c6", "c8", "c3"}, ids)
	assert.Equal(t, []int{0, 1, 1, 2, 2, 0}, depths)
	assert.Equal(t, []string{"c5,c6", "c8"}, requested)

	assert.True(t, comments[0].IsTopLevel())
	assert.False(t, comments[1].IsTopLevel())
	assert.Equal(t, "c1", comments[1].ParentShortID())
	assert.Equal(t, "c5", comments[4].ParentShortID())

	assert.Equal(t, []string{"more_comments"}, skips.kinds, "the parentless placeholder cannot be followed")
}

func TestCommentsFollowsContinueThread(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	skips := &skipCounter{}
	client.SetSkipCounter(skips)

	tree := `[
  {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"p1"}}]}},
  {"kind":"Listing","data":{"children":[
    {"kind":"t1","data":{"id":"c1","name":"t1_c1","parent_id":"t3_p1","body":"top","replies":{"kind":"Listing","data":{"children":[
      {"kind":"more","data":{"id":"_","name":"t1__","parent_id":"t1_c1","count":0,"children":[]}}
    ]}}}}
  ]}}
]`
	thread := `[
  {"kind":"Listing","data":{"children":[{"kind":"t3","data":{"id":"p1"}}]}},
  {"kind":"Listing","data":{"children":[
    {"kind":"t1","data":{"id":"c1","name":"t1_c1","parent_id":"t3_p1","body":"top","replies":{"kind":"Listing","data":{"children":[
      {"kind":"t1","data":{"id":"c7","name":"t1_c7","parent_id":"t1_c1","body":"deep","replies":{"kind":"Listing","data":{"children":[
        {"kind":"t1","data":{"id":"c8","name":"t1_c8","parent_id":"t1_c7","body":"deeper","replies":""}}
      ]}}}}
    ]}}}}
  ]}}
]`
	transport.RegisterResponder("GET", testBase+"/comments/p1", func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("comment") == "c1" {
			return httpmock.NewStringResponse(200, thread), nil
		}
		return httpmock.NewStringResponse(200, tree), nil
	})

	comments, err := client.Comments(context.Background(), "p1")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "c1", comments[0].ID)
	assert.Equal(t, "c7", comments[1].ID)
	assert.Equal(t, 1, comments[1].Depth)
	assert.Equal(t, "c8", comments[2].ID)
	assert.Equal(t, 2, comments[2].Depth)
	assert.Empty(t, skips.kinds)
}

func TestCommentsExpandsInBatches(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)

	ids := make([]string, 150)
	quoted := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("k%d", i)
		quoted[i] = strconv.Quote(ids[i])
	}
	tree := fmt.Sprintf(`[
  {"kind":"Listing","data":{"children":[]}},
  {"kind":"Listing","data":{"children":[
    {"kind":"more","data":{"id":"k0","name":"t1_k0","parent_id":"t3_p1","count":150,"children":[%s]}}
  ]}}
]`, strings.Join(quoted, ","))
	transport.RegisterResponder("GET", testBase+"/comments/p1", httpmock.NewStringResponder(200, tree))

	var batches []int
	transport.RegisterResponder("GET", testBase+"/api/morechildren", func(req *http.Request) (*http.Response, error) {
		batch := strings.Split(req.URL.Query().Get("children"), ",")
		batches = append(batches, len(batch))
		things := make([]string, 0, len(batch))
		for _, id := range batch {
			things = append(things, commentThing(id, "t3_p1"))
		}
		return httpmock.NewStringResponse(200, moreChildrenJSON(things...)), nil
	})

	comments, err := client.Comments(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, comments, 150)
	assert.Equal(t, []int{MoreChildrenBatch, 50}, batches)
	assert.Equal(t, "k149", comments[149].ID)
	assert.Equal(t, 0, comments[149].Depth)
}

func TestCommentsRejectedExpansionIsSkipped(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	skips := &skipCounter{}
	client.SetSkipCounter(skips)

	transport.RegisterResponder("GET", testBase+"/comments/p1", httpmock.NewStringResponder(200, commentTree))
	transport.RegisterResponder("GET", testBase+"/api/morechildren",
		httpmock.NewStringResponder(403, `{"message":"Forbidden","error":403}`))

	comments, err := client.Comments(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, comments, 3, "the tree is kept without the collapsed branch")
	assert.Equal(t, []string{"more_comments", "more_comments"}, skips.kinds)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET "+testBase+"/api/morechildren"])
}

func TestCommentsPermanentErrorIsClientError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	transport.RegisterResponder("GET", testBase+"/comments/gone",
		httpmock.NewStringResponder(404, `{"message": "Not Found", "error": 404}`))

	comments, err := client.Comments(context.Background(), "gone")
	require.Error(t, err)
	assert.Nil(t, comments)
	assert.True(t, errs.Is(err, errs.ErrorTypeClientError))
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET "+testBase+"/comments/gone"])
}

func TestCommentsMalformedTree(t *testing.T) {
	transport := httpmock.NewMockTransport()
	client, _ := newTestClient(t, transport)
	transport.RegisterResponder("GET", testBase+"/comments/p1",
		httpmock.NewStringResponder(200, `[{"kind":"Listing","data":{"children":[]}}]`))

	_, err := client.Comments(context.Background(), "p1")
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))

	transport.RegisterResponder("GET", testBase+"/comments/p2",
		httpmock.NewStringResponder(200, `<html>oops</html>`))
	_, err = client.Comments(context.Background(), "p2")
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))
}

func TestURLs(t *testing.T) {
	assert.Equal(t, "https://oauth.reddit.com/r/Aphantasia/new?limit=100&raw_json=1", NewPostsURL(BaseURL, "Aphantasia", ""))
	assert.Equal(t, "https://oauth.reddit.com/r/Aphantasia/new?after=t3_abc&limit=100&raw_json=1", NewPostsURL(BaseURL+"/", "Aphantasia", "t3_abc"))
	assert.Equal(t, "https://oauth.reddit.com/comments/abc?limit=500&raw_json=1&threaded=true", CommentsURL(BaseURL, "abc"))
	assert.Equal(t, "https://oauth.reddit.com/comments/abc?comment=c1&limit=500&raw_json=1&threaded=true", ThreadURL(BaseURL, "abc", "c1"))
	assert.Equal(t, "https://oauth.reddit.com/api/morechildren?api_type=json&children=a%2Cb&link_id=t3_abc&raw_json=1", MoreChildrenURL(BaseURL, "abc", []string{"a", "b"}))
	assert.Equal(t, "https://www.reddit.com/r/x/comments/1/", AbsolutePermalink("/r/x/comments/1/"))
	assert.Equal(t, "https://example.com/a", AbsolutePermalink("https://example.com/a"))
}
