package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"socialcrawl/pkg/tiktok"
)

// MockVendorServer simulates the TikTok Research API and the Reddit OAuth
// API on one httptest server
type MockVendorServer struct {
	server *httptest.Server

	mu sync.Mutex
	// queued failure statuses per path, consumed one per request
	failures map[string][]int
	// requests carrying a token issued before this generation get a 401
	minTokenGen map[string]int

	tokenGen     map[string]int
	requestCount int32

	// TikTok fixtures
	videosByStart   map[string][]tiktok.Video
	commentsByVideo map[string][]tiktok.Comment
	rejectedVideos  map[string]bool

	// Reddit fixtures
	listings map[string][]string
	trees    map[string]string
	hidden   map[string]string
}

// NewMockVendorServer starts an empty mock server
func NewMockVendorServer() *MockVendorServer {
	m := &MockVendorServer{
		failures:        make(map[string][]int),
		minTokenGen:     make(map[string]int),
		tokenGen:        make(map[string]int),
		videosByStart:   make(map[string][]tiktok.Video),
		commentsByVideo: make(map[string][]tiktok.Comment),
		rejectedVideos:  make(map[string]bool),
		listings:        make(map[string][]string),
		trees:           make(map[string]string),
		hidden:          make(map[string]string),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/oauth/token/", m.handleTikTokToken)
	mux.HandleFunc("/v2/research/video/query/", m.handleVideoQuery)
	mux.HandleFunc("/v2/research/video/comment/list/", m.handleCommentList)
	mux.HandleFunc("/api/v1/access_token", m.handleRedditToken)
	mux.HandleFunc("/r/", m.handleListing)
	mux.HandleFunc("/comments/", m.handleComments)
	mux.HandleFunc("/api/morechildren", m.handleMoreChildren)

	m.server = httptest.NewServer(m.count(mux))
	return m
}

// URL returns the server base URL
func (m *MockVendorServer) URL() string {
	return m.server.URL
}

// Close shuts the server down
func (m *MockVendorServer) Close() {
	m.server.Close()
}

// RequestCount returns the number of requests served
func (m *MockVendorServer) RequestCount() int {
	return int(atomic.LoadInt32(&m.requestCount))
}

// TokensIssued returns how many tokens were issued for platform
func (m *MockVendorServer) TokensIssued(platform string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokenGen[platform]
}

// FailNext makes the next requests to path answer with the given statuses
func (m *MockVendorServer) FailNext(path string, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = append(m.failures[path], statuses...)
}

// ExpireTokens invalidates every token issued so far for platform
func (m *MockVendorServer) ExpireTokens(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minTokenGen[platform] = m.tokenGen[platform] + 1
}

// AddVideos registers the videos returned for a window starting on start (YYYYMMDD)
func (m *MockVendorServer) AddVideos(start string, videos ...tiktok.Video) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videosByStart[start] = append(m.videosByStart[start], videos...)
}

// AddComments registers the comments of a video
func (m *MockVendorServer) AddComments(videoID int64, comments ...tiktok.Comment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := strconv.FormatInt(videoID, 10)
	m.commentsByVideo[id] = append(m.commentsByVideo[id], comments...)
}

// RejectComments makes the comment listing of a video answer 403
func (m *MockVendorServer) RejectComments(videoID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejectedVideos[strconv.FormatInt(videoID, 10)] = true
}

// AddListingPage appends one page of post things to a subreddit listing
func (m *MockVendorServer) AddListingPage(subreddit string, posts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[subreddit] = append(m.listings[subreddit], "["+strings.Join(posts, ",")+"]")
}

// SetCommentTree registers the raw two-listing comment response of a post
func (m *MockVendorServer) SetCommentTree(postID, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trees[postID] = body
}

// AddHiddenComment registers the raw thing returned by morechildren for a
// collapsed comment id
func (m *MockVendorServer) AddHiddenComment(id, thing string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hidden[id] = thing
}

func (m *MockVendorServer) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.requestCount, 1)
		if status, ok := m.nextFailure(r.URL.Path); ok {
			if status == http.StatusTooManyRequests {
				w.Header().Set("Retry-After", "1")
			}
			m.sendError(w, status, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *MockVendorServer) nextFailure(path string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	queue := m.failures[path]
	if len(queue) == 0 {
		return 0, false
	}
	m.failures[path] = queue[1:]
	return queue[0], true
}

func (m *MockVendorServer) issueToken(platform string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokenGen[platform]++
	return fmt.Sprintf("%s-token-%d", platform, m.tokenGen[platform])
}

// authorized checks the bearer token generation against the expiry mark
func (m *MockVendorServer) authorized(r *http.Request, platform string) bool {
	header := r.Header.Get("Authorization")
	prefix := "Bearer " + platform + "-token-"
	if !strings.HasPrefix(header, prefix) {
		return false
	}
	gen, err := strconv.Atoi(strings.TrimPrefix(header, prefix))
	if err != nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen >= m.minTokenGen[platform]
}

func (m *MockVendorServer) handleTikTokToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" || r.PostForm.Get("client_secret") == "" {
		m.sendError(w, http.StatusBadRequest, "invalid_client")
		return
	}
	m.sendJSON(w, map[string]interface{}{
		"access_token": m.issueToken("tiktok"),
		"expires_in":   7200,
		"token_type":   "Bearer",
	})
}

func (m *MockVendorServer) handleRedditToken(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := r.BasicAuth(); !ok || r.UserAgent() == "" {
		m.sendError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	m.sendJSON(w, map[string]interface{}{
		"access_token": m.issueToken("reddit"),
		"token_type":   "bearer",
		"expires_in":   86400,
		"scope":        "*",
	})
}

func (m *MockVendorServer) handleVideoQuery(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r, "tiktok") {
		m.sendError(w, http.StatusUnauthorized, "access_token_invalid")
		return
	}
	var req struct {
		StartDate string `json:"start_date"`
		MaxCount  int    `json:"max_count"`
		Cursor    int    `json:"cursor"`
		SearchID  string `json:"search_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MaxCount <= 0 {
		m.sendError(w, http.StatusBadRequest, "invalid_params")
		return
	}

	m.mu.Lock()
	videos := m.videosByStart[req.StartDate]
	m.mu.Unlock()

	page, next, more := pageOf(videos, req.Cursor, req.MaxCount)
	m.sendJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"videos":    page,
			"cursor":    next,
			"has_more":  more,
			"search_id": "search-" + req.StartDate,
		},
		"error": map[string]string{"code": "ok"},
	})
}

func (m *MockVendorServer) handleCommentList(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r, "tiktok") {
		m.sendError(w, http.StatusUnauthorized, "access_token_invalid")
		return
	}
	var req struct {
		VideoID  string `json:"video_id"`
		MaxCount int    `json:"max_count"`
		Cursor   int    `json:"cursor"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		m.sendError(w, http.StatusBadRequest, "invalid_params")
		return
	}

	m.mu.Lock()
	rejected := m.rejectedVideos[req.VideoID]
	comments := m.commentsByVideo[req.VideoID]
	m.mu.Unlock()

	if rejected {
		m.sendError(w, http.StatusForbidden, "video is not eligible for research")
		return
	}

	page, next, more := pageOf(comments, req.Cursor, req.MaxCount)
	m.sendJSON(w, map[string]interface{}{
		"data": map[string]interface{}{
			"comments": page,
			"cursor":   next,
			"has_more": more,
		},
		"error": map[string]string{"code": "ok"},
	})
}

// handleListing serves /r/{sub}/new with "page-N" after cursors
func (m *MockVendorServer) handleListing(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r, "reddit") {
		m.sendError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[2] != "new" {
		m.sendError(w, http.StatusNotFound, "Not Found")
		return
	}

	m.mu.Lock()
	pages, ok := m.listings[parts[1]]
	m.mu.Unlock()
	if !ok {
		m.sendError(w, http.StatusNotFound, "Not Found")
		return
	}

	index := 0
	if after := r.URL.Query().Get("after"); after != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(after, "page-"))
		if err != nil || n >= len(pages) {
			m.sendError(w, http.StatusBadRequest, "bad cursor")
			return
		}
		index = n
	}

	after := "null"
	if index+1 < len(pages) {
		after = strconv.Quote(fmt.Sprintf("page-%d", index+1))
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"kind":"Listing","data":{"after":%s,"children":%s}}`, after, pages[index])
}

func (m *MockVendorServer) handleComments(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r, "reddit") {
		m.sendError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/comments/")

	m.mu.Lock()
	tree, ok := m.trees[id]
	m.mu.Unlock()
	if !ok {
		m.sendError(w, http.StatusNotFound, "Not Found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, tree)
}

// handleMoreChildren answers /api/morechildren with the registered things
// of the requested ids; unknown ids are left out like deleted comments
func (m *MockVendorServer) handleMoreChildren(w http.ResponseWriter, r *http.Request) {
	if !m.authorized(r, "reddit") {
		m.sendError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	q := r.URL.Query()
	if q.Get("api_type") != "json" || !strings.HasPrefix(q.Get("link_id"), "t3_") {
		m.sendError(w, http.StatusBadRequest, "bad request")
		return
	}

	var things []string
	m.mu.Lock()
	for _, id := range strings.Split(q.Get("children"), ",") {
		if thing, ok := m.hidden[id]; ok {
			things = append(things, thing)
		}
	}
	m.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"json":{"errors":[],"data":{"things":[%s]}}}`, strings.Join(things, ","))
}

func (m *MockVendorServer) sendJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *MockVendorServer) sendError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   map[string]string{"code": strconv.Itoa(status), "message": message},
		"message": message,
	})
}

// pageOf slices items from an offset cursor
func pageOf[T any](items []T, cursor, size int) ([]T, int, bool) {
	if cursor >= len(items) {
		return []T{}, cursor, false
	}
	end := cursor + size
	if end > len(items) {
		end = len(items)
	}
	return items[cursor:end], end, end < len(items)
}
