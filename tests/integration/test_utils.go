package integration

import (
	"context"
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"socialcrawl/pkg/auth"
	"socialcrawl/pkg/config"
	"socialcrawl/pkg/httpx"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/metrics"
	"socialcrawl/pkg/output"
	"socialcrawl/pkg/reddit"
	"socialcrawl/pkg/retry"
	"socialcrawl/pkg/tiktok"
)

// TestHelper wires real clients and crawlers against a MockVendorServer
type TestHelper struct {
	t       *testing.T
	Server  *MockVendorServer
	Outputs *output.Manager
	Metrics *metrics.Metrics
	Logger  *logger.TestLogger
	Sleeps  []time.Duration
}

// NewTestHelper starts a mock server and an output directory for one test
func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()

	server := NewMockVendorServer()
	t.Cleanup(server.Close)

	outputs, err := output.NewManager(t.TempDir(), output.FormatCSV)
	require.NoError(t, err)

	return &TestHelper{
		t:       t,
		Server:  server,
		Outputs: outputs,
		Metrics: metrics.New("integration"),
		Logger:  logger.NewTestLogger(),
	}
}

func (h *TestHelper) sleep(ctx context.Context, d time.Duration) error {
	h.Sleeps = append(h.Sleeps, d)
	return ctx.Err()
}

func (h *TestHelper) executor(platform string) *httpx.Executor {
	exec := httpx.NewExecutor(platform, 5*time.Second, h.Logger)
	exec.SetRecorder(h.Metrics)
	return exec
}

func (h *TestHelper) retrier(platform string, tokens *auth.TokenManager) *retry.Retrier {
	r := retry.NewRetrier(platform, config.DefaultConfig().Retry, tokens, h.Logger)
	r.Sleep = h.sleep
	r.Counter = h.Metrics
	return r
}

// TikTokTokens returns a token manager holding a first token
func (h *TestHelper) TikTokTokens() *auth.TokenManager {
	exchanger := tiktok.NewTokenExchanger(h.executor("tiktok"), h.Server.URL(), "client-key", "client-secret")
	tokens := auth.NewTokenManager("tiktok", exchanger, h.Logger)
	_, err := tokens.Refresh(context.Background())
	require.NoError(h.t, err)
	return tokens
}

// TikTokCrawler builds a crawler writing videos.csv and comments.csv
func (h *TestHelper) TikTokCrawler(tokens *auth.TokenManager, windowDays int) (*tiktok.Crawler, func()) {
	client := tiktok.NewClient(h.executor("tiktok"), h.retrier("tiktok", tokens), tokens, tiktok.Options{
		BaseURL:         h.Server.URL(),
		PageSize:        2,
		CommentPageSize: 2,
		Sleep:           h.sleep,
	}, h.Logger)
	client.SetSkipCounter(h.Metrics)

	videos, err := h.Outputs.Open("videos", tiktok.VideoColumns)
	require.NoError(h.t, err)
	comments, err := h.Outputs.Open("comments", tiktok.CommentColumns)
	require.NoError(h.t, err)

	crawler := tiktok.NewCrawler(client, tiktok.HashtagQuery([]string{"aphantasia"}), windowDays, videos, comments, h.Metrics, h.Logger)
	return crawler, func() {
		require.NoError(h.t, videos.Close())
		require.NoError(h.t, comments.Close())
	}
}

// RedditTokens returns a token manager holding a first token
func (h *TestHelper) RedditTokens() *auth.TokenManager {
	exchanger := reddit.NewTokenExchanger(h.executor("reddit"), h.Server.URL()+"/api/v1/access_token", "app-id", "app-secret", "linux:socialcrawl-test:1.0")
	tokens := auth.NewTokenManager("reddit", exchanger, h.Logger)
	_, err := tokens.Refresh(context.Background())
	require.NoError(h.t, err)
	return tokens
}

// RedditCrawler builds a crawler writing reddit.csv
func (h *TestHelper) RedditCrawler(tokens *auth.TokenManager, subs []reddit.Subreddit, postLimit int) (*reddit.Crawler, func()) {
	client := reddit.NewClient(h.executor("reddit"), h.retrier("reddit", tokens), tokens, reddit.Options{
		BaseURL:   h.Server.URL(),
		UserAgent: "linux:socialcrawl-test:1.0",
		Sleep:     h.sleep,
	}, h.Logger)
	client.SetSkipCounter(h.Metrics)

	out, err := h.Outputs.Open("reddit", reddit.Columns)
	require.NoError(h.t, err)

	crawler := reddit.NewCrawler(client, subs, reddit.CrawlerOptions{
		PostLimit: postLimit,
		PostDelay: 300 * time.Millisecond,
		Sleep:     h.sleep,
	}, out, h.Metrics, h.Logger)
	return crawler, func() { require.NoError(h.t, out.Close()) }
}

// ReadCSV returns the header and the rows of a dataset, keyed by column
func (h *TestHelper) ReadCSV(name string) ([]string, []map[string]string) {
	f, err := os.Open(h.Outputs.Path(name))
	require.NoError(h.t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(h.t, err)
	require.NotEmpty(h.t, records, "dataset %s has no header", name)

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return header, rows
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}
