package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New("run-1")

	m.ObserveRequest("tiktok", "success", 20*time.Millisecond)
	m.ObserveRequest("tiktok", "success", 30*time.Millisecond)
	m.ObserveRequest("tiktok", "rate_limited", time.Millisecond)
	m.IncRetry("tiktok", "rate_limited")
	m.IncRefresh("tiktok")
	m.IncItem("tiktok", "video")
	m.IncSkipped("tiktok", "comments")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("tiktok", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("tiktok", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RetriesTotal.WithLabelValues("tiktok", "rate_limited")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("tiktok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ItemsTotal.WithLabelValues("tiktok", "video")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedTotal.WithLabelValues("tiktok", "comments")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("reddit", "success", time.Second)
	m.IncRetry("reddit", "network_error")
	m.IncRefresh("reddit")
	m.IncItem("reddit", "comment")
	m.IncSkipped("reddit", "post")
	assert.NoError(t, m.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestWriteTextfile(t *testing.T) {
	m := New("run-42")
	m.IncItem("reddit", "comment")

	path := filepath.Join(t.TempDir(), "metrics", "socialcrawl.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "socialcrawl_items_total"))
	assert.True(t, strings.Contains(text, `run_id="run-42"`))
}
