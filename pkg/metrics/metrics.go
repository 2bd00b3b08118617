package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for a crawl run
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RetriesTotal    *prometheus.CounterVec
	RefreshesTotal  *prometheus.CounterVec
	ItemsTotal      *prometheus.CounterVec
	SkippedTotal    *prometheus.CounterVec
}

// New constructs and registers all metrics on a dedicated registry.
// runID is attached to every series as a constant label.
func New(runID string) *Metrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{}
	if runID != "" {
		constLabels["run_id"] = runID
	}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "socialcrawl_requests_total",
			Help:        "HTTP attempts issued, by classified disposition.",
			ConstLabels: constLabels,
		},
		[]string{"platform", "disposition"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "socialcrawl_request_duration_seconds",
			Help:        "Latency of single HTTP attempts.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		},
		[]string{"platform"},
	)
	retries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "socialcrawl_retries_total",
			Help:        "Retries scheduled, by the disposition that caused them.",
			ConstLabels: constLabels,
		},
		[]string{"platform", "reason"},
	)
	refreshes := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "socialcrawl_token_refreshes_total",
			Help:        "Access token exchanges performed.",
			ConstLabels: constLabels,
		},
		[]string{"platform"},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "socialcrawl_items_total",
			Help:        "Records handed to the row writers.",
			ConstLabels: constLabels,
		},
		[]string{"platform", "kind"},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "socialcrawl_skipped_total",
			Help:        "Units of work skipped after a non-fatal failure.",
			ConstLabels: constLabels,
		},
		[]string{"platform", "kind"},
	)

	registry.MustRegister(requests, duration, retries, refreshes, items, skipped)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: duration,
		RetriesTotal:    retries,
		RefreshesTotal:  refreshes,
		ItemsTotal:      items,
		SkippedTotal:    skipped,
	}
}

// ObserveRequest records one HTTP attempt
func (m *Metrics) ObserveRequest(platform, disposition string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(platform, disposition).Inc()
	m.RequestDuration.WithLabelValues(platform).Observe(d.Seconds())
}

// IncRetry increments the retries counter
func (m *Metrics) IncRetry(platform, reason string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(platform, reason).Inc()
}

// IncRefresh increments the token refresh counter
func (m *Metrics) IncRefresh(platform string) {
	if m == nil {
		return
	}
	m.RefreshesTotal.WithLabelValues(platform).Inc()
}

// IncItem increments the items counter
func (m *Metrics) IncItem(platform, kind string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(platform, kind).Inc()
}

// IncSkipped increments the skipped counter
func (m *Metrics) IncSkipped(platform, kind string) {
	if m == nil {
		return
	}
	m.SkippedTotal.WithLabelValues(platform, kind).Inc()
}

// WriteTextfile dumps the registry in the text exposition format, for the
// node exporter textfile collector or for archiving next to the dataset
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
