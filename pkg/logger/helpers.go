package logger

import (
	"time"

	"github.com/rs/zerolog"
)

// LogRateLimit logs a vendor rate-limit backoff
func LogRateLimit(log Logger, url string, wait time.Duration) {
	log.WithFields(map[string]interface{}{
		"url":    url,
		"wait":   wait,
		"action": "rate_limited",
	}).Warn("Rate limit reached, backing off")
}

// LogSkip logs a unit of work dropped without aborting the crawl
func LogSkip(log Logger, kind, id string, err error) {
	log.WithError(err).WithFields(map[string]interface{}{
		"kind": kind,
		"id":   id,
	}).Warn("Skipping item")
}

// LogCrawlProgress logs a per-window or per-subreddit summary
func LogCrawlProgress(log Logger, scope string, items, children int) {
	log.WithFields(map[string]interface{}{
		"scope":    scope,
		"items":    items,
		"children": children,
	}).Info("Crawl progress")
}

// NewNopLogger creates a no-operation logger for testing
func NewNopLogger() Logger {
	return &nopLogger{}
}

// nopLogger is a logger that does nothing
type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
