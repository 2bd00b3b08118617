package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"socialcrawl/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).Level(zerolog.DebugLevel)
	return &zerologLogger{logger: &zlog, fields: make(map[string]interface{})}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"empty level defaults to info", &config.LoggingConfig{}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "crawl.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && l == nil {
				t.Fatal("New() returned nil logger")
			}
		})
	}
}

func TestFileOutputReceivesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawl.log")
	l, err := New(&config.LoggingConfig{Level: "info", File: path, NoConsole: true})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	l.WithField("window", "20250213").Info("Query window")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"window":"20250213"`) {
		t.Errorf("expected window field in log file, got %s", data)
	}
	if !strings.Contains(string(data), `"app":"socialcrawl"`) {
		t.Errorf("expected app field in log file, got %s", data)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":    zerolog.DebugLevel,
		"INFO":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		"error":    zerolog.ErrorLevel,
		"disabled": zerolog.Disabled,
	}
	for input, want := range tests {
		got, err := parseLogLevel(input)
		if err != nil {
			t.Errorf("parseLogLevel(%q) unexpected error: %v", input, err)
		}
		if got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}

	if _, err := parseLogLevel("trace-everything"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := newBufferLogger(&buf)

	child := parent.WithFields(map[string]interface{}{
		"platform": "tiktok",
		"page":     3,
		"has_more": true,
		"wait":     2 * time.Second,
	})
	child.Info("page fetched")

	out := buf.String()
	for _, want := range []string{`"platform":"tiktok"`, `"page":3`, `"has_more":true`, "page fetched"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output %s", want, out)
		}
	}

	buf.Reset()
	parent.Info("parent message")
	if strings.Contains(buf.String(), "platform") {
		t.Error("parent logger should not carry child fields")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.WithError(errors.New("boom")).Error("request failed")
	if !strings.Contains(buf.String(), `"error":"boom"`) {
		t.Errorf("expected error field, got %s", buf.String())
	}

	if l.WithError(nil) != Logger(l) {
		t.Error("WithError(nil) should return the same logger")
	}
}

func TestStructuredLoggingMergesStoredFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf).WithField("run_id", "abc")

	l.WarnWithFields("retrying request", map[string]interface{}{"attempt": 2})
	out := buf.String()
	if !strings.Contains(out, `"run_id":"abc"`) || !strings.Contains(out, `"attempt":2`) {
		t.Errorf("expected stored and call fields, got %s", out)
	}
}

func TestTestLoggerCapturesChildFields(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("video_id", "42").WithError(errors.New("404")).Warn("Skipping item")
	tl.Error("fatal")

	msgs := tl.GetMessagesByLevel("WARN")
	if len(msgs) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(msgs))
	}
	if msgs[0].Fields["video_id"] != "42" || msgs[0].Error == nil {
		t.Errorf("unexpected captured message %+v", msgs[0])
	}
	if !tl.HasMessage("Skipping item") || !tl.HasError() {
		t.Error("expected captured messages")
	}
}
