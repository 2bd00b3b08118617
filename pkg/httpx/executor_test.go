package httpx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/logger"
)

type recordedAttempt struct {
	platform    string
	disposition string
}

type fakeRecorder struct {
	attempts []recordedAttempt
}

func (f *fakeRecorder) ObserveRequest(platform, disposition string, _ time.Duration) {
	f.attempts = append(f.attempts, recordedAttempt{platform, disposition})
}

type denyLimiter struct{}

func (denyLimiter) Allow() bool                    { return false }
func (denyLimiter) Wait(ctx context.Context) error { return context.DeadlineExceeded }
func (denyLimiter) Reset()                         {}

func newTestExecutor() *Executor {
	return NewExecutor("test", 5*time.Second, logger.NewNopLogger())
}

func TestExecuteClassification(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		retryAfter string
		want       Kind
		wantWait   time.Duration
	}{
		{"ok", http.StatusOK, "", Success, 0},
		{"redirect kept as success", http.StatusNotModified, "", Success, 0},
		{"unauthorized", http.StatusUnauthorized, "", AuthExpired, 0},
		{"rate limited with header", http.StatusTooManyRequests, "7", RateLimited, 7 * time.Second},
		{"rate limited without header", http.StatusTooManyRequests, "", RateLimited, 0},
		{"rate limited with date header", http.StatusTooManyRequests, "Wed, 21 Oct 2015 07:28:00 GMT", RateLimited, 0},
		{"bad request", http.StatusBadRequest, "", PermanentClientError, 0},
		{"forbidden", http.StatusForbidden, "", PermanentClientError, 0},
		{"not found", http.StatusNotFound, "", PermanentClientError, 0},
		{"unprocessable", http.StatusUnprocessableEntity, "", PermanentClientError, 0},
		{"internal", http.StatusInternalServerError, "", TransientServerError, 0},
		{"gateway", http.StatusBadGateway, "", TransientServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.retryAfter != "" {
					w.Header().Set("Retry-After", tt.retryAfter)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":"x"}`))
			}))
			defer server.Close()

			d := newTestExecutor().Execute(context.Background(), NewGetRequest(server.URL))

			assert.Equal(t, tt.want, d.Kind)
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.wantWait, d.RetryAfter)
			assert.Equal(t, server.URL, d.URL)
		})
	}
}

func TestExecuteDefaultRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	exec := newTestExecutor()
	exec.SetDefaultRetryAfter(3 * time.Second)

	d := exec.Execute(context.Background(), NewGetRequest(server.URL))
	assert.Equal(t, RateLimited, d.Kind)
	assert.Equal(t, 3*time.Second, d.RetryAfter)
}

func TestExecuteSendsBodyAndHeaders(t *testing.T) {
	var gotBody, gotType, gotAuth, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	req := NewJSONRequest(server.URL, []byte(`{"a":1}`))
	req.Header.Set("Authorization", "Bearer tok")

	d := newTestExecutor().Execute(context.Background(), req)
	require.True(t, d.OK())
	assert.Equal(t, `{"data":{}}`, string(d.Body))
	assert.Equal(t, `{"a":1}`, gotBody)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestExecuteNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	d := newTestExecutor().Execute(context.Background(), NewGetRequest(url))
	assert.Equal(t, NetworkError, d.Kind)
	assert.Error(t, d.Err)
	assert.Equal(t, 0, d.Status)
}

func TestExecuteLimiterFailureIsNetworkError(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	exec := newTestExecutor()
	exec.SetLimiter(denyLimiter{})

	d := exec.Execute(context.Background(), NewGetRequest(server.URL))
	assert.Equal(t, NetworkError, d.Kind)
	assert.False(t, called)
}

func TestExecuteRecordsAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	rec := &fakeRecorder{}
	exec := newTestExecutor()
	exec.SetRecorder(rec)
	exec.Execute(context.Background(), NewGetRequest(server.URL))

	require.Len(t, rec.attempts, 1)
	assert.Equal(t, "test", rec.attempts[0].platform)
	assert.Equal(t, "server_error", rec.attempts[0].disposition)
}

func TestDispositionAsError(t *testing.T) {
	d := Disposition{
		Kind:   PermanentClientError,
		Status: 404,
		Body:   []byte(strings.Repeat("z", 500)),
		URL:    "https://example.test/x",
	}

	err := d.AsError("video query rejected")
	assert.Equal(t, errs.ErrorTypeClientError, err.Type)
	assert.Equal(t, 404, err.Code)
	assert.Len(t, err.Body, errs.MaxBodySnippet+3)
	assert.Contains(t, err.Error(), "video query rejected")
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 12*time.Second, ParseRetryAfter(" 12 "))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("0"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("-4"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter("soon"))
	assert.Equal(t, time.Duration(0), ParseRetryAfter(""))
}
