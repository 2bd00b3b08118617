package httpx

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	errs "socialcrawl/pkg/errors"
	"socialcrawl/pkg/logger"
	"socialcrawl/pkg/ratelimit"
)

// Request describes one HTTP call. The body is kept as bytes so the same
// request can be rebuilt for every attempt.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// NewJSONRequest creates a POST request carrying a JSON payload
func NewJSONRequest(rawURL string, body []byte) *Request {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return &Request{Method: http.MethodPost, URL: rawURL, Header: h, Body: body}
}

// NewFormRequest creates a POST request carrying form-encoded values
func NewFormRequest(rawURL string, values url.Values) *Request {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return &Request{Method: http.MethodPost, URL: rawURL, Header: h, Body: []byte(values.Encode())}
}

// NewGetRequest creates a GET request
func NewGetRequest(rawURL string) *Request {
	return &Request{Method: http.MethodGet, URL: rawURL, Header: http.Header{}}
}

// Recorder observes every attempt. *metrics.Metrics satisfies it.
type Recorder interface {
	ObserveRequest(platform, disposition string, d time.Duration)
}

// Executor performs exactly one network attempt per call and classifies
// the outcome. It never retries.
type Executor struct {
	httpClient        *http.Client
	headers           map[string]string
	platform          string
	defaultRetryAfter time.Duration
	limiter           ratelimit.Limiter
	recorder          Recorder
	logger            logger.Logger
}

// NewExecutor creates a new executor for the given platform label
func NewExecutor(platform string, timeout time.Duration, log logger.Logger) *Executor {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Executor{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		headers: map[string]string{
			"Accept": "application/json",
		},
		platform: platform,
		limiter:  ratelimit.Unlimited{},
		logger:   log,
	}
}

// SetHeader sets a header sent with every request
func (e *Executor) SetHeader(key, value string) {
	e.headers[key] = value
}

// SetTransport replaces the underlying round tripper
func (e *Executor) SetTransport(rt http.RoundTripper) {
	e.httpClient.Transport = rt
}

// SetLimiter installs a limiter waited on before every attempt
func (e *Executor) SetLimiter(l ratelimit.Limiter) {
	if l == nil {
		l = ratelimit.Unlimited{}
	}
	e.limiter = l
}

// SetRecorder installs the attempt recorder
func (e *Executor) SetRecorder(r Recorder) {
	e.recorder = r
}

// SetDefaultRetryAfter sets the wait reported for a 429 without a usable
// Retry-After header. Zero leaves the wait to the retry policy.
func (e *Executor) SetDefaultRetryAfter(d time.Duration) {
	e.defaultRetryAfter = d
}

// Platform returns the label used for logs and metrics
func (e *Executor) Platform() string {
	return e.platform
}

// Execute sends req once and classifies the response
func (e *Executor) Execute(ctx context.Context, req *Request) Disposition {
	start := time.Now()
	d := e.execute(ctx, req)
	d.URL = req.URL
	if e.recorder != nil {
		e.recorder.ObserveRequest(e.platform, d.Kind.String(), time.Since(start))
	}
	return d
}

func (e *Executor) execute(ctx context.Context, req *Request) Disposition {
	if err := e.limiter.Wait(ctx); err != nil {
		return Disposition{Kind: NetworkError, Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return Disposition{Kind: NetworkError, Err: err}
	}
	for key, value := range e.headers {
		httpReq.Header.Set(key, value)
	}
	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	e.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL,
	})

	resp, err := e.httpClient.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		e.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL,
			"error":    err.Error(),
			"duration": duration,
		})
		return Disposition{Kind: NetworkError, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Disposition{Kind: NetworkError, Status: resp.StatusCode, Err: err}
	}

	e.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return e.classify(resp, payload)
}

func (e *Executor) classify(resp *http.Response, payload []byte) Disposition {
	status := resp.StatusCode
	switch {
	case status == http.StatusUnauthorized:
		return Disposition{Kind: AuthExpired, Status: status, Body: payload}
	case status == http.StatusTooManyRequests:
		wait := ParseRetryAfter(resp.Header.Get("Retry-After"))
		if wait <= 0 {
			wait = e.defaultRetryAfter
		}
		return Disposition{Kind: RateLimited, Status: status, Body: payload, RetryAfter: wait}
	case status >= http.StatusInternalServerError:
		return Disposition{Kind: TransientServerError, Status: status, Body: payload}
	case status >= http.StatusBadRequest && !errs.IsRetryableStatusCode(status):
		return Disposition{Kind: PermanentClientError, Status: status, Body: payload}
	default:
		return Disposition{Kind: Success, Status: status, Body: payload}
	}
}

// ParseRetryAfter reads a Retry-After header given in seconds. Anything
// else, including HTTP dates, yields zero.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
