package adapters

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/InfiniteXqz/roblox-rap-updater/logging"
	"github.com/InfiniteXqz/roblox-rap-updater/metrics"
)

const (
	connectTimeout  = 4 * time.Second
	headerTimeout   = 15 * time.Second
	idleConnTimeout = 90 * time.Second
	maxBodyBytes    = 8 << 20
)

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Latency    time.Duration
}

// FetcherOptions configures a Fetcher. Zero values pick sensible defaults.
type FetcherOptions struct {
	Client    *http.Client
	UserAgent string
	Timeout   time.Duration
	// MaxConnsPerHost sizes the default transport; ignored when Client is set.
	MaxConnsPerHost int
	Backoff         BackoffPolicy
	Metrics         metrics.Collector
	Logger          logging.Logger
}

// Fetcher performs outbound HTTP calls with rate-limit aware retries.
//
// Get retries HTTP 429 according to the BackoffPolicy and fails fast on any
// other non-2xx status. Send performs exactly one attempt. Pacing between
// calls is left to callers since it differs per endpoint.
type Fetcher struct {
	client    *http.Client
	userAgent string
	backoff   BackoffPolicy
	metrics   metrics.Collector
	logger    logging.Logger
}

// NewFetcher builds a Fetcher from opts.
func NewFetcher(opts FetcherOptions) *Fetcher {
	client := opts.Client
	if client == nil {
		client = newHTTPClient(opts.MaxConnsPerHost, opts.Timeout)
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = "roblox-rap-updater/1.0"
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.NewNop()
	}
	l := opts.Logger
	if l == nil {
		l = logging.NewNop()
	}

	return &Fetcher{
		client:    client,
		userAgent: ua,
		backoff:   opts.Backoff,
		metrics:   m,
		logger:    l,
	}
}

func newHTTPClient(maxPerHost int, timeout time.Duration) *http.Client {
	if maxPerHost <= 0 {
		maxPerHost = 32
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxConnsPerHost:       maxPerHost,
		MaxIdleConns:          maxPerHost * 2,
		MaxIdleConnsPerHost:   maxPerHost,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: headerTimeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: tr, Timeout: timeout}
}

// Get issues a GET to rawURL, retrying on HTTP 429.
//
// On success the full 2xx response is returned. Any other status yields an
// *UpstreamError; transport and context errors are returned as-is (wrapped).
func (f *Fetcher) Get(ctx context.Context, op, rawURL string) (Response, error) {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return Response{}, fmt.Errorf("%s: build request: %w", op, err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.do(op, req)
		if err != nil {
			return Response{}, err
		}
		if resp.StatusCode != http.StatusTooManyRequests {
			if !isSuccess(resp.StatusCode) {
				return resp, newUpstreamError(op, resp, nil)
			}
			return resp, nil
		}

		if f.backoff.exhausted(attempt) {
			return resp, newUpstreamError(op, resp, ErrRetriesExhausted)
		}
		delay := f.backoff.wait(resp.Header)
		f.metrics.RecordRetry(op, delay)
		f.logger.Debug("rate limited, backing off", "op", op, "attempt", attempt, "delay", delay)
		if err := Pause(ctx, delay); err != nil {
			return Response{}, fmt.Errorf("%s: %w", op, err)
		}
	}
}

// Send performs req once. It never retries, not even on HTTP 429.
func (f *Fetcher) Send(ctx context.Context, op string, req *http.Request) (Response, error) {
	resp, err := f.do(op, req.WithContext(ctx))
	if err != nil {
		return Response{}, err
	}
	if !isSuccess(resp.StatusCode) {
		return resp, newUpstreamError(op, resp, nil)
	}
	return resp, nil
}

func (f *Fetcher) do(op string, req *http.Request) (Response, error) {
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.RecordRequest(op, 0, time.Since(start))
		return Response{}, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	latency := time.Since(start)
	f.metrics.RecordRequest(op, resp.StatusCode, latency)
	if err != nil {
		return Response{}, fmt.Errorf("%s: read body: %w", op, err)
	}

	return Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Latency:    latency,
	}, nil
}

func isSuccess(code int) bool { return code >= 200 && code < 300 }
