// Package scraper fetches the target page and turns it into one observation.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gocolly/colly/v2"

	"github.com/aluiziolira/go-headline-log/config"
)

// Response is what the fetcher saw for the final attempt.
type Response struct {
	StatusCode int
	OK         bool
	FinalURL   string
	Body       []byte
	Header     http.Header
	Attempts   int
}

// Fetcher performs the page request with the configured identity.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers http.Header) (*Response, error)
}

// CollyFetcher is a Fetcher backed by a synchronous colly collector.
type CollyFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	metrics   *Metrics
	logger    *slog.Logger
}

// NewFetcher builds a fetcher configured from cfg.
func NewFetcher(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *CollyFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	return &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		metrics:   metrics,
		logger:    logger,
	}
}

// Fetch requests url, retrying transient failures with exponential backoff.
// The returned Response is non-nil whenever the server answered, even on error.
func (f *CollyFetcher) Fetch(ctx context.Context, url string, headers http.Header) (*Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		resp     *Response
		attempts int
	)
	operation := func() error {
		attempts++
		r, err := f.fetchOnce(url, headers)
		resp = r
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		f.metrics.IncRetries()
		f.logger.Debug("retrying fetch",
			slog.String("url", url),
			slog.Int("attempt", attempts),
			slog.Duration("wait", wait),
			slog.Any("error", err),
		)
	}

	err := backoff.RetryNotify(operation, f.policy(ctx), notify)
	if resp != nil {
		resp.Attempts = attempts
	}
	// A cancelled context surfaces as the bare context error.
	if err != nil && !errors.Is(err, ErrTransport) {
		err = classifyError(err, 0)
	}
	return resp, err
}

func (f *CollyFetcher) policy(ctx context.Context) backoff.BackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = f.cfg.RetryBackoff
	if f.cfg.RetryBackoffMax > 0 {
		expo.MaxInterval = f.cfg.RetryBackoffMax
	}
	expo.MaxElapsedTime = 0
	expo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(expo, uint64(f.cfg.MaxRetries)), ctx)
}

func (f *CollyFetcher) fetchOnce(url string, headers http.Header) (*Response, error) {
	c := f.collector.Clone()

	var (
		resp     *Response
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		resp = toResponse(r, true)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode != 0 {
			resp = toResponse(r, false)
		}
		fetchErr = err
	})

	f.metrics.IncRequest("started")
	start := time.Now()
	err := c.Request(http.MethodGet, url, nil, nil, headers.Clone())
	f.metrics.ObserveDuration(time.Since(start))
	if err == nil {
		err = fetchErr
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if err == nil && resp == nil {
		err = errors.New("no response received")
	}
	if err == nil && !resp.OK {
		err = fmt.Errorf("http status %d", status)
	}
	if err != nil {
		classified := classifyError(err, status)
		f.metrics.IncRequest("failed")
		f.metrics.IncError(errorTypeLabel(classified))
		return resp, classified
	}

	f.metrics.IncRequest("completed")
	return resp, nil
}

func toResponse(r *colly.Response, ok bool) *Response {
	out := &Response{
		StatusCode: r.StatusCode,
		OK:         ok && r.StatusCode >= 200 && r.StatusCode < 300,
		Body:       r.Body,
	}
	if r.Headers != nil {
		out.Header = r.Headers.Clone()
	}
	if r.Request != nil && r.Request.URL != nil {
		out.FinalURL = r.Request.URL.String()
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusInternalServerError:
			return ErrServer{StatusCode: statusCode, Err: wrapped}
		case statusCode < 200 || statusCode >= 300:
			return ErrHTTPStatus{StatusCode: statusCode, Err: wrapped}
		}
	}

	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransport) {
		return err
	}
	return ErrHTTPStatus{StatusCode: statusCode, Err: err}
}

// WithTransport swaps the HTTP transport, e.g. for a mock in tests.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}
