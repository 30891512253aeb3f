package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/aluiziolira/go-headline-log/config"
)

const testURL = "http://example.test/"

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TargetURL = testURL
	cfg.Timeout = 2 * time.Second
	cfg.MaxRetries = 0
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 2 * time.Millisecond
	return cfg
}

func newMockedFetcher(t *testing.T, cfg *config.Config, responder httpmock.Responder) (*CollyFetcher, *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", testURL, responder)
	transport.RegisterResponder("GET", "http://example.test", responder)

	f := NewFetcher(cfg, NewMetrics(), nil)
	f.collector.WithTransport(transport)
	return f, transport
}

func htmlResponder(status int, body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(status, body)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	return httpmock.ResponderFromResponse(resp)
}

func TestFetchSuccessSendsIdentityHeaders(t *testing.T) {
	cfg := testConfig()

	var got http.Header
	responder := func(req *http.Request) (*http.Response, error) {
		got = req.Header.Clone()
		resp := httpmock.NewStringResponse(http.StatusOK, "<html><body>ok</body></html>")
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	}
	f, transport := newMockedFetcher(t, cfg, responder)

	resp, err := f.Fetch(context.Background(), testURL, cfg.RequestHeaders())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !resp.OK || resp.StatusCode != http.StatusOK {
		t.Fatalf("response = %d ok=%v, want 200 ok", resp.StatusCode, resp.OK)
	}
	if string(resp.Body) != "<html><body>ok</body></html>" {
		t.Fatalf("body = %q", resp.Body)
	}
	if resp.FinalURL != testURL {
		t.Fatalf("final url = %q, want %q", resp.FinalURL, testURL)
	}
	if resp.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", resp.Attempts)
	}
	if transport.GetTotalCallCount() != 1 {
		t.Fatalf("calls = %d, want 1", transport.GetTotalCallCount())
	}

	for _, key := range []string{"User-Agent", "Accept-Language", "Referer"} {
		if got.Get(key) != cfg.Headers[key] {
			t.Fatalf("header %s = %q, want %q", key, got.Get(key), cfg.Headers[key])
		}
	}
}

func TestFetchHTTPStatusClassification(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{status: http.StatusTooManyRequests, expected: "rate_limited"},
		{status: http.StatusForbidden, expected: "forbidden"},
		{status: http.StatusNotFound, expected: "not_found"},
		{status: http.StatusBadGateway, expected: "server_error"},
		{status: http.StatusGone, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			cfg := testConfig()
			f, _ := newMockedFetcher(t, cfg, htmlResponder(tt.status, "nope"))

			resp, err := f.Fetch(context.Background(), testURL, cfg.RequestHeaders())
			if err == nil {
				t.Fatalf("expected error for status %d", tt.status)
			}
			if !errors.Is(err, ErrTransport) {
				t.Fatalf("error %v should match ErrTransport", err)
			}
			if got := errorTypeLabel(err); got != tt.expected {
				t.Fatalf("label = %q, want %q", got, tt.expected)
			}
			if resp == nil || resp.StatusCode != tt.status || resp.OK {
				t.Fatalf("response = %+v, want status %d not ok", resp, tt.status)
			}
		})
	}
}

func TestFetchRetriesTransientFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2

	f, transport := newMockedFetcher(t, cfg, htmlResponder(http.StatusServiceUnavailable, "busy"))

	resp, err := f.Fetch(context.Background(), testURL, cfg.RequestHeaders())
	var server ErrServer
	if !errors.As(err, &server) || server.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected ErrServer 503, got %v", err)
	}
	if got := transport.GetTotalCallCount(); got != 3 {
		t.Fatalf("calls = %d, want 3 (1 + 2 retries)", got)
	}
	if resp.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", resp.Attempts)
	}
}

func TestFetchDoesNotRetryPermanentFailures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 3

	f, transport := newMockedFetcher(t, cfg, htmlResponder(http.StatusNotFound, "missing"))

	_, err := f.Fetch(context.Background(), testURL, cfg.RequestHeaders())
	var notFound ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := transport.GetTotalCallCount(); got != 1 {
		t.Fatalf("calls = %d, want 1", got)
	}
}

func TestFetchRecoversAfterRetry(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRetries = 2

	calls := 0
	responder := func(req *http.Request) (*http.Response, error) {
		calls++
		if calls == 1 {
			return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
		}
		return httpmock.NewStringResponse(http.StatusOK, "<p>back</p>"), nil
	}
	f, _ := newMockedFetcher(t, cfg, responder)

	resp, err := f.Fetch(context.Background(), testURL, cfg.RequestHeaders())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !resp.OK || resp.Attempts != 2 {
		t.Fatalf("response ok=%v attempts=%d, want ok after 2 attempts", resp.OK, resp.Attempts)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   string
	}{
		{name: "nil", err: nil, statusCode: 0, expected: "unknown"},
		{name: "context timeout", err: context.DeadlineExceeded, statusCode: 0, expected: "timeout"},
		{name: "net timeout", err: &net.DNSError{IsTimeout: true}, statusCode: 0, expected: "timeout"},
		{name: "connection", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, statusCode: 0, expected: "connection"},
		{name: "forbidden", err: nil, statusCode: http.StatusForbidden, expected: "forbidden"},
		{name: "not found", err: nil, statusCode: http.StatusNotFound, expected: "not_found"},
		{name: "rate limited", err: nil, statusCode: http.StatusTooManyRequests, expected: "rate_limited"},
		{name: "server error", err: nil, statusCode: http.StatusInternalServerError, expected: "server_error"},
		{name: "ok status", err: nil, statusCode: http.StatusOK, expected: "unknown"},
		{name: "other", err: errors.New("some other error"), statusCode: 0, expected: "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errorTypeLabel(classifyError(tt.err, tt.statusCode)); got != tt.expected {
				t.Fatalf("classifyError(%v, %d) = %q, want %q", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !retryable(ErrTimeout{Err: context.DeadlineExceeded}) {
		t.Fatalf("timeouts should be retryable")
	}
	if !retryable(ErrRateLimited{Err: errors.New("slow down")}) {
		t.Fatalf("rate limits should be retryable")
	}
	if retryable(ErrForbidden{Err: errors.New("no")}) {
		t.Fatalf("403 should not be retryable")
	}
	if retryable(errors.New("plain")) {
		t.Fatalf("unclassified errors should not be retryable")
	}
}
