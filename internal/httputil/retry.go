package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

var DefaultRetry = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    10 * time.Second,
}

// MarketDataRetry allows one quick retry. Both attempts have to fit inside a
// snapshot refresh's fetch timeout.
var MarketDataRetry = RetryConfig{
	MaxAttempts: 2,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    2 * time.Second,
}

// NoRetry makes a single attempt.
var NoRetry = RetryConfig{MaxAttempts: 1}

// StatusError is the last retryable HTTP response when every attempt failed.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Do executes an HTTP request with exponential backoff retry on transport
// errors, 429 and 5xx. A Retry-After header replaces the backoff delay for
// that wait, capped at MaxDelay. buildReq is called on each attempt because
// request bodies are consumed.
func Do(ctx context.Context, client *http.Client, cfg RetryConfig, buildReq func() (*http.Request, error)) (*http.Response, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetry.MaxAttempts
	}

	var lastErr error
	delay := cfg.BaseDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		req, err := buildReq()
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := client.Do(req)
		if err == nil && !retryable(resp.StatusCode) {
			return resp, nil
		}

		wait := delay
		if err != nil {
			lastErr = err
		} else {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			resp.Body.Close()
			se := &StatusError{
				StatusCode: resp.StatusCode,
				Body:       string(body),
				RetryAfter: retryAfter(resp.Header.Get("Retry-After"), time.Now()),
			}
			lastErr = se
			if se.RetryAfter > 0 {
				wait = se.RetryAfter
				if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
					wait = cfg.MaxDelay
				}
			}
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		fmt.Printf("[RETRY] %s attempt %d/%d failed: %v - retrying in %s\n",
			req.URL.Host, attempt, cfg.MaxAttempts, lastErr, wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if cfg.MaxAttempts == 1 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("all %d attempts failed, last error: %w", cfg.MaxAttempts, lastErr)
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// retryAfter parses a Retry-After value in seconds or as an HTTP date.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
