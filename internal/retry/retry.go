// Package retry provides the shared retry policy for external calls.
// Transient failures (rate limits, network) are retried with exponential
// backoff; everything else fails immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Policy configures bounded exponential backoff.
type Policy struct {
	MaxAttempts     int           // total attempts, including the first
	InitialInterval time.Duration // delay before the second attempt
	MaxInterval     time.Duration // backoff ceiling

	// Retryable classifies errors. Defaults to Transient.
	Retryable func(error) bool
}

// DefaultPolicy returns the budget used for embedding and crawl calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts the
// attempt budget, or ctx is cancelled.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = Transient
	}
	delay := p.InitialInterval
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryable(err) || attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, p.MaxInterval)
		}
	}

	return lastErr
}

// transientPatterns groups error substrings by failure class, matched
// case-insensitively. Provider SDKs do not expose typed errors for these.
var transientPatterns = [][]string{
	{"rate limit", "quota exceeded", "429", "too many requests"},
	{"500", "502", "503", "504", "unavailable", "overloaded"},
	{"connection reset", "connection refused", "timeout", "temporary", "eof"},
}

// Transient reports whether err looks like a failure worth retrying.
func Transient(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, group := range transientPatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}
