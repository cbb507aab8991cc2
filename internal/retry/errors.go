package retry

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"billscan/internal/domain"
)

// RateLimitError indicates a remote provider answered with HTTP 429 or its
// SDK-specific throttling equivalent. RetryAfter is the provider's hint, zero
// when none was sent. It is diagnostic only: Do always waits on its own
// Policy.Delay schedule.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter <= 0 {
		return fmt.Sprintf("%s rate limited: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() []error {
	return []error{domain.ErrRateLimited, e.Err}
}

// NewRateLimitError creates a RateLimitError. retryAfterSecs <= 0 means the
// provider sent no hint.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(max(retryAfterSecs, 0)) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds. Both
// delta-seconds and HTTP-date forms are accepted; a date in the past, an empty
// value or garbage yields 0.
func ParseRetryAfterHeader(val string) int {
	return parseRetryAfter(val, time.Now())
}

func parseRetryAfter(val string, now time.Time) int {
	val = strings.TrimSpace(val)
	if val == "" {
		return 0
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return max(secs, 0)
	}
	at, err := http.ParseTime(val)
	if err != nil {
		return 0
	}
	return max(int(math.Ceil(at.Sub(now).Seconds())), 0)
}

// IsRateLimited is the default retry classifier.
func IsRateLimited(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}

// RetryExhaustedError reports that every attempt of an operation failed with a
// retryable error.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: retries exhausted after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}
