package companycam

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PWI-Works/companycam/internal/backoff"
)

// Retry defaults. The jitter rides on top of the cap, so the worst-case wait
// between attempts is maxRetryDelay * 1.2.
const (
	DefaultRetries = 3

	retryBaseDelay    = 200 * time.Millisecond
	maxRetryDelay     = 8 * time.Second
	retryJitterFactor = 0.2
)

// RetryPolicy decides, per failed attempt, whether to re-dispatch and how long
// to wait first. attempt counts completed attempts so far (0 after the first).
type RetryPolicy interface {
	ShouldRetry(method string, resp *http.Response, err error, attempt int) (time.Duration, bool)
}

// DefaultRetryPolicy retries idempotent methods (and POST when opted in) on
// 408, 429, 5xx and network-level failures, honoring Retry-After.
type DefaultRetryPolicy struct {
	retries        int
	allowPostRetry bool
	calculator     *backoff.Calculator
}

// NewDefaultRetryPolicy creates the standard policy. allowPostRetry extends
// eligibility to POST requests carrying their own idempotency guarantees.
func NewDefaultRetryPolicy(retries int, allowPostRetry bool) *DefaultRetryPolicy {
	if retries < 0 {
		retries = 0
	}
	return &DefaultRetryPolicy{
		retries:        retries,
		allowPostRetry: allowPostRetry,
		calculator:     backoff.NewCalculator(retryBaseDelay, maxRetryDelay, retryJitterFactor),
	}
}

// ShouldRetry implements RetryPolicy.
func (p *DefaultRetryPolicy) ShouldRetry(method string, resp *http.Response, err error, attempt int) (time.Duration, bool) {
	if attempt >= p.retries {
		return 0, false
	}
	if !p.methodEligible(method) {
		return 0, false
	}

	retryable := false
	if err != nil {
		// No response received: connection failures and per-attempt timeouts.
		retryable = true
	} else if resp != nil {
		retryable = resp.StatusCode == http.StatusRequestTimeout ||
			resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode >= 500
	}
	if !retryable {
		return 0, false
	}

	var delay time.Duration
	if resp != nil {
		delay = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	if delay == 0 {
		delay = p.calculator.Delay(attempt + 1)
	}
	return delay, true
}

// methodEligible gates retries by verb. Unknown or missing methods stay
// retryable for compatibility with generated callers; the client flags that
// path with a warning when it builds the request.
func (p *DefaultRetryPolicy) methodEligible(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	case http.MethodPost:
		return p.allowPostRetry
	default:
		return true
	}
}

// parseRetryAfter parses a Retry-After header as either delay-seconds or an
// HTTP date, capping the result at maxRetryDelay. Returns 0 when the header
// is absent, malformed, or already in the past.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds <= 0 {
			return 0
		}
		return capRetryDelay(time.Duration(seconds) * time.Second)
	}

	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return capRetryDelay(d)
		}
	}
	return 0
}

func capRetryDelay(d time.Duration) time.Duration {
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
