package companycam

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrLimiterDisposed is returned for acquisitions queued when the rate limiter
// is disposed, and for every Acquire call made afterwards.
var ErrLimiterDisposed = errors.New("companycam: rate limiter disposed")

// APIError is the single normalized error shape surfaced for any failed API
// request, regardless of which retry attempt produced the failure.
type APIError struct {
	// Message is human-readable: the first entry of the response body's
	// "errors" array when present, else the HTTP status text, else the
	// underlying error's message.
	Message string

	// Status is the HTTP status code, 0 when no response was received.
	Status int

	// Code is the service-specific error code from the response body, if any.
	Code string

	// Problem is the decoded response body, unmodified.
	Problem map[string]any

	// Headers are the raw response headers, unmodified.
	Headers http.Header

	// RequestID is the x-request-id header, falling back to x-amzn-requestid.
	RequestID string

	// Method and URL identify the originating request. Method is uppercased.
	Method string
	URL    string

	// Cause is the underlying transport error, retained for diagnostics.
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = "request failed"
	}
	if e.Status > 0 {
		if e.RequestID != "" {
			return fmt.Sprintf("companycam: %s %s: %d %s (request id %s)", e.Method, e.URL, e.Status, msg, e.RequestID)
		}
		return fmt.Sprintf("companycam: %s %s: %d %s", e.Method, e.URL, e.Status, msg)
	}
	return fmt.Sprintf("companycam: %s %s: %s", e.Method, e.URL, msg)
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsTransient reports whether err represents a failure that might succeed on
// retry: network-level errors, timeouts, 408/429 and 5xx responses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.Status == 0 {
		return true // no response received
	}
	return apiErr.Status == http.StatusRequestTimeout ||
		apiErr.Status == http.StatusTooManyRequests ||
		apiErr.Status >= 500
}

// normalizeError converts a terminal transport failure into the APIError
// shape. It runs exactly once per failed request, after retries are spent.
func normalizeError(cfg *requestConfig, resp *http.Response, body []byte, cause error) *APIError {
	apiErr := &APIError{
		Method: strings.ToUpper(cfg.method),
		URL:    cfg.url,
		Cause:  cause,
	}

	if resp != nil {
		apiErr.Status = resp.StatusCode
		apiErr.Headers = resp.Header
		apiErr.RequestID = requestIDFromHeader(resp.Header)

		var problem map[string]any
		if len(body) > 0 && json.Unmarshal(body, &problem) == nil {
			apiErr.Problem = problem
			if errs, ok := problem["errors"].([]any); ok && len(errs) > 0 {
				if first, ok := errs[0].(string); ok {
					apiErr.Message = first
				}
			}
			if code, ok := problem["code"].(string); ok {
				apiErr.Code = code
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}

	if apiErr.Message == "" && cause != nil {
		apiErr.Message = cause.Error()
	}
	if apiErr.Message == "" {
		apiErr.Message = "request failed"
	}
	return apiErr
}

func requestIDFromHeader(h http.Header) string {
	if id := h.Get("x-request-id"); id != "" {
		return id
	}
	return h.Get("x-amzn-requestid")
}
