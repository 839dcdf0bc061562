package companycam

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the per-attempt wall-clock timeout. It resets on each
// retry attempt; it is not cumulative across the retry loop.
const DefaultTimeout = 30 * time.Second

const maxErrorBodyBytes = 1 << 20

// Client is the transport for the CompanyCam API: it enforces rate limiting,
// merges request configuration, dispatches calls with the retry policy
// attached and normalizes failures into *APIError. It is safe for concurrent
// use.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	authToken       string
	defaultHeaders  map[string]string
	timeout         time.Duration
	retries         int
	allowPostRetry  bool
	retryPolicy     RetryPolicy
	rateLimiter     *RateLimiter
	ownsLimiter     bool
	limiterDisabled bool
	metrics         *MetricsCollector
	logger          Logger
	debug           *DebugConfig
	validationError error
}

// New constructs a Client using the provided functional options. Unless a
// limiter is supplied (WithRateLimiter) or disabled (WithoutRateLimiter), the
// client creates one with default settings and owns its disposal. A best
// effort validation is performed; call IsValid / ValidationError for errors.
func New(options ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		retries:    DefaultRetries,
		debug:      DefaultDebugConfig(),
	}

	for _, option := range options {
		option(client)
	}

	if client.retryPolicy == nil {
		client.retryPolicy = NewDefaultRetryPolicy(client.retries, client.allowPostRetry)
	}
	if client.rateLimiter == nil && !client.limiterDisabled {
		client.rateLimiter = NewRateLimiter(DefaultTokensPerInterval, DefaultInterval)
		client.ownsLimiter = true
	}

	if err := client.ValidateConfiguration(); err != nil {
		client.validationError = err
	}

	return client
}

// Request executes one API call. It acquires a rate-limiter token (once, even
// across retries), builds the merged request configuration, dispatches with
// the retry policy attached, and returns either the raw response or an error:
// *APIError for API/transport failures, ctx.Err() or ErrLimiterDisposed for
// control-flow signals.
//
// The caller owns resp.Body and must close it on success.
func (c *Client) Request(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	if c.validationError != nil {
		return nil, c.validationError
	}

	start := time.Now()
	cfg, err := c.buildRequestConfig(opts)
	if err != nil {
		return nil, err
	}
	endpoint := endpointFromURL(cfg.url)

	var requestID string
	if c.debug != nil && c.debug.Enabled && c.debug.RequestIDGen != nil {
		requestID = c.debug.RequestIDGen()
	}
	if c.debug != nil && c.debug.Enabled && c.debug.LogRequests && c.logger != nil {
		c.logger.Debug("starting request", "requestID", requestID, "method", cfg.method, "url", cfg.url)
	}

	if c.metrics != nil {
		c.metrics.RecordRequestStart(cfg.method, endpoint)
	}

	if c.rateLimiter != nil && !opts.DisableRateLimit {
		if err := c.rateLimiter.Acquire(ctx); err != nil {
			if c.debug != nil && c.debug.Enabled && c.debug.LogRateLimit && c.logger != nil {
				c.logger.Warn("rate limiter wait failed", "requestID", requestID, "endpoint", endpoint, "error", err.Error())
			}
			if c.metrics != nil {
				c.metrics.RecordError("RateLimit", cfg.method, endpoint)
				c.metrics.RecordRequestEnd(cfg.method, endpoint)
			}
			return nil, err
		}
		if c.metrics != nil {
			tokens, queued := c.rateLimiter.stats()
			c.metrics.RecordRateLimiter("default", tokens, queued)
		}
	}

	resp, err := c.doWithRetry(ctx, cfg, 0, requestID, endpoint)

	if c.metrics != nil {
		c.metrics.RecordRequestEnd(cfg.method, endpoint)
		statusCode := 0
		if resp != nil {
			statusCode = resp.StatusCode
		} else {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				statusCode = apiErr.Status
			}
		}
		c.metrics.RecordRequest(cfg.method, endpoint, statusCode, time.Since(start))
	}

	return resp, err
}

// doWithRetry runs one attempt and recurses while the retry policy says to.
// Retries reuse the merged configuration and never take another limiter
// token: rate limiting bounds caller-initiated starts, not wire retries.
func (c *Client) doWithRetry(ctx context.Context, cfg *requestConfig, attempt int, requestID, endpoint string) (*http.Response, error) {
	if attempt > 0 {
		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("retry attempt", "requestID", requestID, "attempt", attempt, "endpoint", endpoint)
		}
		if c.metrics != nil {
			c.metrics.RecordRetry(cfg.method, endpoint, attempt)
		}
	}

	resp, err := c.dispatch(ctx, cfg)

	// Caller cancellation is a control-flow signal: never retried, never
	// normalized. Per-attempt timeouts leave ctx intact and stay retryable.
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	delay, retry := c.retryPolicy.ShouldRetry(cfg.method, resp, err, attempt)
	if retry {
		if resp != nil {
			drainAndClose(resp.Body)
		}
		if c.debug != nil && c.debug.Enabled && c.debug.LogRetries && c.logger != nil {
			c.logger.Info("scheduling retry", "requestID", requestID, "attempt", attempt+1, "backoff", delay, "endpoint", endpoint)
		}
		if err := sleepContext(ctx, delay); err != nil {
			return nil, err
		}
		return c.doWithRetry(ctx, cfg, attempt+1, requestID, endpoint)
	}

	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("Network", cfg.method, endpoint)
		}
		return nil, normalizeError(cfg, nil, nil, err)
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		resp.Body.Close()
		if c.metrics != nil {
			errorType := "Client"
			if resp.StatusCode >= 500 {
				errorType = "Server"
			}
			c.metrics.RecordError(errorType, cfg.method, endpoint)
		}
		return nil, normalizeError(cfg, resp, body, nil)
	}

	return resp, nil
}

// dispatch performs one wire-level attempt under its own timeout context. The
// timeout cancel is tied to the response body so reads stay valid until the
// caller closes it.
func (c *Client) dispatch(ctx context.Context, cfg *requestConfig) (*http.Response, error) {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if cfg.timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, cfg.timeout)
	}

	var body io.Reader
	if len(cfg.body) > 0 {
		body = bytes.NewReader(cfg.body)
	}
	req, err := http.NewRequestWithContext(attemptCtx, cfg.method, cfg.url, body)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header = cfg.header.Clone()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Dispose releases resources the client owns. A limiter supplied via
// WithRateLimiter belongs to the caller and is left untouched. Idempotent.
func (c *Client) Dispose() {
	if c.ownsLimiter && c.rateLimiter != nil {
		c.rateLimiter.Dispose()
	}
}

// Get performs a GET request against the given (possibly relative) URL.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	return c.Request(ctx, RequestOptions{Method: http.MethodGet, URL: url})
}

// Post performs a POST request with the given body (see RequestOptions.Body).
func (c *Client) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.Request(ctx, RequestOptions{Method: http.MethodPost, URL: url, Body: body})
}

// Put performs a PUT request with the given body.
func (c *Client) Put(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.Request(ctx, RequestOptions{Method: http.MethodPut, URL: url, Body: body})
}

// Patch performs a PATCH request with the given body.
func (c *Client) Patch(ctx context.Context, url string, body any) (*http.Response, error) {
	return c.Request(ctx, RequestOptions{Method: http.MethodPatch, URL: url, Body: body})
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, url string) (*http.Response, error) {
	return c.Request(ctx, RequestOptions{Method: http.MethodDelete, URL: url})
}

// IsValid reports whether configuration validation passed at construction.
func (c *Client) IsValid() bool {
	return c.validationError == nil
}

// ValidationError returns the configuration validation error, if any.
func (c *Client) ValidationError() error {
	return c.validationError
}

// cancelBody releases the attempt's timeout context when the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, maxErrorBodyBytes)) //nolint:errcheck
	body.Close()
}

// sleepContext is a cancellable sleep: a cancelled caller never starts a
// ghost retry after moving on.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
