package companycam

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// WithBaseURL sets the base address relative request URLs resolve against.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithAuthToken sets the client-level bearer token. Per-call AuthToken
// overrides take precedence.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithDefaultHeaders sets headers applied to every request before per-call
// overrides are merged in.
func WithDefaultHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.defaultHeaders = headers
	}
}

// WithTimeout sets the per-attempt timeout (default 30s). Each retry attempt
// gets a fresh timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithRetries sets the maximum number of retry attempts (default 3).
func WithRetries(n int) Option {
	return func(c *Client) {
		c.retries = n
	}
}

// WithAllowPostRetry extends retry eligibility to POST requests. Only enable
// this when POSTs carry idempotency keys or are otherwise safe to repeat.
func WithAllowPostRetry() Option {
	return func(c *Client) {
		c.allowPostRetry = true
	}
}

// WithRetryPolicy replaces the default retry policy entirely.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retryPolicy = policy
	}
}

// WithRateLimiter supplies an externally owned limiter, typically shared
// across several clients. The client will not dispose it.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(c *Client) {
		c.rateLimiter = rl
		c.ownsLimiter = false
	}
}

// WithRateLimiterConfig creates a limiter with the given settings, owned and
// disposed by the client.
func WithRateLimiterConfig(tokensPerInterval int, interval time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = NewRateLimiter(tokensPerInterval, interval)
		c.ownsLimiter = true
	}
}

// WithoutRateLimiter disables client-side rate limiting entirely.
func WithoutRateLimiter() Option {
	return func(c *Client) {
		c.rateLimiter = nil
		c.ownsLimiter = false
		c.limiterDisabled = true
	}
}

// WithHTTPClient sets a custom underlying HTTP client (proxies, transports).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithMetrics enables Prometheus metrics on the default registerer.
func WithMetrics() Option {
	return func(c *Client) {
		c.metrics = NewMetricsCollector()
	}
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(c *Client) {
		c.metrics = collector
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables debug logging with the default configuration.
func WithDebug() Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.Enabled = true
		if c.logger == nil {
			c.logger = NewSimpleLogger()
		}
	}
}

// WithDebugConfig sets a custom debug configuration.
func WithDebugConfig(config *DebugConfig) Option {
	return func(c *Client) {
		c.debug = config
	}
}

// WithRequestIDGenerator sets a custom function for generating request IDs.
func WithRequestIDGenerator(gen func() string) Option {
	return func(c *Client) {
		if c.debug == nil {
			c.debug = DefaultDebugConfig()
		}
		c.debug.RequestIDGen = gen
	}
}

// ValidateConfiguration validates the client configuration and returns an
// aggregated error if anything is off.
func (c *Client) ValidateConfiguration() error {
	var problems []string

	problems = append(problems, c.validateRetryConfig()...)
	problems = append(problems, c.validateRateLimiterConfig()...)
	problems = append(problems, c.validateTransportConfig()...)
	problems = append(problems, c.validateDebugConfig()...)

	if len(problems) > 0 {
		return fmt.Errorf("companycam: configuration validation failed: %v", problems)
	}
	return nil
}

func (c *Client) validateRetryConfig() []string {
	var problems []string
	if c.retries < 0 {
		problems = append(problems, "retries must be non-negative")
	}
	if c.retries > 100 {
		problems = append(problems, "retries > 100 may cause excessive resource usage")
	}
	if c.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if c.retryPolicy == nil {
		problems = append(problems, "retry policy cannot be nil")
	}
	return problems
}

func (c *Client) validateRateLimiterConfig() []string {
	var problems []string
	if c.rateLimiter != nil {
		if c.rateLimiter.capacity <= 0 {
			problems = append(problems, "rateLimiter tokensPerInterval must be positive")
		}
		if c.rateLimiter.refillEvery <= 0 {
			problems = append(problems, "rateLimiter refill interval must be positive")
		}
	}
	return problems
}

func (c *Client) validateTransportConfig() []string {
	var problems []string
	if c.httpClient == nil {
		problems = append(problems, "HTTP client cannot be nil")
	}
	if c.baseURL != "" {
		if u, err := url.Parse(c.baseURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("base URL %q is not an absolute URL", c.baseURL))
		}
	}
	return problems
}

func (c *Client) validateDebugConfig() []string {
	var problems []string
	if c.debug != nil && c.debug.Enabled {
		if c.debug.RequestIDGen == nil {
			problems = append(problems, "debug RequestIDGen must be set when debug is enabled")
		}
		if c.logger == nil {
			problems = append(problems, "logger must be set when debug is enabled")
		}
	}
	return problems
}
