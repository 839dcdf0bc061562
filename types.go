package companycam

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Option represents a configuration option for New.
type Option func(*Client)

// RequestOptions describes one API call handed to Client.Request. The zero
// value of every optional field means "not set".
type RequestOptions struct {
	// Method is the HTTP verb. It is uppercased before dispatch.
	Method string

	// URL is either absolute or relative to the client's base address.
	URL string

	// Headers are per-call header overrides. Multi-valued entries are joined
	// with ", " during the merge; empty values are dropped.
	Headers http.Header

	// Query holds query parameters. Entries with a nil value are dropped; if
	// nothing survives cleaning, no query string is sent at all.
	Query map[string]any

	// Body is the request payload: io.Reader, []byte and string are sent
	// verbatim, anything else is JSON-encoded (with Content-Type set to
	// application/json unless already present).
	Body any

	// AuthToken overrides the client-level token for this call only.
	AuthToken string

	// IdempotencyKey, when set, is sent as the Idempotency-Key header so the
	// server can deduplicate retried non-idempotent requests.
	IdempotencyKey string

	// OnBehalfOfUser, when set, is sent as the X-CompanyCam-User header to
	// attribute the request to another user.
	OnBehalfOfUser string

	// DisableRateLimit skips the rate-limiter acquisition for this call.
	DisableRateLimit bool

	// Timeout overrides the client-level per-attempt timeout.
	Timeout time.Duration
}

// requestConfig is the final wire-level description of one call, assembled
// once per Request and immutable while the retry loop runs.
type requestConfig struct {
	method  string
	url     string
	header  http.Header
	body    []byte
	timeout time.Duration
}

// endpointFromURL reduces a URL to a host+path label for logs and metrics.
func endpointFromURL(rawurl string) string {
	u, err := url.Parse(rawurl)
	if err != nil || u.Host == "" {
		return "unknown"
	}

	var builder strings.Builder
	builder.WriteString(u.Host)
	if u.Path != "" && u.Path != "/" {
		builder.WriteString(u.Path)
	} else {
		builder.WriteByte('/')
	}
	return builder.String()
}
