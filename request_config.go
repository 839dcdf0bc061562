package companycam

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// UserContextHeader attributes a request to another user (impersonation).
const UserContextHeader = "X-CompanyCam-User"

var knownMethods = map[string]struct{}{
	http.MethodGet: {}, http.MethodHead: {}, http.MethodPost: {},
	http.MethodPut: {}, http.MethodPatch: {}, http.MethodDelete: {},
	http.MethodConnect: {}, http.MethodOptions: {}, http.MethodTrace: {},
}

// buildRequestConfig merges client defaults, per-call options and derived
// headers into the final wire-level request description.
func (c *Client) buildRequestConfig(opts RequestOptions) (*requestConfig, error) {
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if _, ok := knownMethods[method]; !ok && c.logger != nil {
		// Unknown methods qualify for retries by default; surface that.
		c.logger.Warn("unrecognized HTTP method, treating as retryable", "method", opts.Method)
	}

	rawurl, err := c.resolveURL(opts.URL)
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("companycam: invalid url %q: %w", rawurl, err)
	}
	if cleaned := cleanQuery(opts.Query); cleaned != nil {
		query := u.Query()
		for key, vals := range cleaned {
			for _, v := range vals {
				query.Add(key, v)
			}
		}
		u.RawQuery = query.Encode()
	}

	token := c.authToken
	if opts.AuthToken != "" {
		token = opts.AuthToken
	}
	header := mergeHeaders(c.defaultHeaders, opts.Headers)
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	if opts.IdempotencyKey != "" {
		header.Set("Idempotency-Key", opts.IdempotencyKey)
	}
	if opts.OnBehalfOfUser != "" {
		header.Set(UserContextHeader, opts.OnBehalfOfUser)
	}

	body, err := encodeBody(opts.Body, header)
	if err != nil {
		return nil, err
	}

	timeout := c.timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	return &requestConfig{
		method:  method,
		url:     u.String(),
		header:  header,
		body:    body,
		timeout: timeout,
	}, nil
}

func (c *Client) resolveURL(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("companycam: request url is required")
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw, nil
	}
	if c.baseURL == "" {
		return "", fmt.Errorf("companycam: relative url %q without a base address", raw)
	}
	return strings.TrimSuffix(c.baseURL, "/") + "/" + strings.TrimPrefix(raw, "/"), nil
}

// mergeHeaders layers per-call overrides over client defaults, later wins.
// Multi-valued override entries are joined with ", "; empty values dropped.
func mergeHeaders(defaults map[string]string, overrides http.Header) http.Header {
	header := make(http.Header, len(defaults)+len(overrides))
	for key, value := range defaults {
		if value != "" {
			header.Set(key, value)
		}
	}
	for key, values := range overrides {
		kept := make([]string, 0, len(values))
		for _, v := range values {
			if v != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) == 0 {
			continue
		}
		header.Set(key, strings.Join(kept, ", "))
	}
	return header
}

// cleanQuery drops nil-valued parameters and stringifies the rest. A result
// with nothing left is nil, so no empty query string is ever transmitted.
func cleanQuery(params map[string]any) url.Values {
	if len(params) == 0 {
		return nil
	}
	values := url.Values{}
	for key, value := range params {
		switch v := value.(type) {
		case nil:
			continue
		case string:
			values.Set(key, v)
		case []string:
			for _, s := range v {
				values.Add(key, s)
			}
		case fmt.Stringer:
			values.Set(key, v.String())
		default:
			values.Set(key, fmt.Sprint(v))
		}
	}
	if len(values) == 0 {
		return nil
	}
	return values
}

// encodeBody buffers the payload so the retry loop can replay it. Non-reader,
// non-string payloads are JSON-encoded with Content-Type set unless the caller
// already chose one.
func encodeBody(body any, header http.Header) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return nil, fmt.Errorf("companycam: reading request body: %w", err)
		}
		return data, nil
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("companycam: encoding request body: %w", err)
		}
		if header.Get("Content-Type") == "" {
			header.Set("Content-Type", "application/json")
		}
		return data, nil
	}
}

// EncodePathParam percent-encodes an identifier for use as a single path
// segment: every byte outside the RFC 3986 unreserved set is escaped,
// including '/', '@' and space, so identifiers containing them round-trip as
// one segment. url.PathUnescape restores the original string.
func EncodePathParam(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			builder.WriteByte(c)
			continue
		}
		builder.WriteString(fmt.Sprintf("%%%02X", c))
	}
	return builder.String()
}

func isUnreserved(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.' || c == '~'
}
