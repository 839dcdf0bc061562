package companycam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// GetJSON performs a GET request and decodes the response body into out.
// Pass a nil out to discard the body.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	return c.DoJSON(ctx, RequestOptions{Method: http.MethodGet, URL: url}, out)
}

// PostJSON performs a POST request with in as the JSON payload and decodes
// the response body into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	return c.DoJSON(ctx, RequestOptions{Method: http.MethodPost, URL: url, Body: in}, out)
}

// DoJSON executes the request and decodes the JSON response body into out.
// The response body is always fully consumed and closed.
func (c *Client) DoJSON(ctx context.Context, opts RequestOptions, out any) error {
	resp, err := c.Request(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, err := io.Copy(io.Discard, resp.Body)
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("companycam: decoding response body: %w", err)
	}
	return nil
}
