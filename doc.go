// Package companycam provides the HTTP transport core for the CompanyCam API
// client: a token-bucket rate limiter with FIFO admission, retries with
// exponential backoff + Retry-After awareness, request configuration merging
// (auth, idempotency keys, user impersonation) and a single normalized error
// shape for failed calls.
//
// Design goals:
//   - Small surface area – functional options configure everything
//   - Backpressure expressed as queuing delay, never as a hard "rate limited" failure
//   - Safe concurrent use of a single *Client instance
//   - Extensibility via pluggable retry policy, logger and metrics collector
//
// Typical usage:
//
//	client := companycam.New(
//	    companycam.WithBaseURL("https://api.companycam.com/v2"),
//	    companycam.WithAuthToken(token),
//	    companycam.WithRetries(3),
//	)
//	defer client.Dispose()
//
//	resp, err := client.Get(ctx, "/projects")
//
// Every caller-initiated request takes exactly one rate-limiter token before
// dispatch; wire-level retries of that request never take another. Failed
// requests surface as *APIError carrying status, code, problem payload and
// request id; rate-limiter cancellation and disposal propagate unwrapped as
// control-flow signals distinct from API failures.
package companycam
