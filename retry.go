package xiangxin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/xiangxinai/gosdk/internal/transport"
)

// retryDelay is the wait after a timeout or a network failure.
const retryDelay = 1 * time.Second

// rateLimitDelay returns the wait after a 429 on the given zero-based attempt. It grows without a
// cap: 2s, 3s, 5s, 9s, ...
func rateLimitDelay(attempt int) time.Duration {
	return time.Duration(1<<attempt)*time.Second + time.Second
}

// attemptBackOff is a backoff.BackOff whose next interval is picked by the operation after each
// failed attempt, and which stops once maxRetries retries have been granted.
type attemptBackOff struct {
	maxRetries int
	// attempt is the zero-based index of the attempt in flight
	attempt int
	// next is the interval to hand out on the following NextBackOff call
	next time.Duration
}

func (b *attemptBackOff) Reset() {
	b.attempt = 0
	b.next = 0
}

func (b *attemptBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.maxRetries {
		return backoff.Stop
	}
	b.attempt++
	return b.next
}

// isTimeout reports whether a transport error is a deadline hit by a single attempt.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errorDetail extracts the "detail" field the API puts in error bodies. Non-string details (such
// as lists of field errors) are returned as JSON.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 || string(payload.Detail) == "null" {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	return string(payload.Detail)
}

// classify turns a non-2xx response into an error. The bool reports whether the status may be
// retried.
func classify(resp *transport.Response) (*Error, bool) {
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &Error{Kind: KindAuthentication, StatusCode: resp.StatusCode, Message: "invalid API key"}, false
	case http.StatusUnprocessableEntity:
		msg := errorDetail(resp.Body)
		if msg == "" {
			msg = "request validation failed"
		}
		return &Error{Kind: KindValidation, StatusCode: resp.StatusCode, Message: msg}, false
	case http.StatusTooManyRequests:
		return &Error{Kind: KindRateLimit, StatusCode: resp.StatusCode, Message: "rate limit exceeded"}, true
	}

	detail := errorDetail(resp.Body)
	if detail == "" {
		detail = string(resp.Body)
	}
	return &Error{
		Kind:       KindClient,
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("API request failed with status %d: %s", resp.StatusCode, detail),
	}, false
}

// send performs a call with the client's retry policy and returns the first 2xx response.
//
// 401, 422 and other unexpected statuses fail at once. 429 waits rateLimitDelay(attempt);
// timeouts and network failures wait retryDelay. After maxRetries retries the last error is
// returned.
func (c *Client) send(ctx context.Context, method transport.Method, path string, body any) (*transport.Response, error) {
	b := &attemptBackOff{maxRetries: c.config.maxRetries}
	var resp *transport.Response

	operation := func() error {
		attempt := b.attempt
		c.config.logger.Debug("sending guardrails request", "method", method, "path", path, "attempt", attempt)

		r, err := c.attempt(ctx, method, path, body)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(clientError("request canceled", ctx.Err()))
			}
			b.next = retryDelay
			if isTimeout(err) {
				return &Error{Kind: KindClient, Message: "request timed out", Err: err, timeout: true}
			}
			return &Error{Kind: KindNetwork, Message: "failed to reach the guardrails API", Err: err}
		}

		if r.OK() {
			resp = r
			return nil
		}

		apiErr, retriable := classify(r)
		if !retriable {
			return backoff.Permanent(apiErr)
		}
		b.next = rateLimitDelay(attempt)
		return apiErr
	}

	notify := func(err error, wait time.Duration) {
		c.config.logger.Warn("guardrails request failed, retrying", "path", path, "error", err, "wait", wait)
	}

	var timer backoff.Timer
	if c.config.newTimer != nil {
		timer = c.config.newTimer()
	}

	if err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(b, ctx), notify, timer); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		// The context ended while waiting between attempts.
		return nil, clientError("request canceled", err)
	}
	return resp, nil
}

// attempt makes a single call bounded by the configured timeout.
func (c *Client) attempt(ctx context.Context, method transport.Method, path string, body any) (*transport.Response, error) {
	if c.config.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.timeout)
		defer cancel()
	}
	return c.transport.Do(ctx, method, path, body)
}
