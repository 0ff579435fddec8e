package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// MaxFetchSize is the largest body Fetch will read.
const MaxFetchSize = 20 << 20

var (
	// ErrInvalidBaseURL is returned when the base URL cannot be used to build requests.
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")
	// ErrFetchTooLarge is returned when a fetched body exceeds the size limit.
	ErrFetchTooLarge = errors.New("response body exceeds size limit")
)

// Client sends JSON requests to the guardrails API. It is safe for concurrent use.
type Client struct {
	// endpointBase is the base URL for the API, including any version prefix (e.g. /v1)
	endpointBase *url.URL

	// apiKey is the API key used to authenticate requests
	apiKey string

	// userAgent identifies the SDK to the server
	userAgent string

	// httpc is shared by every call made through this client
	httpc *http.Client

	// maxFetchSize bounds the bytes read by Fetch
	maxFetchSize int64
}

// NewClient validates the base URL and returns a transport bound to it.
func NewClient(baseURL, apiKey, userAgent string, httpc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidBaseURL
	}
	if httpc == nil {
		httpc = &http.Client{}
	}

	return &Client{
		endpointBase: u,
		apiKey:       apiKey,
		userAgent:    userAgent,
		httpc:        httpc,
		maxFetchSize: MaxFetchSize,
	}, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.endpointBase.String()
}

// buildURL joins the base URL and an endpoint path with exactly one slash between them.
func (c *Client) buildURL(path string) string {
	return c.endpointBase.String() + "/" + strings.TrimLeft(path, "/")
}

// Do sends a single request. A nil body sends no payload. Any non-nil error is a
// transport-level failure; HTTP error statuses are reported through Response.
func (c *Client) Do(ctx context.Context, method Method, path string, body any) (*Response, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, string(method), c.buildURL(path), reader)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.Header.Set(headerAuth, "Bearer "+c.apiKey)
	req.Header.Set(headerUserAgent, c.userAgent)
	req.Header.Set(headerAccept, contentTypeJSON)
	req.Header.Set(HeaderRequestID, requestID)
	if body != nil {
		req.Header.Set(headerCType, contentTypeJSON)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &Response{StatusCode: resp.StatusCode, Body: b, RequestID: requestID}, nil
}

// Fetch downloads an arbitrary URL. The API key is never sent to third-party hosts. Bodies larger
// than MaxFetchSize fail with ErrFetchTooLarge.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerUserAgent, c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching %s returned status %d", rawURL, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, c.maxFetchSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > c.maxFetchSize {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrFetchTooLarge, c.maxFetchSize, rawURL)
	}
	return b, nil
}

// CloseIdleConnections releases pooled connections held by the underlying http.Client.
func (c *Client) CloseIdleConnections() {
	c.httpc.CloseIdleConnections()
}
