package transport

import "net/http"

// Method is the HTTP verb used for a call
type Method string

const (
	MethodGet  Method = http.MethodGet
	MethodPost Method = http.MethodPost
)

const (
	// HeaderRequestID carries the per-call correlation ID
	HeaderRequestID = "X-Request-Id"
	headerAuth      = "Authorization"
	headerUserAgent = "User-Agent"
	headerCType     = "Content-Type"
	headerAccept    = "Accept"
	contentTypeJSON = "application/json"
)

// Response is the raw outcome of a call. The body is always fully read so the
// connection can be reused regardless of status.
type Response struct {
	// StatusCode is the HTTP status returned by the server
	StatusCode int

	// Body is the unparsed response body
	Body []byte

	// RequestID is the value sent in the X-Request-Id header
	RequestID string
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
