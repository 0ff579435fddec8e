package xiangxin

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrAPIKeyRequired  = errors.New("API key is required")
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// Error kinds. Use errors.Is against these to branch on the kind of failure.
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrNetwork        = errors.New("network error")
)

// ErrorKind discriminates the failures the client can return.
type ErrorKind int

const (
	// KindClient is any terminal failure that is not one of the more specific kinds: an unexpected
	// HTTP status, an exhausted timeout, a response that could not be decoded, or a local failure
	// while preparing the request.
	KindClient ErrorKind = iota
	// KindValidation means the caller's input was rejected, either locally or by the server (422).
	KindValidation
	// KindAuthentication means the server rejected the API key (401).
	KindAuthentication
	// KindRateLimit means the server kept answering 429 until retries ran out.
	KindRateLimit
	// KindNetwork means the server could not be reached until retries ran out.
	KindNetwork
)

// String returns the string representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindRateLimit:
		return "rate_limit"
	case KindNetwork:
		return "network"
	}
	return "client"
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAuthentication:
		return ErrAuthentication
	case KindRateLimit:
		return ErrRateLimit
	case KindNetwork:
		return ErrNetwork
	}
	return nil
}

// Error is returned by every Client operation that fails.
//
// Because Error implements Is, you can check the kind directly:
//
//	if errors.Is(err, xiangxin.ErrRateLimit) {
//		// back off at the application level
//	}
//
// Or extract it for the status code and message:
//
//	var apiErr *xiangxin.Error
//	if errors.As(err, &apiErr) {
//		log.Printf("guardrails call failed (%s, status %d): %s", apiErr.Kind, apiErr.StatusCode, apiErr.Message)
//	}
type Error struct {
	// Kind is the category of the failure.
	Kind ErrorKind
	// StatusCode is the HTTP status that caused the failure, or 0 if no response was received.
	StatusCode int
	// Message is a human readable description. For server errors it contains the detail sent by
	// the server when there was one.
	Message string
	// Err is the underlying cause, if any.
	Err error

	timeout bool
}

// Error returns a string representation of the error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// Timeout reports whether the request failed because every attempt timed out.
func (e *Error) Timeout() bool {
	return e.timeout
}

// GRPCStatus lets services built on gRPC return the error as-is; status.FromError and
// status.Code will report a code matching the kind.
func (e *Error) GRPCStatus() *status.Status {
	var code codes.Code
	switch {
	case e.Kind == KindValidation:
		code = codes.InvalidArgument
	case e.Kind == KindAuthentication:
		code = codes.Unauthenticated
	case e.Kind == KindRateLimit:
		code = codes.ResourceExhausted
	case e.Kind == KindNetwork:
		code = codes.Unavailable
	case e.timeout:
		code = codes.DeadlineExceeded
	case e.StatusCode >= http.StatusInternalServerError:
		code = codes.Internal
	default:
		code = codes.Unknown
	}
	return status.New(code, e.Error())
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func clientError(msg string, err error) *Error {
	return &Error{Kind: KindClient, Message: msg, Err: err}
}
