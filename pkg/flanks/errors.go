package flanks

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failure observed by the client.
type ErrorKind int

// Error kinds. The set is closed: every error returned by the transport carries
// exactly one of these.
const (
	KindConfig ErrorKind = iota + 1
	KindAuth
	KindValidation
	KindNotFound
	KindServer
	KindNetwork
)

// String returns the lower-case name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a classified failure from the Flanks API or the transport underneath it.
//
// StatusCode and ResponseBody are set for Auth, Validation, NotFound and Server errors
// that originate from an HTTP response. ResponseBody holds the decoded JSON body, or
// nil when the body was empty or not JSON. Cause is set for Network errors.
type Error struct {
	Kind         ErrorKind
	Message      string
	StatusCode   int
	ResponseBody interface{}
	Cause        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String() + " error"
	}

	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("flanks: %s (status: %d)", msg, e.StatusCode)
	case e.Cause != nil && e.Cause.Error() != msg:
		return fmt.Sprintf("flanks: %s: %v", msg, e.Cause)
	default:
		return "flanks: " + msg
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error of the same kind. This lets callers write
// errors.Is(err, flanks.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Kind sentinels for use with errors.Is.
var (
	ErrConfig     = &Error{Kind: KindConfig}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrValidation = &Error{Kind: KindValidation}
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrServer     = &Error{Kind: KindServer}
	ErrNetwork    = &Error{Kind: KindNetwork}
)

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired       = errors.New("config is required")
	ErrMissingCredentials   = errors.New("missing credentials: provide ClientID and ClientSecret or set FLANKS_CLIENT_ID and FLANKS_CLIENT_SECRET")
	ErrInvalidBaseURL       = errors.New("invalid base URL")
	ErrInvalidVersion       = errors.New("invalid API version, expected YYYY-MM-DD")
	ErrInvalidRetryPolicy   = errors.New("invalid retry policy")
	ErrClientClosed         = errors.New("client is closed")
	ErrNoMoreItems          = errors.New("no more items")
	ErrUnexpectedResponse   = errors.New("unexpected response shape")
	ErrMalformedToken       = errors.New("malformed token response")
	ErrCacheDisabled        = errors.New("cache disabled")
	ErrCacheKeyNotFound     = errors.New("key not found")
	ErrCacheEntryExpired    = errors.New("entry expired")
	ErrCacheValueTooLarge   = errors.New("cache value too large")
	ErrUnsupportedCacheType = errors.New("unsupported cache type")
	ErrNATSConfigRequired   = errors.New("NATS configuration required for NATS cache")
)

// NewConfigError wraps cause as a Config error.
func NewConfigError(message string, cause error) *Error {
	return &Error{Kind: KindConfig, Message: message, Cause: cause}
}

// NewNetworkError wraps a transport-level failure.
func NewNetworkError(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "request failed", Cause: cause}
}

// NewClosedError reports a call issued after the client was closed.
func NewClosedError() *Error {
	return &Error{Kind: KindConfig, Message: "request not sent", Cause: ErrClientClosed}
}

// ErrorFromResponse classifies a non-2xx HTTP response. It returns nil for 2xx.
//
// 401 and 403 map to Auth, 400 to Validation, 404 to NotFound, 429 and >=500 to
// Server. Any other 4xx maps to Validation; anything else non-2xx maps to Server.
func ErrorFromResponse(statusCode int, body []byte) *Error {
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return nil
	}

	apiErr := &Error{
		StatusCode:   statusCode,
		ResponseBody: DecodeBody(body),
	}

	switch {
	case statusCode == http.StatusUnauthorized:
		apiErr.Kind = KindAuth
		apiErr.Message = "invalid or expired token"
	case statusCode == http.StatusForbidden:
		apiErr.Kind = KindAuth
		apiErr.Message = "access denied"
	case statusCode == http.StatusBadRequest:
		apiErr.Kind = KindValidation
		apiErr.Message = "validation error"
	case statusCode == http.StatusNotFound:
		apiErr.Kind = KindNotFound
		apiErr.Message = "resource not found"
	case statusCode == http.StatusTooManyRequests:
		apiErr.Kind = KindServer
		apiErr.Message = "rate limited"
	case statusCode >= http.StatusInternalServerError:
		apiErr.Kind = KindServer
		apiErr.Message = "server error"
	case statusCode >= http.StatusBadRequest:
		apiErr.Kind = KindValidation
		apiErr.Message = "request rejected"
	default:
		apiErr.Kind = KindServer
		apiErr.Message = "unexpected status"
	}

	return apiErr
}

// DecodeBody decodes a response body as JSON. It returns nil when the body is empty
// or not valid JSON.
func DecodeBody(body []byte) interface{} {
	if len(body) == 0 {
		return nil
	}

	var value interface{}

	err := json.Unmarshal(body, &value)
	if err != nil {
		return nil
	}

	return value
}

// AsError extracts the classified error from err's chain.
func AsError(err error) (*Error, bool) {
	apiErr := &Error{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}

// KindOf returns the kind of the classified error in err's chain, or 0.
func KindOf(err error) ErrorKind {
	apiErr, ok := AsError(err)
	if !ok {
		return 0
	}

	return apiErr.Kind
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	apiErr, ok := AsError(err)
	if !ok {
		return 0
	}

	return apiErr.StatusCode
}

// IsConfig checks if the error is a configuration error.
func IsConfig(err error) bool {
	return KindOf(err) == KindConfig
}

// IsAuth checks if the error is an authentication error.
func IsAuth(err error) bool {
	return KindOf(err) == KindAuth
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return KindOf(err) == KindValidation
}

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsServer checks if the error is a server error.
func IsServer(err error) bool {
	return KindOf(err) == KindServer
}

// IsNetwork checks if the error is a network error.
func IsNetwork(err error) bool {
	return KindOf(err) == KindNetwork
}

// IsRetryable reports whether the caller may reasonably retry later.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindServer, KindNetwork:
		return true
	default:
		return false
	}
}
