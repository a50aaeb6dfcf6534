package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common error values for the Open Labs client
var (
	// Session errors
	ErrNoRefreshToken     = errors.New("no refresh token available")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrAllFieldsRequired  = errors.New("All fields are required")
	ErrMalformedSession   = errors.New("malformed session state")
	ErrInsufficientPoints = errors.New("insufficient points balance")
	ErrNotAllowed         = errors.New("submission not allowed")

	// Content errors
	ErrNoMarkdownAsset = errors.New("no markdown asset")
	ErrNotFound        = errors.New("not found")
	ErrSuperseded      = errors.New("superseded by a newer load")

	// Directory errors
	ErrAlreadyExists = errors.New("already exists")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
)

// Kind classifies a failed remote call.
type Kind int

const (
	// KindTransport is a failure before any HTTP response was received.
	KindTransport Kind = iota
	// KindHTTP is a non-2xx response that is not an authentication failure.
	KindHTTP
	// KindAuthExpired is a 401/403 response: the session must be re-established.
	KindAuthExpired
	// KindDecode is a 2xx response whose body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindHTTP:
		return "http"
	case KindAuthExpired:
		return "auth_expired"
	case KindDecode:
		return "decode"
	}
	return "unknown"
}

// Retryable reports whether repeating the same call may succeed.
func (k Kind) Retryable() bool {
	return k == KindTransport
}

// APIError is the single error type returned for failed calls to the remote services.
// Message is human readable: the server's message field when present, otherwise
// a truncated excerpt of the body or the HTTP status text.
type APIError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// KindForStatus maps an HTTP status code to an error kind.
func KindForStatus(status int) Kind {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return KindAuthExpired
	}
	return KindHTTP
}

// IsAuthExpired reports whether err means the credentials are no longer accepted.
// Structured APIErrors are classified by kind. Any other error falls back to
// matching "401", "403" or "Unauthorized" in its message.
func IsAuthExpired(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindAuthExpired
	}
	msg := err.Error()
	return strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "Unauthorized")
}

// IsRetryable reports whether err is a transport failure worth retrying.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind.Retryable()
	}
	return false
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
