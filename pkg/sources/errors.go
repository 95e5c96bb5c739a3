package sources

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for source operations
const (
	// ErrCodeTimeout indicates the mirror did not answer within the deadline
	ErrCodeTimeout = "TIMEOUT"
	// ErrCodeTransport indicates a connection or protocol failure
	ErrCodeTransport = "TRANSPORT"
	// ErrCodeHTTPStatus indicates a non-2xx response
	ErrCodeHTTPStatus = "HTTP_STATUS"
	// ErrCodeParse indicates the response body could not be parsed
	ErrCodeParse = "PARSE"
	// ErrCodeCanceled indicates the caller canceled the operation
	ErrCodeCanceled = "CANCELED"
	// ErrCodeNoEndpoints indicates no mirror endpoints are configured
	ErrCodeNoEndpoints = "NO_ENDPOINTS"
)

// SourceError describes a failure against one mirror endpoint
type SourceError struct {
	Code       string // Error code identifying the type of error
	Endpoint   string // Mirror the error occurred against
	StatusCode int    // HTTP status, when Code is ErrCodeHTTPStatus
	Message    string // Human readable error message
	Err        error  // Underlying error if any
}

func (e *SourceError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Code, e.Message)
	if e.Endpoint != "" {
		fmt.Fprintf(&b, " at %s", e.Endpoint)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a SourceError
func NewSourceError(code, endpoint, message string, err error) *SourceError {
	return &SourceError{
		Code:     code,
		Endpoint: endpoint,
		Message:  message,
		Err:      err,
	}
}

// IsSourceError checks if err wraps a SourceError with the given code. Errors that
// join several causes, like UnavailableError, match when any cause does.
func IsSourceError(err error, code string) bool {
	switch e := err.(type) {
	case nil:
		return false
	case *SourceError:
		if e.Code == code {
			return true
		}
		return IsSourceError(e.Err, code)
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			if IsSourceError(inner, code) {
				return true
			}
		}
		return false
	}
	return IsSourceError(errors.Unwrap(err), code)
}

// UnavailableError is returned when every endpoint failed
type UnavailableError struct {
	Attempts []error
}

func (e *UnavailableError) Error() string {
	if len(e.Attempts) == 0 {
		return "all sources unavailable"
	}
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("all sources unavailable (%d attempts): %s", len(e.Attempts), strings.Join(parts, "; "))
}

// Unwrap exposes every attempt to errors.Is and errors.As
func (e *UnavailableError) Unwrap() []error {
	return e.Attempts
}
