package fetcher

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError.
	ErrTransport = errors.New("transport error")

	// ErrParse matches every *ParseError.
	ErrParse = errors.New("parse error")

	// ErrUnexpectedStatus is wrapped by a TransportError for non-2xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrBodyTooLarge is wrapped by a TransportError when a response body
	// exceeds the configured maximum size.
	ErrBodyTooLarge = errors.New("response body too large")

	// ErrMissingField is wrapped by a ParseError when a required element or attribute is absent.
	ErrMissingField = errors.New("required field missing")

	// ErrInvalidProxyAddress is returned for a proxy address that is not host:port
	// or a socks5:// URL.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port or socks5://host:port")
)

// TransportError reports a request that could not be completed or that
// returned a non-success status.
type TransportError struct {
	// URL is the requested URL.
	URL string

	// StatusCode is the HTTP status, or zero if no response was received.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) true for every TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ParseError reports markup that does not contain a well-formed listing.
type ParseError struct {
	// Page is the 1-based page index.
	Page int

	// Entry is the 0-based listing index on the page, or -1 for document-level failures.
	Entry int

	// Field names the missing or malformed field.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Entry < 0 {
		return fmt.Sprintf("page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("page %d entry %d: %s: %v", e.Page, e.Entry, e.Field, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrParse) true for every ParseError.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
