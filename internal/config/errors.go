package config

import (
	"errors"
	"fmt"
)

// Configuration validation errors.
// They are returned wrapped in a *ConfigError by Config.Validate and by the
// crawler when it is given invalid crawl options, so callers can match them
// with errors.Is and still recover the offending field with errors.As.
var (
	// ErrEmptyKeyword is returned when a search keyword is empty or blank.
	ErrEmptyKeyword = errors.New("keyword must not be empty")

	// ErrNoKeyword is returned when no keyword was given on the command line.
	ErrNoKeyword = errors.New("no keyword specified")

	// ErrInvalidLimit is returned when a limit is zero or negative.
	// Leave the limit unset to crawl until the results end.
	ErrInvalidLimit = errors.New("limit must be a positive integer")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("timeout must be positive")

	// ErrInvalidDelay is returned when the pacing delay range is negative or inverted.
	ErrInvalidDelay = errors.New("delay range must satisfy 0 <= min <= max")

	// ErrInvalidPageSize is returned when the full-page size is not positive.
	ErrInvalidPageSize = errors.New("page size must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("batch size must be positive")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("format must be one of csv, json, markdown")

	// ErrNoOutput is returned when no output file is given.
	ErrNoOutput = errors.New("no output file specified")

	// ErrInvalidLocale is returned when the locale is empty or contains a path separator.
	ErrInvalidLocale = errors.New("locale must be a single path segment such as \"fr\" or \"en\"")

	// ErrInvalidBaseURL is returned when the base URL is not an absolute http(s) URL.
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http or https URL")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("max body size must be non-negative")
)

// ConfigError reports an invalid configuration value.
// Field names the option at fault, Err is one of the sentinel errors above.
type ConfigError struct {
	Field string
	Err   error
}

// NewConfigError creates a ConfigError for field.
func NewConfigError(field string, err error) *ConfigError {
	return &ConfigError{Field: field, Err: err}
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying sentinel error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ValidateLimit checks a crawl limit. Zero and negative values are rejected;
// "no limit" is expressed by not passing a limit at all.
func ValidateLimit(limit int) error {
	if limit <= 0 {
		return NewConfigError("limit", ErrInvalidLimit)
	}
	return nil
}
