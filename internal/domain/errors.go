package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound is returned when a job ID is unknown to the store.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidRequest is returned when a scrape request names unknown platforms or hotels.
	ErrInvalidRequest = errors.New("invalid scrape request")

	// ErrNoReports is returned when consolidation finds nothing to merge.
	ErrNoReports = errors.New("no platform reports available")

	// ErrUnauthorized is returned when the API key is missing.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the API key does not match.
	ErrForbidden = errors.New("forbidden")
)

// TransportError is a network, timeout, status or decompression failure in the request layer.
// Retryable errors are retried inside a cascade tier before the tier gives up.
type TransportError struct {
	Op        string
	Retryable bool
	Err       error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError means a response did not match the expected shape.
// The cascade moves to the next tier without retrying.
type ParseError struct {
	Strategy string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Strategy, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigurationError marks a platform sweep that cannot run because of its configuration.
type ConfigurationError struct {
	Platform Platform
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error for %s: %s", e.Platform, e.Reason)
}

// IsRetryable reports whether err is a retryable TransportError.
func IsRetryable(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Retryable
}
