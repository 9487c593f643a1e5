package services

import "fmt"

// Relay failures. Each type maps to exactly one HTTP status in the handlers.

type ValidationError struct {
	Message string
	Detail  string
}

func (e *ValidationError) Error() string { return e.Message + ": " + e.Detail }

type ConfigError struct {
	Message string
	Detail  string
}

func (e *ConfigError) Error() string { return e.Message + ": " + e.Detail }

// UpstreamError is a non-2xx answer from the completion API.
type UpstreamError struct {
	StatusCode int
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

// UnreachableError means the request was sent but no response came back.
type UnreachableError struct{ Err error }

func (e *UnreachableError) Error() string { return "no response from upstream: " + e.Err.Error() }

func (e *UnreachableError) Unwrap() error { return e.Err }

type InternalError struct{ Err error }

func (e *InternalError) Error() string { return e.Err.Error() }

func (e *InternalError) Unwrap() error { return e.Err }
