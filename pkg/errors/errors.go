// Package errors provides the typed errors used across factsync.
// Every pipeline stage returns one of these so the driver can decide
// whether a failure is local to a record or fatal for the run.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is, As and Join are re-exported so callers need a single errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Common sentinel errors.
var (
	// ErrNotFound indicates that a lookup had no entry. Lookups never default.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformed indicates a source value that could not be parsed.
	ErrMalformed = errors.New("malformed value")

	// ErrUnauthorized indicates the knowledge base rejected our credentials.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates that a remote rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrUnavailable indicates a remote service is temporarily unavailable
	ErrUnavailable = errors.New("service unavailable")

	// ErrMutationCap indicates the per-run mutation cap was reached.
	ErrMutationCap = errors.New("mutation cap reached")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError is returned when a lookup table or the knowledge base
// has no entry for a key.
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ParseError reports a source value that could not be turned into a
// typed quantity, decay code or row. It aborts only the record it belongs to.
type ParseError struct {
	Kind    string // "value", "uncertainty", "spin", "csv", ...
	Input   string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse error (%s) at line %d: %s", e.Kind, e.Line, e.Message)
	}
	if e.Input != "" {
		return fmt.Sprintf("parse error (%s) in %q: %s", e.Kind, e.Input, e.Message)
	}
	return fmt.Sprintf("parse error (%s): %s", e.Kind, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// NewParseError creates a new ParseError
func NewParseError(kind, input, message string) *ParseError {
	return &ParseError{Kind: kind, Input: input, Message: message}
}

// APIError represents an error from a remote API (knowledge base, SPARQL
// endpoint or tabular data source).
type APIError struct {
	Service    string
	StatusCode int
	Code       string // API-level error code, e.g. "badtoken"
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	switch {
	case e.Code != "":
		return fmt.Sprintf("API error from %s (%s): %s", e.Service, e.Code, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("API error from %s (status %d): %s", e.Service, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("API error from %s: %s", e.Service, e.Message)
	}
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == 429 || e.Code == "ratelimited" || e.Code == "maxlag":
		return target == ErrRateLimited
	case e.StatusCode == 401 || e.StatusCode == 403 || e.Code == "badtoken" || e.Code == "notloggedin":
		return target == ErrUnauthorized
	case e.StatusCode >= 500:
		return target == ErrUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// MutationError is a failed knowledge-base write. Entity and Fact form
// the natural key the driver logs before moving to the next record.
type MutationError struct {
	Operation string // "create_claim", "attach_source", ...
	Entity    string
	Fact      string
	Err       error
}

// Error implements the error interface
func (e *MutationError) Error() string {
	if e.Fact != "" {
		return fmt.Sprintf("%s failed for %s (%s): %v", e.Operation, e.Entity, e.Fact, e.Err)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.Entity, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError creates a new MutationError
func NewMutationError(operation, entity, fact string, err error) *MutationError {
	return &MutationError{
		Operation: operation,
		Entity:    entity,
		Fact:      fact,
		Err:       err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsMalformed checks if an error is a parse error
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsUnauthorized checks if an error is an authentication failure
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(kind, input string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Kind: kind, Input: input, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError
func WrapAPI(service string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Service:    service,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}

// WrapMutation wraps an error as a MutationError
func WrapMutation(operation, entity, fact string, err error) error {
	if err == nil {
		return nil
	}
	return NewMutationError(operation, entity, fact, err)
}
