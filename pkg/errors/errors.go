// Package errors provides custom error types for the visitsync system.
// These errors enable better error handling, programmatic error checking,
// and improved debugging throughout the application.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's tree matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's tree that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the visitsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyCorrected indicates a correction was requested for a
	// failure that has already reached a terminal status
	ErrAlreadyCorrected = errors.New("already corrected")

	// ErrCorrectionInFlight indicates another correction attempt currently
	// holds the failure
	ErrCorrectionInFlight = errors.New("correction in flight")

	// ErrRemoteUnavailable indicates a source system is temporarily unavailable
	ErrRemoteUnavailable = errors.New("remote system unavailable")

	// ErrRemoteRejected indicates the target system refused a corrective write
	ErrRemoteRejected = errors.New("remote system rejected write")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrAPIKeyRequired indicates that an API credential is required but not provided
	ErrAPIKeyRequired = errors.New("API key required")

	// ErrUnverifiable indicates a written field cannot be re-read from the
	// target system, so verification is inconclusive rather than failed
	ErrUnverifiable = errors.New("field not verifiable on target system")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// MalformedRecordError indicates a raw record is missing required fields
// and cannot enter matching. Such records are surfaced as ingestion
// failures, never silently dropped.
type MalformedRecordError struct {
	System     string
	ExternalID string
	Missing    []string
}

// Error implements the error interface
func (e *MalformedRecordError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("malformed %s record %s: missing %s", e.System, e.ExternalID, strings.Join(e.Missing, ", "))
	}
	return fmt.Sprintf("malformed %s record %s", e.System, e.ExternalID)
}

// Is implements errors.Is support
func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewMalformedRecordError creates a new MalformedRecordError
func NewMalformedRecordError(system, externalID string, missing ...string) *MalformedRecordError {
	return &MalformedRecordError{System: system, ExternalID: externalID, Missing: missing}
}

// TransientRemoteError represents a retryable failure talking to a source
// or target system (network error, timeout, 5xx).
type TransientRemoteError struct {
	System    string
	Operation string
	Err       error
}

// Error implements the error interface
func (e *TransientRemoteError) Error() string {
	return fmt.Sprintf("transient error during %s against %s: %v", e.Operation, e.System, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *TransientRemoteError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *TransientRemoteError) Is(target error) bool {
	if target == ErrRemoteUnavailable {
		return true
	}
	return target == ErrTimeout && errors.Is(e.Err, ErrTimeout)
}

// NewTransientRemoteError creates a new TransientRemoteError
func NewTransientRemoteError(system, operation string, err error) *TransientRemoteError {
	return &TransientRemoteError{System: system, Operation: operation, Err: err}
}

// RemoteRejectionError represents a corrective write the target system
// refused as invalid. Not retryable without manual intervention.
type RemoteRejectionError struct {
	System     string
	StatusCode int
	Reason     string
}

// Error implements the error interface
func (e *RemoteRejectionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s rejected write (status %d): %s", e.System, e.StatusCode, e.Reason)
	}
	return fmt.Sprintf("%s rejected write: %s", e.System, e.Reason)
}

// Is implements errors.Is support
func (e *RemoteRejectionError) Is(target error) bool {
	return target == ErrRemoteRejected
}

// NewRemoteRejectionError creates a new RemoteRejectionError
func NewRemoteRejectionError(system string, statusCode int, reason string) *RemoteRejectionError {
	return &RemoteRejectionError{System: system, StatusCode: statusCode, Reason: reason}
}

// UnverifiableFieldError reports fields a verification read could not
// check because the target record does not expose them.
type UnverifiableFieldError struct {
	System string
	Fields []string
}

// Error implements the error interface
func (e *UnverifiableFieldError) Error() string {
	return fmt.Sprintf("%s record does not expose %s for verification", e.System, strings.Join(e.Fields, ", "))
}

// Is implements errors.Is support
func (e *UnverifiableFieldError) Is(target error) bool {
	return target == ErrUnverifiable
}

// NewUnverifiableFieldError creates a new UnverifiableFieldError
func NewUnverifiableFieldError(system string, fields ...string) *UnverifiableFieldError {
	return &UnverifiableFieldError{System: system, Fields: fields}
}

// APIError represents an error from a source system API
type APIError struct {
	System     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.System, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.System, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode >= 500 || e.StatusCode == 0 {
		return target == ErrRemoteUnavailable
	}
	if e.StatusCode >= 400 {
		return target == ErrRemoteRejected
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(system string, statusCode int, message string) *APIError {
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ValidationError represents a validation failure on input data
type ValidationError struct {
	Field   string
	Value   interface{}
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
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
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

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", etc.
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s from %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Source:  source,
		Message: message,
		Err:     err,
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

// TimeoutError represents an operation timeout
type TimeoutError struct {
	Operation string
	Duration  string
	Message   string
}

// Error implements the error interface
func (e *TimeoutError) Error() string {
	if e.Duration != "" {
		return fmt.Sprintf("operation %s timed out after %s: %s", e.Operation, e.Duration, e.Message)
	}
	return fmt.Sprintf("operation %s timed out: %s", e.Operation, e.Message)
}

// Is implements errors.Is support
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NewTimeoutError creates a new TimeoutError
func NewTimeoutError(operation, duration, message string) *TimeoutError {
	return &TimeoutError{
		Operation: operation,
		Duration:  duration,
		Message:   message,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsMalformed checks if an error indicates a malformed record
func IsMalformed(err error) bool {
	var m *MalformedRecordError
	return errors.As(err, &m)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsTransient checks if an error is retryable (network, timeout, 5xx)
func IsTransient(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) || errors.Is(err, ErrTimeout)
}

// IsRejection checks if an error is a non-retryable remote rejection
func IsRejection(err error) bool {
	return errors.Is(err, ErrRemoteRejected)
}

// IsUnverifiable checks if an error means verification was inconclusive
func IsUnverifiable(err error) bool {
	return errors.Is(err, ErrUnverifiable)
}

// IsTimeout checks if an error is a timeout error
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Helper wrapping functions for common patterns

// WrapValidation wraps an error as a ValidationError
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(system string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		System:     system,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
