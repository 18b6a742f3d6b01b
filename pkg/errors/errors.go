package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents rejected input such as a malformed username
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConflict represents an attempt to create something that already exists
	ErrorTypeConflict ErrorType = "conflict"
	// ErrorTypeNotFound represents a reference to an absent user
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeCommandLog represents command-log parse and replay errors
	ErrorTypeCommandLog ErrorType = "command_log"
	// ErrorTypeStore represents graph database errors
	ErrorTypeStore ErrorType = "store"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// Kind returns the error category
func (e *BaseError) Kind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// User Errors

// ErrInvalidUsername is returned when a username is blank, contains characters
// outside [A-Za-z0-9_'], or names both sides of a friendship
type ErrInvalidUsername struct {
	*BaseError
	Username string
	Reason   string
}

func NewInvalidUsername(username, reason string) *ErrInvalidUsername {
	return &ErrInvalidUsername{
		BaseError: NewBaseError(ErrorTypeValidation, fmt.Sprintf("invalid username %q: %s", username, reason), nil),
		Username:  username,
		Reason:    reason,
	}
}

// ErrUserAlreadyExists is returned when adding a username that is already present
type ErrUserAlreadyExists struct {
	*BaseError
	Username string
}

func NewUserAlreadyExists(username string) *ErrUserAlreadyExists {
	return &ErrUserAlreadyExists{
		BaseError: NewBaseError(ErrorTypeConflict, fmt.Sprintf("user '%s' already exists", username), nil),
		Username:  username,
	}
}

// ErrUserNotFound is returned when a username does not resolve to a user
type ErrUserNotFound struct {
	*BaseError
	Username string
}

func NewUserNotFound(username string) *ErrUserNotFound {
	return &ErrUserNotFound{
		BaseError: NewBaseError(ErrorTypeNotFound, fmt.Sprintf("user '%s' does not exist", username), nil),
		Username:  username,
	}
}

// Command Log Errors

// ErrMalformedCommand is returned when a command-log line does not match the grammar
type ErrMalformedCommand struct {
	*BaseError
	Text   string
	Reason string
}

func NewMalformedCommand(text, reason string) *ErrMalformedCommand {
	return &ErrMalformedCommand{
		BaseError: NewBaseError(ErrorTypeCommandLog, fmt.Sprintf("malformed command %q: %s", text, reason), nil),
		Text:      text,
		Reason:    reason,
	}
}

// ErrReplayFailed is returned when replay stops at a line. Lines before it stay applied.
type ErrReplayFailed struct {
	*BaseError
	Line int
	Text string
}

func NewReplayFailed(line int, text string, err error) *ErrReplayFailed {
	return &ErrReplayFailed{
		BaseError: NewBaseError(ErrorTypeCommandLog, fmt.Sprintf("replay failed at line %d (%q)", line, text), err),
		Line:      line,
		Text:      text,
	}
}

// Store Errors

// ErrStoreConnectionFailed is returned when the Neo4j connection fails
type ErrStoreConnectionFailed struct {
	*BaseError
	URI string
}

func NewStoreConnectionFailed(uri string, err error) *ErrStoreConnectionFailed {
	return &ErrStoreConnectionFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// ErrStoreQueryFailed is returned when a Neo4j query fails
type ErrStoreQueryFailed struct {
	*BaseError
	Operation string
}

func NewStoreQueryFailed(operation string, err error) *ErrStoreQueryFailed {
	return &ErrStoreQueryFailed{
		BaseError: NewBaseError(ErrorTypeStore, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

type kinded interface {
	Kind() ErrorType
}

// TypeOf returns the category of the first typed error in err's chain
func TypeOf(err error) (ErrorType, bool) {
	for err != nil {
		if k, ok := err.(kinded); ok {
			return k.Kind(), true
		}
		err = stderrors.Unwrap(err)
	}
	return "", false
}

// IsErrorType checks if an error, or any error it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if k, ok := err.(kinded); ok && k.Kind() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsInvalidUsername reports whether err wraps an ErrInvalidUsername
func IsInvalidUsername(err error) bool {
	var target *ErrInvalidUsername
	return stderrors.As(err, &target)
}

// IsUserAlreadyExists reports whether err wraps an ErrUserAlreadyExists
func IsUserAlreadyExists(err error) bool {
	var target *ErrUserAlreadyExists
	return stderrors.As(err, &target)
}

// IsUserNotFound reports whether err wraps an ErrUserNotFound
func IsUserNotFound(err error) bool {
	var target *ErrUserNotFound
	return stderrors.As(err, &target)
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Only the graph database can fail transiently
	return IsErrorType(err, ErrorTypeStore)
}
