// Package errors provides custom error types for the bookingsync system.
// These errors enable programmatic error checking across the reconciliation
// pipeline and let callers tell row-level failures apart from run-level ones.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Common sentinel errors for the bookingsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrMalformedRow indicates that an import row lacks its identity fields
	ErrMalformedRow = errors.New("malformed row")

	// ErrAmbiguousMatch indicates that a scoped lookup returned more than one booking
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrPersistence indicates that a storage operation failed
	ErrPersistence = errors.New("persistence failure")

	// ErrLocked indicates that a booking is locked against automatic changes
	ErrLocked = errors.New("locked by user")

	// ErrSerialization indicates that a value could not be encoded
	ErrSerialization = errors.New("serialization failure")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
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

// ValidationError represents a validation failure
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

// MalformedRowError is returned by the normalizer when a row cannot be
// turned into booking data.
type MalformedRowError struct {
	Row     int
	Field   string
	Message string
}

// Error implements the error interface
func (e *MalformedRowError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("row %d is malformed (%s): %s", e.Row, e.Field, e.Message)
	}
	return fmt.Sprintf("row %d is malformed: %s", e.Row, e.Message)
}

// Is implements errors.Is support
func (e *MalformedRowError) Is(target error) bool {
	return target == ErrMalformedRow || target == ErrInvalidInput
}

// NewMalformedRowError creates a new MalformedRowError
func NewMalformedRowError(row int, field, message string) *MalformedRowError {
	return &MalformedRowError{Row: row, Field: field, Message: message}
}

// AmbiguousMatchError reports more than one booking under a single scoped identity.
type AmbiguousMatchError struct {
	Property string
	Source   string
	Code     string
	Count    int
}

// Error implements the error interface
func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("%d bookings match property=%s source=%s code=%s", e.Count, e.Property, e.Source, e.Code)
}

// Is implements errors.Is support
func (e *AmbiguousMatchError) Is(target error) bool {
	return target == ErrAmbiguousMatch
}

// PersistenceError represents a failed storage operation for a single booking.
type PersistenceError struct {
	Operation string // "create", "update", "lookup"
	BookingID uint
	Err       error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	if e.BookingID != 0 {
		return fmt.Sprintf("failed to %s booking %d: %v", e.Operation, e.BookingID, e.Err)
	}
	return fmt.Sprintf("failed to %s booking: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// NewPersistenceError creates a new PersistenceError
func NewPersistenceError(operation string, bookingID uint, err error) *PersistenceError {
	return &PersistenceError{Operation: operation, BookingID: bookingID, Err: err}
}

// LockedError is returned when a write is attempted on a booking that a user locked.
type LockedError struct {
	BookingID uint
}

// Error implements the error interface
func (e *LockedError) Error() string {
	return fmt.Sprintf("booking %d is locked by user", e.BookingID)
}

// Is implements errors.Is support
func (e *LockedError) Is(target error) bool {
	return target == ErrLocked
}

// RowError records why a single import row failed.
type RowError struct {
	Row   int
	Stage string // "normalize", "match", "create", "update"
	Err   error
}

// Error implements the error interface
func (e *RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *RowError) Unwrap() error {
	return e.Err
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

// ParseError represents an error when parsing an uploaded file
type ParseError struct {
	Format  string // "xlsx", "csv"
	File    string
	Line    int
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" && e.Line > 0 {
		return fmt.Sprintf("parse error in %s at %s:%d: %s", e.Format, e.File, e.Line, e.Message)
	}
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
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

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "open", "migrate", "load"
	Resource  string // "store", "config", "reconciler"
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsMalformedRow checks if an error is a malformed row error
func IsMalformedRow(err error) bool {
	return errors.Is(err, ErrMalformedRow)
}

// IsAmbiguousMatch checks if an error is an ambiguous match error
func IsAmbiguousMatch(err error) bool {
	return errors.Is(err, ErrAmbiguousMatch)
}

// IsPersistence checks if an error is a persistence error
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}

// IsLocked checks if an error is a locked booking error
func IsLocked(err error) bool {
	return errors.Is(err, ErrLocked)
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

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapPersistence wraps an error as a PersistenceError
func WrapPersistence(operation string, bookingID uint, err error) error {
	if err == nil {
		return nil
	}
	return NewPersistenceError(operation, bookingID, err)
}
