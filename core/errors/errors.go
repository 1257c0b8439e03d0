// Package errors provides standardized error types and helpers for the
// bookforge codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid input or validation failure
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupported indicates an unsupported operation or format
	ErrUnsupported = errors.New("unsupported")

	// ErrNoTextEntry indicates an archive contained no usable text entry
	ErrNoTextEntry = errors.New("no text entry in archive")
	// ErrEmptyText indicates the decoded text was empty or whitespace-only
	ErrEmptyText = errors.New("decoded text is empty")
	// ErrCorpusTooSmall indicates the text has too few lines to partition
	ErrCorpusTooSmall = errors.New("corpus too small to partition")
)

// Recoverable reports whether a per-book error should be logged and skipped
// rather than aborting the batch. Unreadable archives, missing text entries,
// empty texts and tiny corpora all preserve any prior valid output.
func Recoverable(err error) bool {
	return errors.Is(err, ErrNoTextEntry) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrCorpusTooSmall) ||
		errors.Is(err, ErrUnsupported)
}

// BookError wraps a failure while processing one book with its identity.
type BookError struct {
	BookID string // Book identifier derived from the archive name
	Stage  string // Pipeline stage (e.g., "extract", "decode", "parse", "write")
	Err    error  // Underlying error
}

func (e *BookError) Error() string {
	if e.Stage != "" {
		return fmt.Sprintf("book %s: %s: %v", e.BookID, e.Stage, e.Err)
	}
	return fmt.Sprintf("book %s: %v", e.BookID, e.Err)
}

func (e *BookError) Unwrap() error {
	return e.Err
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError represents a parsing or deserialization error
type ParseError struct {
	Format  string // Format being parsed (e.g., "JSON", "index", "text")
	Path    string // File path, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// UnsupportedError represents an unsupported feature or format
type UnsupportedError struct {
	Feature string // Feature or format that is unsupported
	Reason  string // Why it's not supported
	Err     error  // Underlying error, if any
}

func (e *UnsupportedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported %s: %s", e.Feature, e.Reason)
	}
	return fmt.Sprintf("unsupported %s", e.Feature)
}

func (e *UnsupportedError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnsupported
}

// Helper functions for creating common errors

// NewBook creates a BookError
func NewBook(bookID, stage string, err error) *BookError {
	return &BookError{BookID: bookID, Stage: stage, Err: err}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse creates a ParseError
func NewParse(format, path, message string) *ParseError {
	return &ParseError{Format: format, Path: path, Message: message}
}

// NewUnsupported creates an UnsupportedError
func NewUnsupported(feature, reason string) *UnsupportedError {
	return &UnsupportedError{Feature: feature, Reason: reason}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}
