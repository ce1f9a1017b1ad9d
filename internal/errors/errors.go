// Package errors provides a lightweight structured error type (SidekickError)
// for category-based classification in hook handlers and the CLI.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of a sidekick error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Shared-state coordination errors
	CategoryState ErrorCategory = "state"

	// Hook protocol and session errors
	CategoryHook    ErrorCategory = "hook"
	CategorySession ErrorCategory = "session"

	// External tool integration errors
	CategoryGit   ErrorCategory = "git"
	CategorySkill ErrorCategory = "skill"

	// Runtime and infrastructure errors
	CategorySchedule   ErrorCategory = "schedule"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryInternal   ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// SidekickError is a structured error with category, retryability, and context
type SidekickError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for SidekickError
type ContextFields map[string]any

// Error implements the error interface
func (e *SidekickError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *SidekickError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *SidekickError) WithContext(key string, value any) *SidekickError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// WithCause attaches an underlying cause
func (e *SidekickError) WithCause(err error) *SidekickError {
	e.Cause = err
	return e
}

// New creates a new SidekickError
func New(category ErrorCategory, severity ErrorSeverity, message string) *SidekickError {
	return &SidekickError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new SidekickError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *SidekickError {
	return &SidekickError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable wraps an error and marks it as retryable
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *SidekickError {
	e := Wrap(err, category, severity, message)
	e.Retryable = true
	return e
}

// IsRetryable reports whether err is a retryable SidekickError.
func IsRetryable(err error) bool {
	if se, ok := err.(*SidekickError); ok {
		return se.Retryable
	}
	return false
}

// IsCategory reports whether err is a SidekickError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	if se, ok := err.(*SidekickError); ok {
		return se.Category == category
	}
	return false
}
