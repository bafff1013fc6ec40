// Package apperror provides the typed error taxonomy used across the
// engine. Errors carry a code, a severity, and an optional cause.
package apperror

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Severity classifies how an error must be surfaced to the operator.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical" // requires manual intervention
)

// AppError implements the error interface and provides structured error
// handling.
type AppError struct {
	Code      Code      `json:"code"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Context   string    `json:"context,omitempty"`
	Venue     string    `json:"venue,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	cause     error
	stack     []uintptr
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s (context: %s)", e.Code, e.Message, e.Context)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface.
func (e *AppError) Unwrap() error {
	return e.cause
}

// Is implements errors.Is comparison by code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// ToLog serializes the error for logging, including the stack trace.
func (e *AppError) ToLog() map[string]any {
	log := map[string]any{
		"code":      e.Code,
		"message":   e.Message,
		"severity":  e.Severity,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}
	if e.Context != "" {
		log["context"] = e.Context
	}
	if e.Venue != "" {
		log["venue"] = e.Venue
	}
	if e.cause != nil {
		log["cause"] = e.cause.Error()
	}
	if len(e.stack) > 0 {
		log["stack"] = e.formatStack()
	}
	return log
}

func (e *AppError) formatStack() string {
	var sb strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			sb.WriteString(fmt.Sprintf("\n\t%s:%d %s", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}
	return sb.String()
}

func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	return pcs[:n]
}

// New creates a new AppError with the given code and options.
func New(code Code, opts ...Option) *AppError {
	err := &AppError{
		Code:      code,
		Message:   messages[code],
		Severity:  defaultSeverity(code),
		Timestamp: time.Now(),
		stack:     captureStack(),
	}

	for _, opt := range opts {
		opt(err)
	}

	if err.Message == "" {
		err.Message = string(code)
	}

	return err
}

// Option is a functional option for AppError.
type Option func(*AppError)

// WithMessage sets a custom message.
func WithMessage(message string) Option {
	return func(e *AppError) {
		e.Message = message
	}
}

// WithContext adds context information.
func WithContext(context string) Option {
	return func(e *AppError) {
		e.Context = context
	}
}

// WithVenue tags the error with the venue it originated from.
func WithVenue(venue string) Option {
	return func(e *AppError) {
		e.Venue = venue
	}
}

// WithSeverity overrides the default severity.
func WithSeverity(severity Severity) Option {
	return func(e *AppError) {
		e.Severity = severity
	}
}

// WithCause wraps an underlying error.
func WithCause(cause error) Option {
	return func(e *AppError) {
		e.cause = cause
	}
}

// Fetch creates a per-venue fetch error.
func Fetch(code Code, venue string, cause error) *AppError {
	return New(code, WithVenue(venue), WithCause(cause))
}

// Commit creates a commit-phase error.
func Commit(code Code, context string, cause error) *AppError {
	return New(code, WithContext(context), WithCause(cause))
}

// Wrap wraps a standard error into an AppError. An existing AppError is
// returned unchanged, with the context filled in when it was empty.
func Wrap(err error, code Code, context string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if context != "" && appErr.Context == "" {
			appErr.Context = context
		}
		return appErr
	}

	return New(code, WithContext(context), WithCause(err))
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknownError
}

// GetSeverity extracts the severity from an error.
func GetSeverity(err error) Severity {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Severity
	}
	return SeverityError
}

// defaultSeverity determines how an error surfaces based on its code.
func defaultSeverity(code Code) Severity {
	switch {
	// An un-hedged position was acquired; the operator must intervene.
	case code == CodeSellLegFailed:
		return SeverityCritical

	case IsCommitCode(code):
		return SeverityError

	// Fetch failures are retried on the next poll tick.
	case IsFetchCode(code):
		return SeverityWarning

	case code == CodeNoValidOpportunity, code == CodeZeroTradeAmount:
		return SeverityInfo

	default:
		return SeverityError
	}
}
