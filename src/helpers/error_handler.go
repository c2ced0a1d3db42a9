package helpers

import (
	"errors"
	"fmt"
	"symbollist-observer/src/logger"
	"time"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type ObserverError struct {
	Message string
	Cause   error
}

func (e *ObserverError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ObserverError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ ObserverError }
type SessionError struct{ ObserverError }
type DecodeError struct{ ObserverError }
type RegistryError struct{ ObserverError }
type DatabaseError struct{ ObserverError }

func NewSessionError(msg string, cause error) error {
	return &SessionError{ObserverError{Message: msg, Cause: cause}}
}

func NewDecodeError(msg string, cause error) error {
	return &DecodeError{ObserverError{Message: msg, Cause: cause}}
}

func NewRegistryError(msg string, cause error) error {
	return &RegistryError{ObserverError{Message: msg, Cause: cause}}
}

func NewDatabaseError(msg string, cause error) error {
	return &DatabaseError{ObserverError{Message: msg, Cause: cause}}
}

func NewConfigurationError(msg string, cause error) error {
	return &ConfigurationError{ObserverError{Message: msg, Cause: cause}}
}

// Sentinel errors
var (
	ErrNotConnected = errors.New("session not connected")
)

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(operation string, maxRetries int, baseDelay time.Duration, log *logger.Logger, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if attempt == maxRetries-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxRetries, operation, err, delay)
		}
		time.Sleep(delay)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, maxRetries, lastErr)
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler() *ErrorHandler {
	return &ErrorHandler{
		Logger: logger.NewLogger(nil, "ErrorHandler"),
	}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err with its context and counts it. Nil errors are ignored.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.ErrorCount++

	var sessErr *SessionError
	var dbErr *DatabaseError
	switch {
	case errors.As(err, &sessErr):
		e.Logger.Error("Session error in %s: %v", context, err)
	case errors.As(err, &dbErr):
		e.Logger.Error("Database error in %s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
