package helpers

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"terminal-bridge/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

var (
	ErrSourceUnavailable = errors.New("market source unavailable")
	ErrMalformedBar      = errors.New("malformed bar")
)

type BridgeError struct {
	Message string
	Cause   error
}

func (e *BridgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Helper to define distinct error types for type assertions if needed
type ConfigurationError struct{ BridgeError }
type PersistenceError struct{ BridgeError }
type ValidationError struct{ BridgeError }

// SourceUnavailableError marks a poll that returned nothing usable.
type SourceUnavailableError struct{ BridgeError }

func (e *SourceUnavailableError) Is(target error) bool { return target == ErrSourceUnavailable }

// MalformedBarError marks a bar that failed shape validation.
type MalformedBarError struct{ BridgeError }

func (e *MalformedBarError) Is(target error) bool { return target == ErrMalformedBar }

// -----------------------------------------------------------------------------

func NewSourceUnavailable(operation string, cause error) error {
	return &SourceUnavailableError{BridgeError{Message: fmt.Sprintf("%s: source unavailable", operation), Cause: cause}}
}

func NewMalformedBar(format string, args ...interface{}) error {
	return &MalformedBarError{BridgeError{Message: fmt.Sprintf(format, args...)}}
}

func NewPersistenceError(operation string, cause error) error {
	return &PersistenceError{BridgeError{Message: fmt.Sprintf("%s failed", operation), Cause: cause}}
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{BridgeError{Message: fmt.Sprintf(format, args...)}}
}

func NewConfigurationError(format string, args ...interface{}) error {
	return &ConfigurationError{BridgeError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts to execute the operation up to maxRetries times with exponential backoff.
func RetryWithBackoff(log *logger.Logger, operation string, maxRetries int, baseDelay time.Duration, fn func() error) error {
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

	return lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler runs loop cycles, turning panics into errors and tracking
// consecutive failures per loop.
type ErrorHandler struct {
	Logger *logger.Logger

	mu       sync.Mutex
	failures map[string]int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger:   log,
		failures: make(map[string]int),
	}
}

// -----------------------------------------------------------------------------

// RunCycle executes fn once. Panics are recovered and returned as errors.
func (e *ErrorHandler) RunCycle(loop string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", loop, r, debug.Stack())
		}
		e.record(loop, err)
	}()
	return fn()
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) record(loop string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil {
		if n := e.failures[loop]; n > 0 {
			e.Logger.Info("%s recovered after %d failed cycles", loop, n)
		}
		e.failures[loop] = 0
		return
	}
	e.failures[loop]++
	e.Logger.Error("Error in %s (consecutive failures: %d): %v", loop, e.failures[loop], err)
}

// -----------------------------------------------------------------------------

// ConsecutiveFailures returns the current failure streak for a loop.
func (e *ErrorHandler) ConsecutiveFailures(loop string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.failures[loop]
}
