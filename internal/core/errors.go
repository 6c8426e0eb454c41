// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Result errors
	ErrNoResult          = &Error{Code: "NO_RESULT", Message: "optimizer returned no allocation"}
	ErrDegenerateStats   = &Error{Code: "DEGENERATE_STATS", Message: "summary statistics unusable for synthesis"}
	ErrMalformedResponse = &Error{Code: "MALFORMED_RESPONSE", Message: "unexpected response from optimization service"}

	// Rendering errors
	ErrTargetMissing = &Error{Code: "TARGET_MISSING", Message: "no render target registered for slot"}
	ErrSlotUnbound   = &Error{Code: "SLOT_UNBOUND", Message: "no chart bound to slot"}
	ErrRenderFailed  = &Error{Code: "RENDER_FAILED", Message: "chart rendering failed"}
	ErrSessionClosed = &Error{Code: "SESSION_CLOSED", Message: "presentation session is closed"}

	// Optimizer client errors
	ErrOptimizerFailed  = &Error{Code: "OPTIMIZER_FAILED", Message: "optimization request failed"}
	ErrOptimizerTimeout = &Error{Code: "OPTIMIZER_TIMEOUT", Message: "optimization request timed out"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}

	// Storage errors
	ErrStorageFailed = &Error{Code: "STORAGE_FAILED", Message: "artifact storage failed"}
	ErrHistoryFailed = &Error{Code: "HISTORY_FAILED", Message: "history store failed"}

	// Insight errors
	ErrInsightFailed      = &Error{Code: "INSIGHT_FAILED", Message: "insight request failed"}
	ErrInsightUnavailable = &Error{Code: "INSIGHT_UNAVAILABLE", Message: "no insight provider configured"}
)
