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
	// Strategy errors
	ErrValidationFailed = &Error{Code: "VALIDATION_FAILED", Message: "strategy definition invalid"}
	ErrStrategyNotFound = &Error{Code: "STRATEGY_NOT_FOUND", Message: "strategy not found"}
	ErrRuntimeFault     = &Error{Code: "RUNTIME_FAULT", Message: "unexpected fault during strategy evaluation"}

	// Risk and ledger denials (expected, recoverable)
	ErrRiskLocked         = &Error{Code: "RISK_LOCKED", Message: "risk guard is locked"}
	ErrTradeCapReached    = &Error{Code: "TRADE_CAP_REACHED", Message: "daily trade cap reached"}
	ErrInsufficientMargin = &Error{Code: "INSUFFICIENT_MARGIN", Message: "insufficient available margin"}

	// Persistence errors
	ErrPersistenceFailed = &Error{Code: "PERSISTENCE_FAILED", Message: "persistence operation failed"}

	// Market data errors
	ErrReplayDataInvalid = &Error{Code: "REPLAY_DATA_INVALID", Message: "replay data malformed"}
	ErrNoData            = &Error{Code: "NO_DATA", Message: "no data available"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
