package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes
const (
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeInternal             = "INTERNAL_ERROR"
	ErrCodeBadRequest           = "BAD_REQUEST"
	ErrCodeInvalidConfiguration = "INVALID_CONFIGURATION"
	ErrCodeCardNotScheduled     = "CARD_NOT_SCHEDULED"
	ErrCodeSessionClosed        = "SESSION_CLOSED"
	ErrCodeInvariantViolation   = "INVARIANT_VIOLATION"
	ErrCodeConflict             = "CONFLICT"
)

// Sentinels for errors.Is; an AppError matches any sentinel with the same Code.
var (
	ErrNotFound             = &AppError{Code: ErrCodeNotFound}
	ErrValidation           = &AppError{Code: ErrCodeValidation}
	ErrInternal             = &AppError{Code: ErrCodeInternal}
	ErrBadRequest           = &AppError{Code: ErrCodeBadRequest}
	ErrInvalidConfiguration = &AppError{Code: ErrCodeInvalidConfiguration}
	ErrCardNotScheduled     = &AppError{Code: ErrCodeCardNotScheduled}
	ErrSessionClosed        = &AppError{Code: ErrCodeSessionClosed}
	ErrInvariantViolation   = &AppError{Code: ErrCodeInvariantViolation}
	ErrConflict             = &AppError{Code: ErrCodeConflict}
)

// AppError represents an application error with HTTP status code and error code
type AppError struct {
	Code    string // Error code (e.g., "NOT_FOUND", "SESSION_CLOSED")
	Message string // Human-readable error message
	Status  int    // HTTP status code
	Err     error  // Wrapped underlying error (optional)
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for error wrapping support
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// NewNotFoundError creates a new NOT_FOUND error
func NewNotFoundError(resource string, id any) *AppError {
	return &AppError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Status:  404,
	}
}

// NewValidationError creates a new VALIDATION_ERROR
func NewValidationError(field string, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: fmt.Sprintf("validation failed for %s: %s", field, reason),
		Status:  400,
	}
}

// NewInternalError creates a new INTERNAL_ERROR
func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
		Status:  500,
		Err:     err,
	}
}

// NewBadRequestError creates a new BAD_REQUEST error
func NewBadRequestError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// NewInvalidConfigurationError reports a session that cannot be started as requested.
func NewInvalidConfigurationError(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidConfiguration,
		Message: fmt.Sprintf(format, args...),
		Status:  400,
	}
}

// NewCardNotScheduledError reports a review for a card outside the session queue,
// or one that was already reviewed in it.
func NewCardNotScheduledError(cardID any, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeCardNotScheduled,
		Message: fmt.Sprintf("card %v %s", cardID, reason),
		Status:  409,
	}
}

// NewSessionClosedError reports a mutation attempted on an ended session.
func NewSessionClosedError(sessionID any) *AppError {
	return &AppError{
		Code:    ErrCodeSessionClosed,
		Message: fmt.Sprintf("session %v is closed", sessionID),
		Status:  409,
	}
}

// NewInvariantViolationError reports internally inconsistent session state.
func NewInvariantViolationError(format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeInvariantViolation,
		Message: fmt.Sprintf(format, args...),
		Status:  500,
	}
}

// NewConflictError reports a change refused because of the current state of other data.
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    ErrCodeConflict,
		Message: message,
		Status:  409,
	}
}

// StatusOf returns the HTTP status carried by err, or 500.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return 500
}
