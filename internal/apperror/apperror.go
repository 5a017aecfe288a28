package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("Validation Error")
	ErrConflict            = errors.New("conflict")
	ErrForbidden           = errors.New("forbidden")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrPartialProvisioning = errors.New("partial provisioning")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// QuotaExceeded returns an AppError indicating the user's plan does not
// allow another occurrence of the given action this month.
func QuotaExceeded(action string) *AppError {
	return &AppError{
		Err:     ErrQuotaExceeded,
		Message: fmt.Sprintf("monthly %s limit reached for the current plan", action),
	}
}

// PartialProvisioning returns an AppError indicating a user record was
// committed but a later provisioning step (subscription or usage stats)
// failed. The account exists and provisioning can be retried idempotently.
func PartialProvisioning(userID string, cause error) *AppError {
	return &AppError{
		Err:     ErrPartialProvisioning,
		Message: fmt.Sprintf("user %s created but provisioning did not complete: %v", userID, cause),
	}
}
