package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies client-facing failures
type ErrorCode string

const (
	// Validation errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	ErrCodeEmptyMessage ErrorCode = "EMPTY_MESSAGE"

	// Authentication errors
	ErrCodeInvalidCreds  ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeEmailExists   ErrorCode = "EMAIL_EXISTS"
	ErrCodeNotSignedIn   ErrorCode = "NOT_SIGNED_IN"
	ErrCodeInvalidToken  ErrorCode = "INVALID_TOKEN"
	ErrCodePasswordMatch ErrorCode = "PASSWORD_MISMATCH"

	// Backend errors
	ErrCodeNetwork    ErrorCode = "NETWORK_ERROR"
	ErrCodePermission ErrorCode = "PERMISSION_DENIED"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrCodeStorage    ErrorCode = "STORAGE_ERROR"
	ErrCodeInternal   ErrorCode = "INTERNAL_ERROR"
)

// AppError is a structured error with a code and an optional cause
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the given code and message
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an existing error with an AppError, preserving the original error
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Validation errors
func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func MissingFieldError(field string) *AppError {
	return New(ErrCodeMissingField, fmt.Sprintf("missing required field: %s", field))
}

func EmptyMessageError() *AppError {
	return New(ErrCodeEmptyMessage, "message has no text and no media reference")
}

// Authentication errors
func InvalidCredentialsError() *AppError {
	return New(ErrCodeInvalidCreds, "invalid email or password")
}

func EmailExistsError() *AppError {
	return New(ErrCodeEmailExists, "email already registered")
}

func NotSignedInError() *AppError {
	return New(ErrCodeNotSignedIn, "no signed-in user")
}

func PasswordMismatchError() *AppError {
	return New(ErrCodePasswordMatch, "password and confirmation do not match")
}

// Backend errors
func NetworkError(err error) *AppError {
	return Wrap(ErrCodeNetwork, "backend unreachable", err)
}

func PermissionError(path string) *AppError {
	return New(ErrCodePermission, fmt.Sprintf("access denied for %s", path))
}

func NotFoundError(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func StorageError(err error) *AppError {
	return Wrap(ErrCodeStorage, "storage operation failed", err)
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal for plain errors
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
