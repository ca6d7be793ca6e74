package common

import (
	"errors"
	"net/http"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// ValidationError builds a 400 error for business rule or input violations.
func ValidationError(code, message string) *AppError {
	if code == "" {
		code = "VALIDATION_ERROR"
	}
	return &AppError{Code: code, Message: message, HTTPStatus: http.StatusBadRequest}
}

// NotFoundError builds a 404 error for the named resource.
func NotFoundError(message string) *AppError {
	return &AppError{Code: "NOT_FOUND", Message: message, HTTPStatus: http.StatusNotFound}
}

// WithDetails returns a copy of the sentinel carrying request specific details.
// The copy wraps the original so errors.Is keeps matching the sentinel.
func (e *AppError) WithDetails(details any) *AppError {
	if e == nil {
		return nil
	}
	return &AppError{Code: e.Code, Message: e.Message, HTTPStatus: e.HTTPStatus, Err: e, Details: details}
}

// IsAppError checks whether the error is an AppError.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
