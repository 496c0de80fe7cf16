package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error categories. Stages and the orchestrator match on these with
// errors.Is to decide between fatal and per-item handling.
var (
	// ErrConfiguration: missing credentials, model id, bad paths. Fatal,
	// raised before any stage runs.
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound: an expected artifact is missing. Recoverable; most
	// readers degrade to an empty value instead of returning this.
	ErrNotFound = errors.New("artifact not found")
	// ErrValidation: unknown stage name, invalid page index. Fatal to the
	// call that raised it.
	ErrValidation = errors.New("validation failed")
	// ErrService: an external OCR/model call failed. Caught per item.
	ErrService = errors.New("service call failed")
	// ErrParse: model output was not well-formed after fence stripping.
	// Caught per item.
	ErrParse = errors.New("parse failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func ConfigurationError(message string, cause error) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, message+causeSuffix(cause))
}

func ValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func NotFoundErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func ServiceError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrService, op, cause)
}

func ParseError(op string, cause error) error {
	return fmt.Errorf("%w: %s: %v", ErrParse, op, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func causeSuffix(cause error) string {
	if cause == nil {
		return ""
	}
	return ": " + cause.Error()
}
