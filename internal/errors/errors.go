// Package errors defines the coded errors returned by the command surface.
// The device core never fails; only input validation produces these.
package errors

import "fmt"

// ErrorCode identifies a class of command error.
type ErrorCode string

const (
	ErrInvalidChoice  ErrorCode = "INVALID_CHOICE"  // 400
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrUnknownCommand ErrorCode = "UNKNOWN_COMMAND" // 400
	ErrUnavailable    ErrorCode = "UNAVAILABLE"     // 503
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// DeviceError is a structured error with code, status, and details.
type DeviceError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidChoice creates a 400 error for a selection index outside its range.
func NewInvalidChoice(field string, value, max int) *DeviceError {
	return &DeviceError{
		Code:    ErrInvalidChoice,
		Status:  400,
		Message: fmt.Sprintf("%s must be between 0 and %d, got %d", field, max, value),
		Details: map[string]any{"field": field, "value": value, "max": max},
	}
}

// NewInvalidRequest creates a 400 error for malformed arguments.
func NewInvalidRequest(msg string) *DeviceError {
	return &DeviceError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnknownCommand creates a 400 error for text that names no command.
func NewUnknownCommand(text string) *DeviceError {
	return &DeviceError{
		Code:    ErrUnknownCommand,
		Status:  400,
		Message: fmt.Sprintf("unknown command: %q", text),
		Details: map[string]any{"command": text},
	}
}

// NewUnavailable creates a 503 error when the device loop is not accepting commands.
func NewUnavailable(msg string) *DeviceError {
	return &DeviceError{
		Code:    ErrUnavailable,
		Status:  503,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DeviceError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DeviceError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a DeviceError with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*DeviceError); ok {
		return dErr.Code == code
	}
	return false
}
