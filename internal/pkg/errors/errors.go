// Package errors defines AppError, the error every API-facing failure of the VM wizard
// service is reported with. Handlers pass it to c.Error and the ErrorHandler middleware
// renders code, params and field errors as JSON.
//
// Import Path: kv-shepherd.io/vmwizard/internal/pkg/errors
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a failure with a machine-readable code and the HTTP status to answer with.
type AppError struct {
	// Code is a machine-readable error code such as "STORAGE_NOT_FOUND".
	Code string `json:"code"`

	// Message is an English description for logs and API clients.
	Message string `json:"message"`

	HTTPStatus int `json:"-"`

	// Params identify the objects involved: session_id, storage_id, limit.
	Params map[string]interface{} `json:"params,omitempty"`

	// FieldErrors point at the offending parts of a request body or wizard tab.
	FieldErrors []FieldError `json:"field_errors,omitempty"`

	Err error `json:"-"`
}

// FieldError describes one invalid field. Field uses the wizard path notation, for
// example "storages[3].size" or "vmSettings.name".
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New creates an AppError.
func New(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap creates an AppError caused by err.
func Wrap(err error, code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// With sets one param and returns e.
func (e *AppError) With(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{}, 1)
	}
	e.Params[key] = value
	return e
}

// WithFieldErrors appends field errors and returns e.
func (e *AppError) WithFieldErrors(fieldErrors ...FieldError) *AppError {
	e.FieldErrors = append(e.FieldErrors, fieldErrors...)
	return e
}

// BadRequest creates a 400 error.
func BadRequest(code, message string) *AppError {
	return New(code, message, http.StatusBadRequest)
}

// InvalidRequest creates the 400 returned for a request body that cannot be decoded or
// breaks the API schema.
func InvalidRequest(message string, fieldErrors ...FieldError) *AppError {
	return BadRequest(CodeInvalidRequest, message).WithFieldErrors(fieldErrors...)
}

// UnprocessableEntity creates a 422 error, used for well-formed but invalid wizard input.
func UnprocessableEntity(code, message string) *AppError {
	return New(code, message, http.StatusUnprocessableEntity)
}

// Internal creates a 500 error.
func Internal(code, message string) *AppError {
	return New(code, message, http.StatusInternalServerError)
}

// ServiceUnavailable creates a 503 error.
func ServiceUnavailable(code, message string) *AppError {
	return New(code, message, http.StatusServiceUnavailable)
}

// IsAppError reports whether err wraps an AppError and returns it.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
