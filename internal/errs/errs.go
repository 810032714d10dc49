// Package errs defines the structured error kinds surfaced by the engine.
// Every error carries a code and optional context so callers (and the API
// layer) can decide without string matching.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"ms-reservations/internal/models"
)

const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeConflict            = "CONFLICT"
	CodeNoAvailability      = "NO_AVAILABILITY"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	CodeNotFound            = "NOT_FOUND"
	CodeInternal            = "INTERNAL_ERROR"
)

type EngineError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`

	// Populated on NO_AVAILABILITY so callers get typed access to the
	// computed alternatives without digging through Details.
	Alternatives *models.Alternatives `json:"alternatives,omitempty"`
}

func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) StatusCode() int { return e.HTTPStatus }

func (e *EngineError) WithDetails(details map[string]any) *EngineError {
	e.Details = details
	return e
}

func Validation(message string) *EngineError {
	return &EngineError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

func Conflict(message string) *EngineError {
	return &EngineError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func NoAvailability(message string, alts *models.Alternatives) *EngineError {
	return &EngineError{
		Code:         CodeNoAvailability,
		Message:      message,
		HTTPStatus:   http.StatusConflict,
		Alternatives: alts,
	}
}

func InvalidTransition(from, to models.BookingStatus) *EngineError {
	return &EngineError{
		Code:       CodeInvalidTransition,
		Message:    fmt.Sprintf("illegal transition from %s to %s", from, to),
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"from": string(from),
			"to":   string(to),
		},
	}
}

func ConcurrencyConflict(message string) *EngineError {
	return &EngineError{
		Code:       CodeConcurrencyConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func NotFound(resource, id string) *EngineError {
	return &EngineError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details: map[string]any{
			"resource": resource,
			"id":       id,
		},
	}
}

func Internal(message string, err error) *EngineError {
	return &EngineError{
		Code:       CodeInternal,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// As unwraps err into an *EngineError, wrapping unknown errors as internal.
func As(err error) *EngineError {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return Internal("unexpected error", err)
}

// IsCode reports whether err is an engine error with the given code.
func IsCode(err error, code string) bool {
	var ee *EngineError
	return errors.As(err, &ee) && ee.Code == code
}
