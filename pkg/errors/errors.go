// Package errors defines the service-level error sentinels and an AppError
// type carrying an HTTP status, plus the mapping from errors to status codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/trie-text-search/internal/indexer/index"
)

var (
	ErrDocumentNotFound    = errors.New("document not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrDocumentTooLarge    = errors.New("document too large")
	ErrIdempotencyConflict = errors.New("idempotency key already used")
	ErrUnavailable         = errors.New("service unavailable")
	ErrInternal            = errors.New("internal error")
	ErrTimeout             = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

// Invalid wraps a caller mistake as a 400 AppError.
func Invalid(format string, args ...any) *AppError {
	return Newf(ErrInvalidInput, http.StatusBadRequest, format, args...)
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput), errors.Is(err, index.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
