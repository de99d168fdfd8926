package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceUnavailable = errors.New("document source unavailable")
	ErrCacheDisabled     = errors.New("cache disabled")
	ErrInternal          = errors.New("internal error")
	ErrTimeout           = errors.New("operation timed out")
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

// HTTPStatusCode maps err to the status the HTTP layer should answer with.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrSourceUnavailable), errors.Is(err, ErrCacheDisabled), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
