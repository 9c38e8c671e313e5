// Package errors defines the sentinel error kinds shared by the index build,
// the query path and the HTTP layer, plus an AppError that carries a message
// and status code while still matching its sentinel with errors.Is.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrDocumentNotFound   = errors.New("document not found")
	ErrManifestNotFound   = errors.New("manifest not found")
	ErrNoiseWordsNotFound = errors.New("noise words not found")
	ErrDocumentExists     = errors.New("document already indexed")
	ErrIndexSealed        = errors.New("index is sealed")
	ErrInvalidQuery       = errors.New("invalid query")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrInternal           = errors.New("internal error")
	ErrTimeout            = errors.New("operation timed out")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
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

// HTTPStatusCode maps an error to the status the search service answers with.
// An AppError's own status wins over the sentinel mapping.
func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidQuery):
		return http.StatusBadRequest
	case errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrManifestNotFound),
		errors.Is(err, ErrNoiseWordsNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDocumentExists), errors.Is(err, ErrIndexSealed):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code is the stable machine-readable name for err's kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidQuery):
		return "invalid_query"
	case errors.Is(err, ErrDocumentNotFound),
		errors.Is(err, ErrManifestNotFound),
		errors.Is(err, ErrNoiseWordsNotFound):
		return "not_found"
	case errors.Is(err, ErrDocumentExists), errors.Is(err, ErrIndexSealed):
		return "conflict"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "internal"
	}
}

// Body is the JSON error payload of every HTTP endpoint.
type Body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Response returns the status and payload for err. Detail is only shown for
// client errors: an AppError's message, or the error text otherwise. Server
// errors answer with the bare status text.
func Response(err error) (int, Body) {
	status := HTTPStatusCode(err)
	body := Body{Error: err.Error(), Code: Code(err)}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		body.Error = appErr.Message
	}
	if status >= http.StatusInternalServerError {
		body.Error = http.StatusText(status)
	}
	return status, body
}
