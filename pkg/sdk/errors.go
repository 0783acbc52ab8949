package mddb

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrDocumentNotFound  = domain.ErrDocumentNotFound
	ErrInvalidRequest    = domain.ErrInvalidRequest
	ErrReadOnly          = domain.ErrReadOnly
	ErrBatchTooLarge     = domain.ErrBatchTooLarge
	ErrUnsupportedFormat = domain.ErrUnsupportedFormat

	// ErrUnauthorized means the server rejected the API key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrServerError covers 5xx responses.
	ErrServerError = errors.New("server error")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mddb: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// Unwrap maps the error code onto a sentinel.
func (e *APIError) Unwrap() error {
	switch e.Code {
	case "document_not_found":
		return ErrDocumentNotFound
	case "not_found":
		return ErrNotFound
	case "bad_request", "validation_failed":
		return ErrInvalidRequest
	case "read_only":
		return ErrReadOnly
	case "batch_too_large":
		return ErrBatchTooLarge
	case "unsupported_format":
		return ErrUnsupportedFormat
	case "unauthorized":
		return ErrUnauthorized
	}
	if e.StatusCode >= http.StatusInternalServerError {
		return ErrServerError
	}
	return nil
}
