package chi

import (
	"errors"
	"io/fs"
	"net/http"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/mddb/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeReadOnly          ErrorCode = "read_only"
	CodeNotFound          ErrorCode = "not_found"
	CodeDocumentNotFound  ErrorCode = "document_not_found"
	CodeBatchTooLarge     ErrorCode = "batch_too_large"
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeInternalError     ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(fs.ErrNotExist, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrReadOnly, http.StatusForbidden, CodeReadOnly),
		sentinelHandler(domain.ErrBatchTooLarge, http.StatusRequestEntityTooLarge, CodeBatchTooLarge),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, CodeUnsupportedFormat),
		sentinelHandler(domain.ErrInvalidDocument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-facing message without exposing internals.
// Validation errors carry the offending field, so their full text is returned.
func safeDomainMessage(err error) string {
	for _, s := range []error{domain.ErrInvalidDocument, domain.ErrInvalidRequest, domain.ErrUnsupportedFormat} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrNotFound,
		domain.ErrReadOnly,
		domain.ErrBatchTooLarge,
		fs.ErrNotExist,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	msg := safeDomainMessage(err)
	log := s.requestLogger(r)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Debug("Request rejected", zap.Error(err))
			return
		}
	}
	log.Error("Internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
