package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidDocument signals a document that fails validation.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidRequest signals malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrReadOnly signals a write attempted in read mode.
	ErrReadOnly = errors.New("read-only mode")
	// ErrBatchTooLarge signals a batch above the configured size.
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrUnsupportedFormat signals an unknown export format.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
