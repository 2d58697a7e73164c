package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"

	// Retrieval pipeline error codes. Extraction, embedding and index failures
	// are all fatal for the call that hit them; only index failures are safe
	// to retry, because index writes are upserts and deletes are idempotent.
	ErrCodeExtraction       = "EXTRACTION_ERROR"
	ErrCodeEmbedding        = "EMBEDDING_ERROR"
	ErrCodeIndexUnavailable = "INDEX_UNAVAILABLE"
)

// Validation errors
var (
	ErrInvalidDocumentStatus  = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidIngestJobStatus = NewDomainError(ErrCodeValidation, "invalid ingest job status")
	ErrInvalidMessageType     = NewDomainError(ErrCodeValidation, "invalid message type")
	ErrMissingRequiredField   = NewDomainError(ErrCodeValidation, "missing required field")
	ErrEmptyDocumentText      = NewDomainError(ErrCodeValidation, "document contains no extractable text")
	ErrInvalidChunkConfig     = NewDomainError(ErrCodeValidation, "chunk overlap must be smaller than chunk size")
	ErrUnsupportedFileType    = NewDomainError(ErrCodeValidation, "only PDF files are supported")
)

// Not found errors
var (
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
	ErrSessionNotFound   = NewDomainError(ErrCodeNotFound, "chat session not found")
	ErrIngestJobNotFound = NewDomainError(ErrCodeNotFound, "ingest job not found")
)

// NewExtractionError wraps a text extraction failure.
func NewExtractionError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeExtraction, "failed to extract text from source", err)
}

// NewEmbeddingError wraps an embedding model failure.
func NewEmbeddingError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeEmbedding, "embedding model call failed", err)
}

// NewIndexUnavailableError wraps a vector index backing-store failure.
func NewIndexUnavailableError(err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeIndexUnavailable, "vector index unavailable", err)
}
