package domain

import (
	"fmt"
	"time"
)

// DocumentStatus represents the processing state of a source document.
type DocumentStatus string

const (
	DocumentStatusUnprocessed DocumentStatus = "unprocessed"
	DocumentStatusProcessing  DocumentStatus = "processing"
	DocumentStatusProcessed   DocumentStatus = "processed"
	DocumentStatusFailed      DocumentStatus = "failed"
)

// Document represents an uploaded source document used for retrieval.
// The chunk set derived from a document is created once per successful
// ingestion, fully replaced on re-ingestion and fully removed on delete;
// ChunkCount reflects the last successful ingestion only.
type Document struct {
	ID               string
	Filename         string
	OriginalFilename string
	StorageKey       string
	FileSize         int64
	FileType         string
	Title            string
	Description      string
	Category         string
	Status           DocumentStatus
	ChunkCount       int
	ProcessedAt      *time.Time
	UploadedAt       time.Time
	UpdatedAt        time.Time
}

// Processed reports whether the document's chunks are queryable.
func (d *Document) Processed() bool {
	return d.Status == DocumentStatusProcessed
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.OriginalFilename == "" {
		return fmt.Errorf("document original filename is required")
	}

	if d.StorageKey == "" {
		return fmt.Errorf("document storage key is required")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document status is invalid: %s", d.Status)
	}

	if d.ChunkCount < 0 {
		return fmt.Errorf("document chunk count cannot be negative")
	}

	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusUnprocessed, DocumentStatusProcessing,
		DocumentStatusProcessed, DocumentStatusFailed:
		return true
	}
	return false
}
