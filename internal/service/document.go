package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/pagination"
	"github.com/univera/campuschat/internal/telemetry"
)

// ObjectStore persists raw uploaded files. Keys are opaque to callers.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
	Delete(ctx context.Context, key string) error
}

// DocumentRepositoryInterface defines the repository interface for document persistence
type DocumentRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListWithCursor(ctx context.Context, category string, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int64, error)
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// IngestJobRepositoryInterface defines the repository interface for ingest job persistence
type IngestJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.IngestJob) error
}

// IndexMaintainer covers the retrieval-side operations document management
// needs: dropping a document's chunks and reading index size.
type IndexMaintainer interface {
	Remove(ctx context.Context, documentID string) error
	Stats(ctx context.Context) (*domain.IndexStats, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// DocumentService handles upload, listing and deletion of source documents.
// Chunking and indexing happen asynchronously: Upload stores the file,
// records the document as unprocessed and queues an ingest job in the same
// transaction.
type DocumentService struct {
	docRepo  DocumentRepositoryInterface
	store    ObjectStore
	index    IndexMaintainer
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

func NewDocumentService(
	docRepo DocumentRepositoryInterface,
	store ObjectStore,
	index IndexMaintainer,
	txRunner TxRunner,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		store:    store,
		index:    index,
		txRunner: txRunner,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

func NewDocumentServiceWithUUIDGen(
	docRepo DocumentRepositoryInterface,
	store ObjectStore,
	index IndexMaintainer,
	txRunner TxRunner,
	uuidGen UUIDGenerator,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		store:    store,
		index:    index,
		txRunner: txRunner,
		uuidGen:  uuidGen,
	}
}

type UploadDocumentInput struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
	Title       string
	Description string
	Category    string
}

func (s *DocumentService) Upload(ctx context.Context, input UploadDocumentInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		Operation: "upload",
	})
	defer span.End()

	ext := strings.ToLower(filepath.Ext(input.Filename))
	if ext != ".pdf" {
		return nil, domain.ErrUnsupportedFileType
	}
	if input.Size <= 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "uploaded file is empty")
	}

	docID := s.uuidGen.NewString()
	safeName := sanitizeFilename(input.Filename)
	storageKey := fmt.Sprintf("%s/%s", docID, safeName)

	if err := s.store.Put(ctx, storageKey, input.Content, input.Size, input.ContentType); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to store uploaded file: %w", err)
	}

	now := time.Now().UTC()
	title := input.Title
	if title == "" {
		title = strings.TrimSuffix(input.Filename, filepath.Ext(input.Filename))
	}

	doc := &domain.Document{
		ID:               docID,
		Filename:         safeName,
		OriginalFilename: input.Filename,
		StorageKey:       storageKey,
		FileSize:         input.Size,
		FileType:         ext,
		Title:            title,
		Description:      input.Description,
		Category:         input.Category,
		Status:           domain.DocumentStatusUnprocessed,
		UploadedAt:       now,
		UpdatedAt:        now,
	}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create document record: %w", err)
		}
		job := domain.NewIngestJob(s.uuidGen.NewString(), docID, now)
		if err := repos.IngestJobs().Create(ctx, job); err != nil {
			return fmt.Errorf("failed to queue ingest job: %w", err)
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		if delErr := s.store.Delete(ctx, storageKey); delErr != nil {
			log.Printf("failed to clean up stored file %s: %v", storageKey, delErr)
		}
		return nil, err
	}

	return doc, nil
}

type ListDocumentsInput struct {
	Category string
	Cursor   string
	Limit    int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	page, err := s.docRepo.ListWithCursor(ctx, input.Category, cursor, input.Limit)
	if err != nil {
		return nil, err
	}

	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, documentID)
}

// Delete removes a document entirely: its chunks leave the index first, so
// retrieval never returns text for a document that is gone, then the stored
// file and finally the record itself.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "delete",
	})
	defer span.End()

	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := s.index.Remove(ctx, documentID); err != nil {
		span.SetError(err)
		return err
	}

	if err := s.store.Delete(ctx, doc.StorageKey); err != nil {
		log.Printf("failed to delete stored file %s: %v", doc.StorageKey, err)
	}

	return s.docRepo.Delete(ctx, documentID)
}

// Reprocess queues a fresh ingest job for an already uploaded document. The
// resulting chunk set fully replaces the previous one.
func (s *DocumentService) Reprocess(ctx context.Context, documentID string) (*domain.IngestJob, error) {
	if _, err := s.docRepo.GetByID(ctx, documentID); err != nil {
		return nil, err
	}

	job := domain.NewIngestJob(s.uuidGen.NewString(), documentID, time.Now().UTC())

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		return repos.IngestJobs().Create(ctx, job)
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

type DocumentStats struct {
	TotalDocuments int64
	Processed      int64
	Processing     int64
	Unprocessed    int64
	Failed         int64
	TotalChunks    int64
}

func (s *DocumentService) Stats(ctx context.Context) (*DocumentStats, error) {
	counts, err := s.docRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	indexStats, err := s.index.Stats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &DocumentStats{
		Processed:   counts[domain.DocumentStatusProcessed],
		Processing:  counts[domain.DocumentStatusProcessing],
		Unprocessed: counts[domain.DocumentStatusUnprocessed],
		Failed:      counts[domain.DocumentStatusFailed],
		TotalChunks: indexStats.TotalChunks,
	}
	for _, c := range counts {
		stats.TotalDocuments += c
	}
	return stats, nil
}

// sanitizeFilename keeps the base name only and replaces characters that are
// unsafe in storage keys.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
