package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/service"
)

const (
	// MaxRetries is the maximum number of attempts for a failed job
	MaxRetries = 3
)

// IngestJobRepository defines the interface for ingest job persistence
type IngestJobRepository interface {
	// ClaimPending retrieves and claims pending ingest jobs
	ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error)

	// UpdateStatus updates the status of an ingest job
	UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, id string) error
}

// DocumentFetcher looks up the document a job refers to.
type DocumentFetcher interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// DocumentIngestor runs the chunk-embed-index pipeline for one document.
type DocumentIngestor interface {
	Ingest(ctx context.Context, input service.IngestInput) error
}

// IngestWorker drains queued ingest jobs one document at a time. Running a
// single worker serializes ingestion, so two jobs for the same document can
// never interleave their delete-then-insert sequences.
type IngestWorker struct {
	jobRepo  IngestJobRepository
	docs     DocumentFetcher
	store    service.ObjectStore
	ingestor DocumentIngestor
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(jobRepo IngestJobRepository, docs DocumentFetcher, store service.ObjectStore, ingestor DocumentIngestor) *IngestWorker {
	return &IngestWorker{
		jobRepo:  jobRepo,
		docs:     docs,
		store:    store,
		ingestor: ingestor,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.jobRepo.ClaimPending(ctx, 100)
	if err != nil {
		return fmt.Errorf("failed to claim pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingest jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestWorker) processJob(ctx context.Context, job *domain.IngestJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	if err := w.ingestDocument(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

func (w *IngestWorker) ingestDocument(ctx context.Context, documentID string) error {
	doc, err := w.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	body, _, err := w.store.Get(ctx, doc.StorageKey)
	if err != nil {
		return fmt.Errorf("failed to fetch stored file: %w", err)
	}
	defer body.Close()

	// The PDF parser needs random access; stored documents are bounded by
	// the upload size limit, so buffering in memory is fine.
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read stored file: %w", err)
	}

	metadata := map[string]string{
		domain.MetaOriginalFilename: doc.OriginalFilename,
	}
	if doc.Title != "" {
		metadata[domain.MetaTitle] = doc.Title
	}
	if doc.Category != "" {
		metadata[domain.MetaCategory] = doc.Category
	}

	return w.ingestor.Ingest(ctx, service.IngestInput{
		DocumentID: documentID,
		Source:     bytes.NewReader(data),
		Size:       int64(len(data)),
		SourceFile: doc.OriginalFilename,
		Metadata:   metadata,
	})
}

// handleJobFailure handles a failed job with retry logic
func (w *IngestWorker) handleJobFailure(ctx context.Context, job *domain.IngestJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.jobRepo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.IngestJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
