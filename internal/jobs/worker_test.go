package jobs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/service"
)

// MockJobProcessor is a mock implementation of JobProcessor
type MockJobProcessor struct {
	mock.Mock
}

func (m *MockJobProcessor) ProcessJobs(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIngestJobRepository is a mock implementation of IngestJobRepository
type MockIngestJobRepository struct {
	mock.Mock
}

func (m *MockIngestJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.IngestJob, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.IngestJob), args.Error(1)
}

func (m *MockIngestJobRepository) UpdateStatus(ctx context.Context, id string, status domain.IngestJobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockIngestJobRepository) IncrementRetries(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockDocumentFetcher is a mock implementation of DocumentFetcher
type MockDocumentFetcher struct {
	mock.Mock
}

func (m *MockDocumentFetcher) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

// MockStore is a mock implementation of service.ObjectStore
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, r, size, contentType)
	return args.Error(0)
}

func (m *MockStore) Get(ctx context.Context, key string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.Error(2)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockIngestor is a mock implementation of DocumentIngestor
type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context, input service.IngestInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockJobProcessor)
	mockProcessor.On("ProcessJobs", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "ProcessJobs", mock.Anything)
}

func storedDocument() *domain.Document {
	return &domain.Document{
		ID:               "doc-1",
		OriginalFilename: "handbook.pdf",
		StorageKey:       "doc-1/handbook.pdf",
		Title:            "Student Handbook",
		Category:         "policies",
		Status:           domain.DocumentStatusUnprocessed,
	}
}

func TestIngestWorker_NoPendingJobs(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockDocs := new(MockDocumentFetcher)
	mockStore := new(MockStore)
	mockIngestor := new(MockIngestor)

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{}, nil)

	worker := NewIngestWorker(mockRepo, mockDocs, mockStore, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngestor.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestIngestWorker_Success(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockDocs := new(MockDocumentFetcher)
	mockStore := new(MockStore)
	mockIngestor := new(MockIngestor)

	job := &domain.IngestJob{ID: "job-1", DocumentID: "doc-1", Status: domain.IngestJobStatusProcessing}
	content := []byte("%PDF-1.4 fake")

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockDocs.On("GetByID", mock.Anything, "doc-1").Return(storedDocument(), nil)
	mockStore.On("Get", mock.Anything, "doc-1/handbook.pdf").
		Return(io.NopCloser(bytes.NewReader(content)), int64(len(content)), nil)
	mockIngestor.On("Ingest", mock.Anything, mock.MatchedBy(func(input service.IngestInput) bool {
		return input.DocumentID == "doc-1" &&
			input.Size == int64(len(content)) &&
			input.SourceFile == "handbook.pdf" &&
			input.Metadata[domain.MetaTitle] == "Student Handbook" &&
			input.Metadata[domain.MetaCategory] == "policies"
	})).Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusCompleted, "").Return(nil)

	worker := NewIngestWorker(mockRepo, mockDocs, mockStore, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockIngestor.AssertExpectations(t)
}

func TestIngestWorker_FailureWithRetry(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockDocs := new(MockDocumentFetcher)
	mockStore := new(MockStore)
	mockIngestor := new(MockIngestor)

	job := &domain.IngestJob{ID: "job-1", DocumentID: "doc-1", Retries: 0}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockDocs.On("GetByID", mock.Anything, "doc-1").Return(storedDocument(), nil)
	mockStore.On("Get", mock.Anything, "doc-1/handbook.pdf").
		Return(io.NopCloser(bytes.NewReader([]byte("x"))), int64(1), nil)
	mockIngestor.On("Ingest", mock.Anything, mock.Anything).Return(errors.New("extraction failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusPending, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIngestWorker(mockRepo, mockDocs, mockStore, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestIngestWorker_MaxRetriesExceeded(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockDocs := new(MockDocumentFetcher)
	mockStore := new(MockStore)
	mockIngestor := new(MockIngestor)

	job := &domain.IngestJob{ID: "job-1", DocumentID: "doc-1", Retries: 2}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockDocs.On("GetByID", mock.Anything, "doc-1").Return(storedDocument(), nil)
	mockStore.On("Get", mock.Anything, "doc-1/handbook.pdf").
		Return(io.NopCloser(bytes.NewReader([]byte("x"))), int64(1), nil)
	mockIngestor.On("Ingest", mock.Anything, mock.Anything).Return(errors.New("extraction failed"))
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusFailed, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	worker := NewIngestWorker(mockRepo, mockDocs, mockStore, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestIngestWorker_MissingDocumentFails(t *testing.T) {
	mockRepo := new(MockIngestJobRepository)
	mockDocs := new(MockDocumentFetcher)
	mockStore := new(MockStore)
	mockIngestor := new(MockIngestor)

	job := &domain.IngestJob{ID: "job-1", DocumentID: "gone", Retries: 2}

	mockRepo.On("ClaimPending", mock.Anything, 100).Return([]*domain.IngestJob{job}, nil)
	mockDocs.On("GetByID", mock.Anything, "gone").Return(nil, domain.ErrDocumentNotFound)
	mockRepo.On("IncrementRetries", mock.Anything, "job-1").Return(nil)
	mockRepo.On("UpdateStatus", mock.Anything, "job-1", domain.IngestJobStatusFailed, mock.Anything).Return(nil)

	worker := NewIngestWorker(mockRepo, mockDocs, mockStore, mockIngestor)
	err := worker.ProcessJobs(context.Background())

	assert.NoError(t, err)
	mockRepo.AssertExpectations(t)
	mockStore.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
