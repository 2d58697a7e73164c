package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, input service.UploadDocumentInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListDocumentsOutput), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func (m *MockDocumentService) Reprocess(ctx context.Context, documentID string) (*domain.IngestJob, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IngestJob), args.Error(1)
}

func (m *MockDocumentService) Stats(ctx context.Context) (*service.DocumentStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentStats), args.Error(1)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func multipartUpload(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestDocumentUploadHandler(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	doc := &domain.Document{
		ID:               "doc-1",
		OriginalFilename: "handbook.pdf",
		Title:            "handbook",
		Status:           domain.DocumentStatusUnprocessed,
	}
	svc.On("Upload", mock.Anything, mock.MatchedBy(func(input service.UploadDocumentInput) bool {
		return input.Filename == "handbook.pdf" && input.Category == "policies"
	})).Return(doc, nil)

	body, contentType := multipartUpload(t, "handbook.pdf", "%PDF-1.4", map[string]string{"category": "policies"})
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	svc.AssertExpectations(t)
}

func TestDocumentUploadHandler_MissingFile(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("title", "no file"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestDocumentUploadHandler_UnsupportedType(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	svc.On("Upload", mock.Anything, mock.Anything).Return(nil, domain.ErrUnsupportedFileType)

	body, contentType := multipartUpload(t, "notes.txt", "plain text", nil)
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	handler.Upload(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDocumentGetHandler(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	doc := &domain.Document{ID: "doc-1", OriginalFilename: "handbook.pdf", Status: domain.DocumentStatusProcessed, ChunkCount: 3}
	svc.On("Get", mock.Anything, "doc-1").Return(doc, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil), "id", "doc-1")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data DocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "doc-1", body.Data.ID)
	assert.Equal(t, 3, body.Data.ChunkCount)
}

func TestDocumentGetHandler_NotFound(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	svc.On("Get", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/documents/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDocumentListHandler(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	out := &service.ListDocumentsOutput{
		Items:   []*domain.Document{{ID: "doc-1"}, {ID: "doc-2"}},
		Cursor:  "next-token",
		HasMore: true,
	}
	svc.On("List", mock.Anything, service.ListDocumentsInput{Category: "policies", Limit: 2}).Return(out, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents?category=policies&limit=2", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data ListDocumentsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data.Items, 2)
	assert.Equal(t, "next-token", body.Data.Cursor)
	assert.True(t, body.Data.HasMore)
}

func TestDocumentListHandler_InvalidLimit(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil)
	rec := httptest.NewRecorder()

	handler.List(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestDocumentDeleteHandler(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	svc.On("Delete", mock.Anything, "doc-1").Return(nil)

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/documents/doc-1", nil), "id", "doc-1")
	rec := httptest.NewRecorder()

	handler.Delete(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDocumentReprocessHandler(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	job := &domain.IngestJob{ID: "job-1", DocumentID: "doc-1", Status: domain.IngestJobStatusPending}
	svc.On("Reprocess", mock.Anything, "doc-1").Return(job, nil)

	req := withURLParam(httptest.NewRequest(http.MethodPost, "/documents/doc-1/reprocess", nil), "id", "doc-1")
	rec := httptest.NewRecorder()

	handler.Reprocess(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestDocumentStatsHandler(t *testing.T) {
	svc := new(MockDocumentService)
	handler := NewDocumentHandler(svc, 16<<20)

	svc.On("Stats", mock.Anything).Return(&service.DocumentStats{
		TotalDocuments: 5,
		Processed:      4,
		Failed:         1,
		TotalChunks:    37,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(5), body.Data.TotalDocuments)
	assert.Equal(t, int64(37), body.Data.TotalChunks)
}
