package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/univera/campuschat/internal/api"
	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/service"
)

type DocumentService interface {
	Upload(ctx context.Context, input service.UploadDocumentInput) (*domain.Document, error)
	Get(ctx context.Context, documentID string) (*domain.Document, error)
	List(ctx context.Context, input service.ListDocumentsInput) (*service.ListDocumentsOutput, error)
	Delete(ctx context.Context, documentID string) error
	Reprocess(ctx context.Context, documentID string) (*domain.IngestJob, error)
	Stats(ctx context.Context) (*service.DocumentStats, error)
}

type DocumentHandler struct {
	svc            DocumentService
	maxUploadBytes int64
}

func NewDocumentHandler(svc DocumentService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{svc: svc, maxUploadBytes: maxUploadBytes}
}

type DocumentResponse struct {
	ID               string `json:"id"`
	OriginalFilename string `json:"original_filename"`
	FileSize         int64  `json:"file_size"`
	Title            string `json:"title"`
	Description      string `json:"description,omitempty"`
	Category         string `json:"category,omitempty"`
	Status           string `json:"status"`
	ChunkCount       int    `json:"chunk_count"`
	ProcessedAt      string `json:"processed_at,omitempty"`
	UploadedAt       string `json:"uploaded_at"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	resp := &DocumentResponse{
		ID:               d.ID,
		OriginalFilename: d.OriginalFilename,
		FileSize:         d.FileSize,
		Title:            d.Title,
		Description:      d.Description,
		Category:         d.Category,
		Status:           string(d.Status),
		ChunkCount:       d.ChunkCount,
		UploadedAt:       d.UploadedAt.UTC().Format(time.RFC3339),
	}
	if d.ProcessedAt != nil {
		resp.ProcessedAt = d.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	input := service.UploadDocumentInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
	}

	doc, err := h.svc.Upload(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

type ListDocumentsResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	out, err := h.svc.List(r.Context(), service.ListDocumentsInput{
		Category: r.URL.Query().Get("category"),
		Cursor:   r.URL.Query().Get("cursor"),
		Limit:    limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(out.Items))
	for i, d := range out.Items {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, ListDocumentsResponse{
		Items:   items,
		Cursor:  out.Cursor,
		HasMore: out.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func (h *DocumentHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.Reprocess(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusAccepted, map[string]string{
		"job_id":      job.ID,
		"document_id": job.DocumentID,
		"status":      string(job.Status),
	})
}

type StatsResponse struct {
	TotalDocuments int64 `json:"total_documents"`
	Processed      int64 `json:"processed"`
	Processing     int64 `json:"processing"`
	Unprocessed    int64 `json:"unprocessed"`
	Failed         int64 `json:"failed"`
	TotalChunks    int64 `json:"total_chunks"`
}

func (h *DocumentHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		TotalDocuments: stats.TotalDocuments,
		Processed:      stats.Processed,
		Processing:     stats.Processing,
		Unprocessed:    stats.Unprocessed,
		Failed:         stats.Failed,
		TotalChunks:    stats.TotalChunks,
	})
}
