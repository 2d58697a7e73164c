package service

import (
	"context"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/telemetry"
)

// TextExtractor pulls per-page text out of a source document.
type TextExtractor interface {
	ExtractPages(r io.ReaderAt, size int64) ([]string, error)
}

// EmbeddingClient defines the interface for generating embeddings. The same
// client instance serves ingestion and query time; the model behind it is
// pinned for the lifetime of the index.
type EmbeddingClient interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
}

// VectorIndex is the storage contract for chunk embeddings. Insert is an
// upsert keyed by record id, Query returns matches nearest-first by the
// backend's cosine distance, DeleteWhere with zero matches is success and
// an empty index queries to an empty result, not an error.
type VectorIndex interface {
	Insert(ctx context.Context, records []domain.EmbeddingRecord) error
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]domain.IndexMatch, error)
	DeleteWhere(ctx context.Context, filter map[string]string) error
	Count(ctx context.Context) (int64, error)
}

// DocumentRegistry is the relational record of per-document processing state,
// owned by the caller's storage layer and updated by the pipeline.
type DocumentRegistry interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkProcessed(ctx context.Context, id string, chunkCount int) error
	MarkFailed(ctx context.Context, id string) error
}

// RetrievalService orchestrates extraction, chunking, embedding and the
// vector index for ingestion, and embedding plus similarity search for
// query-time retrieval. Constructed once at startup and passed to handlers;
// it holds no hidden global state.
type RetrievalService struct {
	extractor TextExtractor
	embedder  EmbeddingClient
	index     VectorIndex
	registry  DocumentRegistry
	chunkCfg  ChunkConfig
	topK      int
}

func NewRetrievalService(
	extractor TextExtractor,
	embedder EmbeddingClient,
	index VectorIndex,
	registry DocumentRegistry,
	chunkCfg ChunkConfig,
	topK int,
) (*RetrievalService, error) {
	if err := chunkCfg.Validate(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{
		extractor: extractor,
		embedder:  embedder,
		index:     index,
		registry:  registry,
		chunkCfg:  chunkCfg,
		topK:      topK,
	}, nil
}

// IngestInput carries one document through the ingestion pipeline.
type IngestInput struct {
	DocumentID string
	Source     io.ReaderAt
	Size       int64
	SourceFile string
	Metadata   map[string]string
}

// Ingest extracts, chunks, embeds and indexes one document, then marks it
// processed in the registry. Any existing chunks for the document are deleted
// first, so a successful run fully supersedes earlier ingestions. On failure
// the document is marked failed and any chunks inserted by this run are
// removed again, so no partial chunk set is ever queryable.
func (s *RetrievalService) Ingest(ctx context.Context, input IngestInput) error {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Ingest", telemetry.SpanAttributes{
		DocumentID: input.DocumentID,
		Operation:  "ingest",
	})
	defer span.End()

	if err := s.registry.MarkProcessing(ctx, input.DocumentID); err != nil {
		return err
	}

	err := s.ingest(ctx, input)
	if err != nil {
		span.SetError(err)
		if failErr := s.registry.MarkFailed(ctx, input.DocumentID); failErr != nil {
			log.Printf("failed to mark document %s as failed: %v", input.DocumentID, failErr)
		}
		return err
	}

	return nil
}

func (s *RetrievalService) ingest(ctx context.Context, input IngestInput) error {
	pages, err := s.extractor.ExtractPages(input.Source, input.Size)
	if err != nil {
		return err
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return domain.ErrEmptyDocumentText
	}

	chunks := ChunkText(text, s.chunkCfg)
	if len(chunks) == 0 {
		return domain.ErrEmptyDocumentText
	}

	vectors, err := s.embedder.EmbedTexts(ctx, chunks)
	if err != nil {
		return domain.NewEmbeddingError(err)
	}

	records := make([]domain.EmbeddingRecord, len(chunks))
	for i, chunk := range chunks {
		metadata := map[string]string{
			domain.MetaDocumentID: input.DocumentID,
			domain.MetaChunkIndex: strconv.Itoa(i),
			domain.MetaSourceFile: input.SourceFile,
		}
		for k, v := range input.Metadata {
			metadata[k] = v
		}

		records[i] = domain.EmbeddingRecord{
			ID:       domain.ChunkID(input.DocumentID, i),
			Vector:   vectors[i],
			Text:     chunk,
			Metadata: metadata,
		}
	}

	docFilter := map[string]string{domain.MetaDocumentID: input.DocumentID}

	// Supersede any chunk set from an earlier ingestion before inserting the
	// new one; ids alone would only overwrite overlapping indexes.
	if err := s.index.DeleteWhere(ctx, docFilter); err != nil {
		return err
	}

	if err := s.index.Insert(ctx, records); err != nil {
		s.compensate(ctx, input.DocumentID, docFilter)
		return err
	}

	if err := s.registry.MarkProcessed(ctx, input.DocumentID, len(records)); err != nil {
		s.compensate(ctx, input.DocumentID, docFilter)
		return err
	}

	log.Printf("processed document %s with %d chunks", input.DocumentID, len(records))
	return nil
}

// compensate removes chunks left behind by a failed ingestion so the index
// never holds entries for a document the registry does not report processed.
func (s *RetrievalService) compensate(ctx context.Context, documentID string, filter map[string]string) {
	if err := s.index.DeleteWhere(ctx, filter); err != nil {
		log.Printf("failed to clean up chunks for document %s after ingestion failure: %v", documentID, err)
	}
}

// Search embeds the query and returns ranked retrieval results. Similarity is
// 1 - distance and assumes the index adapter reports a bounded cosine-like
// distance. An empty index yields an empty result.
func (s *RetrievalService) Search(ctx context.Context, query string, k int, filter map[string]string) ([]domain.RetrievalResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Search", telemetry.SpanAttributes{
		Operation: "search",
	})
	defer span.End()

	if k <= 0 {
		k = s.topK
	}

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, domain.NewEmbeddingError(err)
	}

	matches, err := s.index.Query(ctx, vector, k, filter)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RetrievalResult, len(matches))
	for i, m := range matches {
		results[i] = domain.RetrievalResult{
			Text:       m.Text,
			Metadata:   m.Metadata,
			Similarity: 1 - m.Distance,
		}
	}
	return results, nil
}

// RetrieveContext returns the text of the top-k chunks for a query, rank
// order preserved, optionally restricted to one category. The result feeds
// the language-model prompt assembly verbatim.
func (s *RetrievalService) RetrieveContext(ctx context.Context, query string, k int, category string) ([]string, error) {
	var filter map[string]string
	if category != "" {
		filter = map[string]string{domain.MetaCategory: category}
	}

	results, err := s.Search(ctx, query, k, filter)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(results))
	for i, r := range results {
		texts[i] = r.Text
	}
	return texts, nil
}

// Remove deletes every index entry belonging to the document. Removing a
// document with no stored chunks is success.
func (s *RetrievalService) Remove(ctx context.Context, documentID string) error {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Remove", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "remove",
	})
	defer span.End()

	return s.index.DeleteWhere(ctx, map[string]string{domain.MetaDocumentID: documentID})
}

// Stats reports the current size of the vector index.
func (s *RetrievalService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.IndexStats{TotalChunks: count}, nil
}
