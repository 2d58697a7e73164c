package domain

import "fmt"

// Metadata keys attached to every indexed chunk. Exact-match filters against
// the index use the same keys.
const (
	MetaDocumentID       = "document_id"
	MetaChunkIndex       = "chunk_index"
	MetaSourceFile       = "source_file"
	MetaTitle            = "title"
	MetaCategory         = "category"
	MetaOriginalFilename = "original_filename"
)

// ChunkID builds the natural key for a chunk inside the vector index.
// Uniqueness of the id makes re-insertion of the same document+index an
// overwrite rather than a duplicate.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// EmbeddingRecord is the unit stored in the vector index: the chunk text, its
// embedding and the metadata the retrieval layer filters and attributes by.
type EmbeddingRecord struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// IndexMatch is one raw nearest-neighbour hit, nearest first. Distance is the
// index's native cosine distance; the retrieval layer derives similarity from
// it.
type IndexMatch struct {
	Text     string
	Metadata map[string]string
	Distance float64
}

// RetrievalResult is a ranked context snippet handed to the chat layer.
// Similarity is 1 - distance, which only carries meaning when the index
// adapter reports a bounded, cosine-like distance.
type RetrievalResult struct {
	Text       string
	Metadata   map[string]string
	Similarity float64
}

// IndexStats describes the current contents of the vector index.
type IndexStats struct {
	TotalChunks int64
}
