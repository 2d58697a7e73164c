package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/univera/campuschat/internal/domain"
)

// ChunkIndexRepository stores embedded document chunks in a pgvector table
// and answers nearest-neighbour queries over them. Distances are cosine
// distances as reported by the <=> operator.
type ChunkIndexRepository struct {
	pool *pgxpool.Pool
}

func NewChunkIndexRepository(pool *pgxpool.Pool) *ChunkIndexRepository {
	return &ChunkIndexRepository{pool: pool}
}

// Insert upserts embedding records by chunk id.
func (r *ChunkIndexRepository) Insert(ctx context.Context, records []domain.EmbeddingRecord) error {
	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode chunk metadata: %w", err)
		}
		_, err = r.pool.Exec(ctx,
			`INSERT INTO document_chunks (id, content, embedding, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET content = EXCLUDED.content,
			     embedding = EXCLUDED.embedding,
			     metadata = EXCLUDED.metadata`,
			rec.ID, rec.Text, pgvector.NewVector(rec.Vector), metadata, time.Now().UTC(),
		)
		if err != nil {
			return domain.NewIndexUnavailableError(err)
		}
	}
	return nil
}

// Query returns the k nearest chunks to the given vector, nearest first.
// Ties break on chunk id so identical queries always rank identically. The
// filter restricts results to chunks whose metadata contains every given
// key/value pair.
func (r *ChunkIndexRepository) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]domain.IndexMatch, error) {
	if k <= 0 {
		k = 5
	}

	vec := pgvector.NewVector(vector)

	query := `SELECT content, metadata, embedding <=> $1 AS distance
		 FROM document_chunks`
	args := []any{vec}

	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode metadata filter: %w", err)
		}
		query += ` WHERE metadata @> $2::jsonb`
		args = append(args, filterJSON)
	}

	query += fmt.Sprintf(` ORDER BY embedding <=> $1, id LIMIT %d`, k)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewIndexUnavailableError(err)
	}
	defer rows.Close()

	var matches []domain.IndexMatch
	for rows.Next() {
		var m domain.IndexMatch
		if err := rows.Scan(&m.Text, &m.Metadata, &m.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteWhere removes every chunk whose metadata contains the given
// key/value pairs. Matching nothing is success.
func (r *ChunkIndexRepository) DeleteWhere(ctx context.Context, filter map[string]string) error {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return fmt.Errorf("failed to encode metadata filter: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`DELETE FROM document_chunks WHERE metadata @> $1::jsonb`,
		filterJSON,
	)
	if err != nil {
		return domain.NewIndexUnavailableError(err)
	}
	return nil
}

// Count reports the total number of stored chunks.
func (r *ChunkIndexRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	if err != nil {
		return 0, domain.NewIndexUnavailableError(err)
	}
	return count, nil
}
