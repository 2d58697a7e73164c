package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/pagination"
	"github.com/univera/campuschat/internal/service"
)

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO documents
			(id, filename, original_filename, storage_key, file_size, file_type, title, description, category, status, chunk_count, processed_at, uploaded_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		d.ID, d.Filename, d.OriginalFilename, d.StorageKey, d.FileSize, d.FileType,
		d.Title, nullableString(d.Description), nullableString(d.Category),
		d.Status, d.ChunkCount, d.ProcessedAt, d.UploadedAt, d.UpdatedAt,
	)
	return err
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, filename, original_filename, storage_key, file_size, file_type, title, description, category, status, chunk_count, processed_at, uploaded_at, updated_at
		 FROM documents WHERE id = $1`,
		id,
	)
	return scanDocument(row)
}

func (r *DocumentRepository) ListWithCursor(ctx context.Context, category string, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT id, filename, original_filename, storage_key, file_size, file_type, title, description, category, status, chunk_count, processed_at, uploaded_at, updated_at
		 FROM documents`
	var conditions []string
	var args []any

	if category != "" {
		args = append(args, category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if cursor != nil {
		args = append(args, cursor.Timestamp, cursor.LastID)
		conditions = append(conditions, fmt.Sprintf("(uploaded_at, id) < ($%d, $%d)", len(args)-1, len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	args = append(args, limit+1)
	query += fmt.Sprintf(" ORDER BY uploaded_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanDocumentRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UploadedAt)
	}

	return &service.DocumentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.DocumentStatusProcessing, nil, nil)
}

func (r *DocumentRepository) MarkProcessed(ctx context.Context, id string, chunkCount int) error {
	now := time.Now().UTC()
	return r.setStatus(ctx, id, domain.DocumentStatusProcessed, &chunkCount, &now)
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id string) error {
	zero := 0
	return r.setStatus(ctx, id, domain.DocumentStatusFailed, &zero, nil)
}

func (r *DocumentRepository) setStatus(ctx context.Context, id string, status domain.DocumentStatus, chunkCount *int, processedAt *time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE documents
		 SET status = $1,
		     chunk_count = COALESCE($2, chunk_count),
		     processed_at = $3,
		     updated_at = $4
		 WHERE id = $5`,
		status, chunkCount, processedAt, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// CountByStatus returns the number of documents per processing status.
func (r *DocumentRepository) CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM documents GROUP BY status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.DocumentStatus]int64)
	for rows.Next() {
		var status domain.DocumentStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var d domain.Document
	var description, category *string
	err := row.Scan(
		&d.ID, &d.Filename, &d.OriginalFilename, &d.StorageKey, &d.FileSize, &d.FileType,
		&d.Title, &description, &category, &d.Status, &d.ChunkCount, &d.ProcessedAt,
		&d.UploadedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	if description != nil {
		d.Description = *description
	}
	if category != nil {
		d.Category = *category
	}
	return &d, nil
}

func scanDocumentRows(rows pgx.Rows) ([]*domain.Document, error) {
	var results []*domain.Document
	for rows.Next() {
		var d domain.Document
		var description, category *string
		if err := rows.Scan(
			&d.ID, &d.Filename, &d.OriginalFilename, &d.StorageKey, &d.FileSize, &d.FileType,
			&d.Title, &description, &category, &d.Status, &d.ChunkCount, &d.ProcessedAt,
			&d.UploadedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if description != nil {
			d.Description = *description
		}
		if category != nil {
			d.Category = *category
		}
		results = append(results, &d)
	}
	return results, rows.Err()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
