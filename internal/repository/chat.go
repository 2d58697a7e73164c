package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/univera/campuschat/internal/domain"
)

type ChatRepository struct {
	db dbtx
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: pool}
}

func (r *ChatRepository) CreateSession(ctx context.Context, s *domain.ChatSession) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_sessions (id, session_id, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.SessionID, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	return err
}

func (r *ChatRepository) GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error) {
	var s domain.ChatSession
	err := r.db.QueryRow(ctx,
		`SELECT id, session_id, is_active, created_at, updated_at
		 FROM chat_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&s.ID, &s.SessionID, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

// TouchSession bumps the session's updated_at so active conversations sort
// first in listings.
func (r *ChatRepository) TouchSession(ctx context.Context, sessionID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE chat_sessions SET updated_at = $1 WHERE session_id = $2`,
		time.Now().UTC(), sessionID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *ChatRepository) CreateMessage(ctx context.Context, m *domain.ChatMessage) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO chat_messages (id, session_id, message_type, content, source_documents, confidence, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.SessionID, m.Type, m.Content, m.SourceDocuments, m.Confidence, m.CreatedAt,
	)
	return err
}

// ListMessages returns the session's transcript in chronological order.
// A limit of zero returns the full transcript.
func (r *ChatRepository) ListMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	query := `SELECT id, session_id, message_type, content, source_documents, confidence, created_at
		 FROM chat_messages WHERE session_id = $1 ORDER BY created_at ASC, id ASC`
	args := []any{sessionID}

	if limit > 0 {
		// Keep the newest messages when limiting, still oldest first.
		query = `SELECT id, session_id, message_type, content, source_documents, confidence, created_at
			 FROM (
				 SELECT id, session_id, message_type, content, source_documents, confidence, created_at
				 FROM chat_messages WHERE session_id = $1
				 ORDER BY created_at DESC, id DESC LIMIT $2
			 ) recent
			 ORDER BY created_at ASC, id ASC`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Type, &m.Content, &m.SourceDocuments, &m.Confidence, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
