//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/testutil"
)

func newTestSession() *domain.ChatSession {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ChatSession{
		ID:        uuid.NewString(),
		SessionID: uuid.NewString(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestChatRepository_CreateAndGetSession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession()
	require.NoError(t, repo.CreateSession(ctx, session))

	retrieved, err := repo.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, retrieved.ID)
	assert.Equal(t, session.SessionID, retrieved.SessionID)
	assert.True(t, retrieved.IsActive)
}

func TestChatRepository_GetSession_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	_, err := repo.GetSession(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestChatRepository_TouchSession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession()
	session.UpdatedAt = session.UpdatedAt.Add(-time.Hour)
	require.NoError(t, repo.CreateSession(ctx, session))

	require.NoError(t, repo.TouchSession(ctx, session.SessionID))

	retrieved, err := repo.GetSession(ctx, session.SessionID)
	require.NoError(t, err)
	assert.True(t, retrieved.UpdatedAt.After(session.UpdatedAt))
}

func TestChatRepository_Messages(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	session := newTestSession()
	require.NoError(t, repo.CreateSession(ctx, session))

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 6; i++ {
		msgType := domain.MessageTypeUser
		if i%2 == 1 {
			msgType = domain.MessageTypeAssistant
		}
		msg := &domain.ChatMessage{
			ID:        uuid.NewString(),
			SessionID: session.SessionID,
			Type:      msgType,
			Content:   fmt.Sprintf("message %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if msgType == domain.MessageTypeAssistant {
			msg.SourceDocuments = []string{"handbook.pdf"}
			msg.Confidence = 0.8
		}
		require.NoError(t, repo.CreateMessage(ctx, msg))
	}

	// full transcript, oldest first
	all, err := repo.ListMessages(ctx, session.SessionID, 0)
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, "message 0", all[0].Content)
	assert.Equal(t, "message 5", all[5].Content)
	assert.Equal(t, []string{"handbook.pdf"}, all[1].SourceDocuments)
	assert.Equal(t, 0.8, all[1].Confidence)

	// limited to the newest messages, still oldest first
	recent, err := repo.ListMessages(ctx, session.SessionID, 4)
	require.NoError(t, err)
	require.Len(t, recent, 4)
	assert.Equal(t, "message 2", recent[0].Content)
	assert.Equal(t, "message 5", recent[3].Content)
}

func TestChatRepository_CreateMessage_UnknownSession(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewChatRepository(pool)

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: uuid.NewString(),
		Type:      domain.MessageTypeUser,
		Content:   "hello",
		CreatedAt: time.Now().UTC(),
	}
	assert.Error(t, repo.CreateMessage(ctx, msg))
}
