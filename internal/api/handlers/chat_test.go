package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/service"
)

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) StartSession(ctx context.Context) (*domain.ChatSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatSession), args.Error(1)
}

func (m *MockChatService) SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendMessageOutput), args.Error(1)
}

func (m *MockChatService) GetHistory(ctx context.Context, sessionID string) (*service.ChatHistoryOutput, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ChatHistoryOutput), args.Error(1)
}

func TestStartSessionHandler(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc, "Welcome to campus chat!")

	session := &domain.ChatSession{SessionID: "s-1", IsActive: true, CreatedAt: time.Now().UTC()}
	svc.On("StartSession", mock.Anything).Return(session, nil)

	req := httptest.NewRequest(http.MethodPost, "/chat/session", nil)
	rec := httptest.NewRecorder()

	handler.StartSession(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Data SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s-1", body.Data.SessionID)
	assert.Equal(t, "Welcome to campus chat!", body.Data.WelcomeMessage)
}

func TestSendMessageHandler(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc, "")

	out := &service.SendMessageOutput{
		Answer:          &domain.ChatMessage{Content: "The library opens at 8am."},
		SourceDocuments: []string{"library.pdf"},
		Confidence:      0.77,
	}
	svc.On("SendMessage", mock.Anything, service.SendMessageInput{
		SessionID: "s-1",
		Content:   "when does the library open",
	}).Return(out, nil)

	payload, _ := json.Marshal(SendMessageRequest{Message: "when does the library open"})
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/chat/session/s-1/message", bytes.NewReader(payload)), "id", "s-1")
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data MessageResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "The library opens at 8am.", body.Data.Response)
	assert.Equal(t, []string{"library.pdf"}, body.Data.SourceDocuments)
	assert.InDelta(t, 0.77, body.Data.Confidence, 1e-9)
	assert.Equal(t, "s-1", body.Data.SessionID)
}

func TestSendMessageHandler_EmptyMessage(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc, "")

	payload, _ := json.Marshal(SendMessageRequest{Message: ""})
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/chat/session/s-1/message", bytes.NewReader(payload)), "id", "s-1")
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestSendMessageHandler_UnknownSession(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc, "")

	svc.On("SendMessage", mock.Anything, mock.Anything).Return(nil, domain.ErrSessionNotFound)

	payload, _ := json.Marshal(SendMessageRequest{Message: "hello"})
	req := withURLParam(httptest.NewRequest(http.MethodPost, "/chat/session/missing/message", bytes.NewReader(payload)), "id", "missing")
	rec := httptest.NewRecorder()

	handler.SendMessage(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetHistoryHandler(t *testing.T) {
	svc := new(MockChatService)
	handler := NewChatHandler(svc, "")

	out := &service.ChatHistoryOutput{
		Session: &domain.ChatSession{SessionID: "s-1"},
		Messages: []*domain.ChatMessage{
			{Type: domain.MessageTypeUser, Content: "hi", CreatedAt: time.Now().UTC()},
			{Type: domain.MessageTypeAssistant, Content: "hello", Confidence: 0.5, CreatedAt: time.Now().UTC()},
		},
	}
	svc.On("GetHistory", mock.Anything, "s-1").Return(out, nil)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/chat/session/s-1/messages", nil), "id", "s-1")
	rec := httptest.NewRecorder()

	handler.GetHistory(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data HistoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s-1", body.Data.SessionID)
	require.Len(t, body.Data.Messages, 2)
	assert.Equal(t, "user", body.Data.Messages[0].Type)
	assert.Equal(t, "assistant", body.Data.Messages[1].Type)
}
