package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/univera/campuschat/internal/api"
	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/service"
)

type ChatService interface {
	StartSession(ctx context.Context) (*domain.ChatSession, error)
	SendMessage(ctx context.Context, input service.SendMessageInput) (*service.SendMessageOutput, error)
	GetHistory(ctx context.Context, sessionID string) (*service.ChatHistoryOutput, error)
}

type ChatHandler struct {
	svc            ChatService
	welcomeMessage string
}

func NewChatHandler(svc ChatService, welcomeMessage string) *ChatHandler {
	return &ChatHandler{svc: svc, welcomeMessage: welcomeMessage}
}

type SessionResponse struct {
	SessionID      string `json:"session_id"`
	WelcomeMessage string `json:"welcome_message,omitempty"`
	CreatedAt      string `json:"created_at"`
}

func (h *ChatHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.StartSession(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, SessionResponse{
		SessionID:      session.SessionID,
		WelcomeMessage: h.welcomeMessage,
		CreatedAt:      session.CreatedAt.UTC().Format(time.RFC3339),
	})
}

type SendMessageRequest struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

type MessageResponse struct {
	Response        string   `json:"response"`
	SourceDocuments []string `json:"source_documents,omitempty"`
	Confidence      float64  `json:"confidence"`
	SessionID       string   `json:"session_id"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		api.Error(w, http.StatusBadRequest, "message is required")
		return
	}

	out, err := h.svc.SendMessage(r.Context(), service.SendMessageInput{
		SessionID: sessionID,
		Content:   req.Message,
		Category:  req.Category,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, MessageResponse{
		Response:        out.Answer.Content,
		SourceDocuments: out.SourceDocuments,
		Confidence:      out.Confidence,
		SessionID:       sessionID,
	})
}

type HistoryMessage struct {
	Type            string   `json:"type"`
	Content         string   `json:"content"`
	SourceDocuments []string `json:"source_documents,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Messages  []HistoryMessage `json:"messages"`
}

func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, "session id is required")
		return
	}

	out, err := h.svc.GetHistory(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	messages := make([]HistoryMessage, len(out.Messages))
	for i, m := range out.Messages {
		messages[i] = HistoryMessage{
			Type:            string(m.Type),
			Content:         m.Content,
			SourceDocuments: m.SourceDocuments,
			Confidence:      m.Confidence,
			CreatedAt:       m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, HistoryResponse{
		SessionID: out.Session.SessionID,
		Messages:  messages,
	})
}
