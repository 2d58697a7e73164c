package service

import (
	"context"
	"fmt"
	"time"

	"github.com/univera/campuschat/internal/domain"
	"github.com/univera/campuschat/internal/openai"
	"github.com/univera/campuschat/internal/telemetry"
)

// ChatRepositoryInterface defines the repository interface for chat persistence
type ChatRepositoryInterface interface {
	CreateSession(ctx context.Context, s *domain.ChatSession) error
	GetSession(ctx context.Context, sessionID string) (*domain.ChatSession, error)
	TouchSession(ctx context.Context, sessionID string) error
	CreateMessage(ctx context.Context, m *domain.ChatMessage) error
	ListMessages(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
}

// ContextRetriever supplies ranked context snippets for a query.
type ContextRetriever interface {
	Search(ctx context.Context, query string, k int, filter map[string]string) ([]domain.RetrievalResult, error)
}

// AnswerGenerator produces a completion for an assembled prompt.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

const fallbackAnswer = "I couldn't find information about that in the university documents. " +
	"Please try rephrasing your question or contact the university directly."

// historyWindow is how many recent transcript entries feed the prompt.
const historyWindow = 10

// ChatService runs retrieval-grounded conversations. Each answer is
// generated from the chunks nearest the question plus a window of recent
// transcript, and both sides of the exchange are persisted.
type ChatService struct {
	chatRepo  ChatRepositoryInterface
	retriever ContextRetriever
	generator AnswerGenerator
	uuidGen   UUIDGenerator
	topK      int
}

func NewChatService(
	chatRepo ChatRepositoryInterface,
	retriever ContextRetriever,
	generator AnswerGenerator,
	topK int,
) *ChatService {
	if topK <= 0 {
		topK = 5
	}
	return &ChatService{
		chatRepo:  chatRepo,
		retriever: retriever,
		generator: generator,
		uuidGen:   &DefaultUUIDGenerator{},
		topK:      topK,
	}
}

func NewChatServiceWithUUIDGen(
	chatRepo ChatRepositoryInterface,
	retriever ContextRetriever,
	generator AnswerGenerator,
	topK int,
	uuidGen UUIDGenerator,
) *ChatService {
	s := NewChatService(chatRepo, retriever, generator, topK)
	s.uuidGen = uuidGen
	return s
}

// StartSession creates a new conversation and returns it.
func (s *ChatService) StartSession(ctx context.Context) (*domain.ChatSession, error) {
	now := time.Now().UTC()
	session := &domain.ChatSession{
		ID:        s.uuidGen.NewString(),
		SessionID: s.uuidGen.NewString(),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.chatRepo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create chat session: %w", err)
	}
	return session, nil
}

type SendMessageInput struct {
	SessionID string
	Content   string
	Category  string
}

type SendMessageOutput struct {
	Answer          *domain.ChatMessage
	SourceDocuments []string
	Confidence      float64
}

// SendMessage records the user turn, retrieves grounding context, generates
// the assistant reply and records it. Confidence is the top retrieval
// similarity clamped to [0, 1]; with no matching context it is zero and the
// reply is a fixed fallback.
func (s *ChatService) SendMessage(ctx context.Context, input SendMessageInput) (*SendMessageOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChatService.SendMessage", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Operation: "send_message",
	})
	defer span.End()

	if input.Content == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message content is required")
	}

	session, err := s.chatRepo.GetSession(ctx, input.SessionID)
	if err != nil {
		return nil, err
	}

	history, err := s.chatRepo.ListMessages(ctx, session.SessionID, historyWindow)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	userMsg := &domain.ChatMessage{
		ID:        s.uuidGen.NewString(),
		SessionID: session.SessionID,
		Type:      domain.MessageTypeUser,
		Content:   input.Content,
		CreatedAt: now,
	}
	if err := s.chatRepo.CreateMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("failed to record user message: %w", err)
	}

	var filter map[string]string
	if input.Category != "" {
		filter = map[string]string{domain.MetaCategory: input.Category}
	}

	results, err := s.retriever.Search(ctx, input.Content, s.topK, filter)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	answer, sources, confidence, err := s.generate(ctx, input.Content, results, history)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	assistantMsg := &domain.ChatMessage{
		ID:              s.uuidGen.NewString(),
		SessionID:       session.SessionID,
		Type:            domain.MessageTypeAssistant,
		Content:         answer,
		SourceDocuments: sources,
		Confidence:      confidence,
		CreatedAt:       time.Now().UTC(),
	}
	if err := domain.ValidateChatMessage(assistantMsg); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "invalid assistant message", err)
	}
	if err := s.chatRepo.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to record assistant message: %w", err)
	}

	if err := s.chatRepo.TouchSession(ctx, session.SessionID); err != nil {
		return nil, err
	}

	return &SendMessageOutput{
		Answer:          assistantMsg,
		SourceDocuments: sources,
		Confidence:      confidence,
	}, nil
}

func (s *ChatService) generate(ctx context.Context, question string, results []domain.RetrievalResult, history []*domain.ChatMessage) (string, []string, float64, error) {
	if len(results) == 0 {
		return fallbackAnswer, nil, 0, nil
	}

	contexts := make([]string, len(results))
	sourceSet := make(map[string]struct{})
	var sources []string
	for i, r := range results {
		contexts[i] = r.Text
		src := r.Metadata[domain.MetaSourceFile]
		if src == "" {
			src = r.Metadata[domain.MetaDocumentID]
		}
		if _, seen := sourceSet[src]; src != "" && !seen {
			sourceSet[src] = struct{}{}
			sources = append(sources, src)
		}
	}

	turns := make([]openai.Turn, len(history))
	for i, m := range history {
		turns[i] = openai.Turn{Role: string(m.Type), Content: m.Content}
	}

	prompt := openai.BuildRAGPrompt(question, contexts, turns)
	answer, err := s.generator.GenerateAnswer(ctx, prompt)
	if err != nil {
		return "", nil, 0, err
	}

	confidence := results[0].Similarity
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return answer, sources, confidence, nil
}

type ChatHistoryOutput struct {
	Session  *domain.ChatSession
	Messages []*domain.ChatMessage
}

// GetHistory returns the full transcript of a session, oldest first.
func (s *ChatService) GetHistory(ctx context.Context, sessionID string) (*ChatHistoryOutput, error) {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := s.chatRepo.ListMessages(ctx, sessionID, 0)
	if err != nil {
		return nil, err
	}

	return &ChatHistoryOutput{
		Session:  session,
		Messages: messages,
	}, nil
}
