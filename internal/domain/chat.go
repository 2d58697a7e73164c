package domain

import (
	"fmt"
	"time"
)

// MessageType distinguishes user and assistant turns in a transcript.
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
)

// ChatSession represents one conversation with the assistant.
type ChatSession struct {
	ID        string
	SessionID string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage represents a single transcript entry. Assistant messages carry
// the context snippets that grounded the reply and a confidence score in
// [0, 1] derived from retrieval similarity.
type ChatMessage struct {
	ID              string
	SessionID       string
	Type            MessageType
	Content         string
	SourceDocuments []string
	Confidence      float64
	CreatedAt       time.Time
}

// ValidateChatMessage validates a ChatMessage instance
func ValidateChatMessage(m *ChatMessage) error {
	if m == nil {
		return fmt.Errorf("chat message cannot be nil")
	}

	if m.ID == "" {
		return fmt.Errorf("chat message ID is required")
	}

	if m.SessionID == "" {
		return fmt.Errorf("chat message session ID is required")
	}

	if m.Content == "" {
		return fmt.Errorf("chat message content is required")
	}

	if m.Type != MessageTypeUser && m.Type != MessageTypeAssistant {
		return fmt.Errorf("chat message type is invalid: %s", m.Type)
	}

	if m.Confidence < 0 || m.Confidence > 1 {
		return fmt.Errorf("chat message confidence must be within [0, 1]")
	}

	return nil
}
