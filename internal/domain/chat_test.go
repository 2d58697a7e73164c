package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChatMessage(t *testing.T) {
	valid := func() *ChatMessage {
		return &ChatMessage{
			ID:        "msg-1",
			SessionID: "sess-1",
			Type:      MessageTypeUser,
			Content:   "What are the housing options?",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*ChatMessage)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid user message",
			mutate:  func(m *ChatMessage) {},
			wantErr: false,
		},
		{
			name: "valid assistant message with confidence",
			mutate: func(m *ChatMessage) {
				m.Type = MessageTypeAssistant
				m.Confidence = 0.82
				m.SourceDocuments = []string{"On-campus housing is available..."}
			},
			wantErr: false,
		},
		{
			name:    "missing ID",
			mutate:  func(m *ChatMessage) { m.ID = "" },
			wantErr: true,
			errMsg:  "ID is required",
		},
		{
			name:    "missing session ID",
			mutate:  func(m *ChatMessage) { m.SessionID = "" },
			wantErr: true,
			errMsg:  "session ID is required",
		},
		{
			name:    "empty content",
			mutate:  func(m *ChatMessage) { m.Content = "" },
			wantErr: true,
			errMsg:  "content is required",
		},
		{
			name:    "invalid type",
			mutate:  func(m *ChatMessage) { m.Type = "system" },
			wantErr: true,
			errMsg:  "type is invalid",
		},
		{
			name:    "confidence above range",
			mutate:  func(m *ChatMessage) { m.Confidence = 1.2 },
			wantErr: true,
			errMsg:  "confidence must be within",
		},
		{
			name:    "confidence below range",
			mutate:  func(m *ChatMessage) { m.Confidence = -0.1 },
			wantErr: true,
			errMsg:  "confidence must be within",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := valid()
			tt.mutate(msg)
			err := ValidateChatMessage(msg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChatMessageNil(t *testing.T) {
	err := ValidateChatMessage(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be nil")
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := assert.AnError
	err := NewDomainErrorWithCause(ErrCodeIndexUnavailable, "vector index unavailable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "INDEX_UNAVAILABLE")
}
