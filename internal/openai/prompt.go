package openai

import (
	"fmt"
	"strings"
)

const ragSystemPrompt = `You are a helpful university assistant chatbot. Use the provided context documents to answer questions about the university.
Always be accurate and helpful. If you cannot find the answer in the provided context, say so clearly.
Maintain a friendly and professional tone.`

// Turn is one prior conversation entry included in the prompt.
type Turn struct {
	Role    string
	Content string
}

// maxHistoryTurns bounds how much transcript is replayed into the prompt.
const maxHistoryTurns = 5

// BuildRAGPrompt assembles the chat prompt from the system instructions,
// recent conversation history and the retrieved context documents.
func BuildRAGPrompt(query string, contextDocs []string, history []Turn) string {
	var b strings.Builder
	b.WriteString(ragSystemPrompt)

	if len(history) > 0 {
		if len(history) > maxHistoryTurns {
			history = history[len(history)-maxHistoryTurns:]
		}
		b.WriteString("\n\nPrevious conversation:\n")
		for _, turn := range history {
			role := turn.Role
			if role != "" {
				role = strings.ToUpper(role[:1]) + role[1:]
			}
			fmt.Fprintf(&b, "%s: %s\n", role, turn.Content)
		}
	}

	b.WriteString("\n\nRelevant University Information:\n")
	for i, doc := range contextDocs {
		fmt.Fprintf(&b, "\n[Document %d]:\n%s\n", i+1, doc)
	}

	fmt.Fprintf(&b, "\nCurrent Question: %s\n\nResponse:", query)
	return b.String()
}
