package llm

import (
	"fmt"
	"strings"
)

// Params are the agent-derived parameters for one turn.
type Params struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Tools        []string
}

// ContextMessage is one {role, content} record of the request context.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// toolDescriptor declares one tool capability in the primary dialect.
type toolDescriptor struct {
	Type string `json:"type"`
}

// primaryRequest is the primary-dialect body: the whole context is
// serialized into one role-prefixed text blob, and tool capability is
// declared explicitly. Produces the structured-output response shape.
type primaryRequest struct {
	Model string           `json:"model"`
	Tools []toolDescriptor `json:"tools"`
	Input string           `json:"input"`
}

// standardRequest is the standard chat-completion body: discrete
// {role, content} records with explicit generation parameters.
type standardRequest struct {
	Model       string           `json:"model"`
	Messages    []ContextMessage `json:"messages"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature float64          `json:"temperature"`
}

// plugin enables an optional backend capability in the HTTP-POST dialect.
type plugin struct {
	ID string `json:"id"`
}

// postRequest is the HTTP-POST dialect body. Plugins is present only
// when the web-search capability is toggled for the call.
type postRequest struct {
	Model       string           `json:"model"`
	Messages    []ContextMessage `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens"`
	Plugins     []plugin         `json:"plugins,omitempty"`
}

// buildContext assembles the full request context: the agent's system
// prompt (when any), the ordered history, then the new user turn.
func buildContext(p Params, history []ContextMessage, userText string) []ContextMessage {
	messages := make([]ContextMessage, 0, len(history)+2)
	if p.SystemPrompt != "" {
		messages = append(messages, ContextMessage{Role: "system", Content: p.SystemPrompt})
	}
	messages = append(messages, history...)
	messages = append(messages, ContextMessage{Role: "user", Content: userText})
	return messages
}

// joinContext flattens the context into the primary dialect's single
// newline-joined, role-prefixed text blob.
func joinContext(messages []ContextMessage) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}
	return strings.Join(lines, "\n")
}
