// Package conversation implements the conversation log: the ordered
// message history of the active session and its JSON persistence.
// One conversation is current at a time, or none. All user-facing
// message indices are 1-based; index 0 is never valid.
package conversation

import (
	"time"
)

// titleLimit is the maximum number of runes kept from the first user
// message when deriving a conversation title.
const titleLimit = 50

// Source is a best-effort citation record surfaced by the backend
// alongside generated text. Backends disagree on its schema, so it is
// kept as an opaque key-value document with at least a title-like and
// optionally a url-like field.
type Source = map[string]any

// Message is a single entry in a conversation.
type Message struct {
	Role      string    `json:"role"` // user, assistant, system
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolsUsed []string  `json:"tools_used"`
	Sources   []Source  `json:"sources"`
}

// Conversation is a persisted message log. ID is derived from the
// creation timestamp at second granularity, with a uniqueness suffix
// when two conversations land in the same second.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the listing view of a stored conversation.
type Summary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

// deriveTitle truncates the first user message to the title limit.
func deriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit])
	}
	return firstMessage
}
