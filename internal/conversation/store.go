package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoActiveConversation is returned by AddMessage when no
// conversation is current.
var ErrNoActiveConversation = errors.New("no active conversation")

// Store owns the current conversation and its directory of persisted
// JSON documents (one file per conversation). All mutation happens on
// the session's single dispatch thread, so the store is unsynchronized.
type Store struct {
	dir     string
	logger  *zap.Logger
	current *Conversation
}

// NewStore creates a store over the given directory.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Current returns the active conversation, or nil.
func (s *Store) Current() *Conversation {
	return s.current
}

// Clear drops the current conversation pointer without touching any
// persisted document.
func (s *Store) Clear() {
	s.current = nil
}

// Count returns the number of messages in the current conversation.
func (s *Store) Count() int {
	if s.current == nil {
		return 0
	}
	return len(s.current.Messages)
}

// Create starts a new current conversation titled after the first
// user message. It never fails; the conversation is not persisted
// until Save.
func (s *Store) Create(firstMessage string) *Conversation {
	now := time.Now()
	conv := &Conversation{
		ID:        s.newID(now),
		Title:     deriveTitle(firstMessage),
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.current = conv
	s.logger.Debug("created conversation", zap.String("id", conv.ID))
	return conv
}

// newID derives a timestamp id at second granularity. Two
// conversations created within the same second would collide, so a
// short uniqueness suffix is appended when the id is already taken.
func (s *Store) newID(now time.Time) string {
	id := now.Format("20060102_150405")
	if !s.idTaken(id) {
		return id
	}
	return id + "-" + uuid.NewString()[:8]
}

func (s *Store) idTaken(id string) bool {
	if s.current != nil && s.current.ID == id {
		return true
	}
	_, err := os.Stat(s.path(id))
	return err == nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, fmt.Sprintf("conversation_%s.json", id))
}

// AddMessage appends a message to the current conversation.
func (s *Store) AddMessage(role, content string, toolsUsed []string, sources []Source) error {
	if s.current == nil {
		return ErrNoActiveConversation
	}
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	if sources == nil {
		sources = []Source{}
	}
	s.current.Messages = append(s.current.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		ToolsUsed: toolsUsed,
		Sources:   sources,
	})
	s.current.UpdatedAt = time.Now()
	return nil
}

// Save persists the current conversation as one JSON document.
// A nil current conversation is a no-op.
func (s *Store) Save() error {
	if s.current == nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(s.current.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", s.current.ID, err)
	}
	s.logger.Debug("saved conversation",
		zap.String("id", s.current.ID),
		zap.Int("messages", len(s.current.Messages)))
	return nil
}

// Load restores a conversation by id and makes it current.
// Absent or malformed documents report not-found; the current
// conversation is left unchanged in that case.
func (s *Store) Load(id string) (*Conversation, bool) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, false
	}
	var conv Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		s.logger.Warn("malformed conversation document",
			zap.String("id", id), zap.Error(err))
		return nil, false
	}
	s.current = &conv
	return &conv, true
}

// List returns summaries of every stored conversation, newest first.
// Malformed documents are skipped silently.
func (s *Store) List() []Summary {
	entries, err := filepath.Glob(filepath.Join(s.dir, "conversation_*.json"))
	if err != nil {
		return nil
	}

	summaries := make([]Summary, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var conv Conversation
		if err := json.Unmarshal(data, &conv); err != nil || conv.ID == "" {
			s.logger.Debug("skipping malformed conversation file", zap.String("path", path))
			continue
		}
		summaries = append(summaries, Summary{
			ID:           conv.ID,
			Title:        conv.Title,
			CreatedAt:    conv.CreatedAt,
			MessageCount: len(conv.Messages),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

// DeleteLast removes the tail message of the current conversation.
func (s *Store) DeleteLast() bool {
	if s.current == nil || len(s.current.Messages) == 0 {
		return false
	}
	s.current.Messages = s.current.Messages[:len(s.current.Messages)-1]
	s.current.UpdatedAt = time.Now()
	return true
}

// Delete removes the message at the 1-based index, shifting later
// messages down by one.
func (s *Store) Delete(index int) bool {
	if !s.validIndex(index) {
		return false
	}
	msgs := s.current.Messages
	s.current.Messages = append(msgs[:index-1], msgs[index:]...)
	s.current.UpdatedAt = time.Now()
	return true
}

// Edit replaces the content of the message at the 1-based index and
// refreshes its timestamp. Editing never truncates by itself;
// truncation-after-edit is session-level policy.
func (s *Store) Edit(index int, newContent string) bool {
	if !s.validIndex(index) {
		return false
	}
	s.current.Messages[index-1].Content = newContent
	s.current.Messages[index-1].Timestamp = time.Now()
	s.current.UpdatedAt = time.Now()
	return true
}

// Truncate keeps messages [1..index] and drops the rest.
func (s *Store) Truncate(index int) bool {
	if !s.validIndex(index) {
		return false
	}
	s.current.Messages = s.current.Messages[:index]
	s.current.UpdatedAt = time.Now()
	return true
}

// Get returns the message at the 1-based index.
func (s *Store) Get(index int) (Message, bool) {
	if !s.validIndex(index) {
		return Message{}, false
	}
	return s.current.Messages[index-1], true
}

func (s *Store) validIndex(index int) bool {
	return s.current != nil && index >= 1 && index <= len(s.current.Messages)
}
