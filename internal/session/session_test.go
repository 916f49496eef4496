package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verbiage/internal/agent"
	"verbiage/internal/config"
	"verbiage/internal/conversation"
	"verbiage/internal/llm"
	"verbiage/internal/llm/normalize"
)

type sendCall struct {
	params    llm.Params
	history   []llm.ContextMessage
	userText  string
	webSearch bool
}

// stubSender replays canned replies and records every call.
type stubSender struct {
	replies []normalize.Reply
	calls   []sendCall
}

func (s *stubSender) Send(_ context.Context, p llm.Params, history []llm.ContextMessage, userText string, webSearch bool) normalize.Reply {
	s.calls = append(s.calls, sendCall{p, history, userText, webSearch})
	if len(s.replies) == 0 {
		return normalize.Reply{Text: "canned reply", Tools: []string{}, Sources: []map[string]any{}}
	}
	reply := s.replies[0]
	s.replies = s.replies[1:]
	return reply
}

func newTestSession(t *testing.T) (*Session, *stubSender) {
	t.Helper()
	cfg := &config.Config{
		Model:            "test-model",
		ConversationsDir: t.TempDir(),
		AgentsDir:        t.TempDir(),
		MaxTokens:        2048,
		Temperature:      0.7,
		AutoSave:         true,
	}
	registry, err := agent.NewRegistry(cfg.AgentsDir, nil)
	require.NoError(t, err)
	store := conversation.NewStore(cfg.ConversationsDir, nil)
	sender := &stubSender{}
	return New(cfg, store, registry, sender, nil), sender
}

func TestSendTurn_FirstTurnCreatesConversation(t *testing.T) {
	s, sender := newTestSession(t)
	sender.replies = []normalize.Reply{{Text: "Hello!", Tools: []string{}, Sources: []map[string]any{}}}

	msg := s.SendTurn(context.Background(), "Hi", false)

	conv := s.Conversations.Current()
	require.NotNil(t, conv)
	assert.Equal(t, "Hi", conv.Title)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "user", conv.Messages[0].Role)
	assert.Equal(t, "Hi", conv.Messages[0].Content)
	assert.Equal(t, "assistant", conv.Messages[1].Role)
	assert.Equal(t, "Hello!", conv.Messages[1].Content)
	assert.Equal(t, "Hello!", msg.Content)

	// Auto-save persisted the document.
	loaded, ok := conversation.NewStore(s.Config.ConversationsDir, nil).Load(conv.ID)
	require.True(t, ok)
	assert.Len(t, loaded.Messages, 2)
}

func TestSendTurn_HistoryExcludesNewUserTurn(t *testing.T) {
	s, sender := newTestSession(t)

	s.SendTurn(context.Background(), "first", false)
	s.SendTurn(context.Background(), "second", false)

	require.Len(t, sender.calls, 2)
	assert.Empty(t, sender.calls[0].history)
	assert.Equal(t, "first", sender.calls[0].userText)

	// Second call sees the completed first exchange, not "second".
	require.Len(t, sender.calls[1].history, 2)
	assert.Equal(t, "first", sender.calls[1].history[0].Content)
	assert.Equal(t, "canned reply", sender.calls[1].history[1].Content)
	assert.Equal(t, "second", sender.calls[1].userText)
}

func TestSendTurn_ParamsComeFromCurrentAgent(t *testing.T) {
	s, sender := newTestSession(t)
	require.True(t, s.Agents.Switch("developer"))

	s.SendTurn(context.Background(), "Hi", false)

	require.Len(t, sender.calls, 1)
	p := sender.calls[0].params
	assert.InDelta(t, 0.3, p.Temperature, 1e-9)
	assert.Equal(t, 2048, p.MaxTokens)
	assert.NotEmpty(t, p.SystemPrompt)
	assert.Equal(t, []string{"web_search_preview"}, p.Tools)
}

func TestSendTurn_ErrorReplyIsStillAppended(t *testing.T) {
	s, sender := newTestSession(t)
	sender.replies = []normalize.Reply{{
		Text:    "Error calling the backend API: boom",
		Tools:   []string{},
		Sources: []map[string]any{},
	}}

	msg := s.SendTurn(context.Background(), "Hi", false)
	assert.Equal(t, "assistant", msg.Role)
	assert.Contains(t, msg.Content, "Error calling the backend API")
	assert.Equal(t, 2, s.Conversations.Count())
}

func TestCompleteEdit_UserEditTruncatesAndRegenerates(t *testing.T) {
	s, sender := newTestSession(t)
	sender.replies = []normalize.Reply{
		{Text: "old reply", Tools: []string{}, Sources: []map[string]any{}},
		{Text: "new reply", Tools: []string{}, Sources: []map[string]any{}},
	}
	s.SendTurn(context.Background(), "Hi", false)

	msg, ok := s.CompleteEdit(context.Background(), 1, "Bonjour")
	require.True(t, ok)

	// The edited user turn plus exactly one fresh assistant reply.
	require.Equal(t, 2, s.Conversations.Count())
	first, _ := s.Conversations.Get(1)
	assert.Equal(t, "Bonjour", first.Content)
	assert.Equal(t, "new reply", msg.Content)

	require.Len(t, sender.calls, 2)
	assert.Empty(t, sender.calls[1].history)
	assert.Equal(t, "Bonjour", sender.calls[1].userText)
}

func TestCompleteEdit_WebMarkerEnablesSearchOnce(t *testing.T) {
	s, sender := newTestSession(t)
	s.SendTurn(context.Background(), "Hi", false)

	_, ok := s.CompleteEdit(context.Background(), 1, "/web Bonjour")
	require.True(t, ok)

	first, _ := s.Conversations.Get(1)
	assert.Equal(t, "Bonjour", first.Content)
	require.Len(t, sender.calls, 2)
	assert.False(t, sender.calls[0].webSearch)
	assert.True(t, sender.calls[1].webSearch)
	assert.Equal(t, "Bonjour", sender.calls[1].userText)
}

func TestCompleteEdit_AssistantEditDoesNotRegenerate(t *testing.T) {
	s, sender := newTestSession(t)
	s.SendTurn(context.Background(), "Hi", false)

	msg, ok := s.CompleteEdit(context.Background(), 2, "corrected reply")
	require.True(t, ok)
	assert.Equal(t, "corrected reply", msg.Content)
	assert.Equal(t, 2, s.Conversations.Count())
	assert.Len(t, sender.calls, 1)
}

func TestCompleteEdit_OutOfRange(t *testing.T) {
	s, _ := newTestSession(t)
	s.SendTurn(context.Background(), "Hi", false)

	_, ok := s.CompleteEdit(context.Background(), 0, "x")
	assert.False(t, ok)
	_, ok = s.CompleteEdit(context.Background(), 3, "x")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Conversations.Count())
}

func TestCompleteEdit_MiddleUserEditDiscardsTail(t *testing.T) {
	s, sender := newTestSession(t)
	s.SendTurn(context.Background(), "one", false)
	s.SendTurn(context.Background(), "two", false)
	require.Equal(t, 4, s.Conversations.Count())

	_, ok := s.CompleteEdit(context.Background(), 1, "uno")
	require.True(t, ok)
	assert.Equal(t, 2, s.Conversations.Count())
	require.Len(t, sender.calls, 3)
	assert.Empty(t, sender.calls[2].history)
}

func TestSendTurn_ReplyToolsAndSourcesRecorded(t *testing.T) {
	s, sender := newTestSession(t)
	sender.replies = []normalize.Reply{{
		Text:    "cited",
		Tools:   []string{"web_search_preview"},
		Sources: []map[string]any{{"title": "Example", "url": "https://example.com"}},
	}}

	msg := s.SendTurn(context.Background(), "Hi", false)
	assert.Equal(t, []string{"web_search_preview"}, msg.ToolsUsed)
	require.Len(t, msg.Sources, 1)
	assert.Equal(t, "Example", msg.Sources[0]["title"])

	// User messages never carry tools or sources.
	user, _ := s.Conversations.Get(1)
	assert.Empty(t, user.ToolsUsed)
	assert.Empty(t, user.Sources)
}
