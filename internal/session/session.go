// Package session owns the per-session context object and the command
// dispatcher. It is the only layer that composes the conversation
// store, the agent registry and the backend adapter; the terminal
// front-end renders its results but carries no semantics of its own.
package session

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"verbiage/internal/agent"
	"verbiage/internal/config"
	"verbiage/internal/conversation"
	"verbiage/internal/llm"
	"verbiage/internal/llm/normalize"
)

// Sender is the backend adapter the session drives, one call per turn.
type Sender interface {
	Send(ctx context.Context, p llm.Params, history []llm.ContextMessage, userText string, webSearch bool) normalize.Reply
}

// Session is the context object built once at startup and passed to
// every handler. All state mutation happens on the single dispatch
// thread, one turn to completion before the next.
type Session struct {
	Config        *config.Config
	Conversations *conversation.Store
	Agents        *agent.Registry

	sender Sender
	logger *zap.Logger
}

// New assembles a session from its already-constructed components.
func New(cfg *config.Config, store *conversation.Store, registry *agent.Registry, sender Sender, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		Config:        cfg,
		Conversations: store,
		Agents:        registry,
		sender:        sender,
		logger:        logger,
	}
}

// params derives the request parameters for one turn from the current
// agent, falling back to the process-wide configuration defaults.
func (s *Session) params() llm.Params {
	temperature, maxTokens := s.Agents.RequestParams(s.Config.Temperature, s.Config.MaxTokens)
	p := llm.Params{
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if msg, ok := s.Agents.CurrentSystemMessage(); ok {
		p.SystemPrompt = msg.Content
	}
	if a := s.Agents.Current(); a != nil {
		p.Tools = a.ToolNames()
	}
	return p
}

// history converts the current conversation's messages into request
// context records.
func (s *Session) history() []llm.ContextMessage {
	conv := s.Conversations.Current()
	if conv == nil {
		return nil
	}
	messages := make([]llm.ContextMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		messages = append(messages, llm.ContextMessage{Role: m.Role, Content: m.Content})
	}
	return messages
}

// SendTurn runs one full chat turn: create a conversation on the first
// turn, append the user message, call the backend, append the
// normalized assistant reply, and persist when auto-save is on. The
// assistant message is always appended, even when the reply is error
// text.
func (s *Session) SendTurn(ctx context.Context, userText string, webSearch bool) conversation.Message {
	if s.Conversations.Current() == nil {
		s.Conversations.Create(userText)
	}

	// Snapshot the history before appending: the adapter adds the new
	// user turn to the request context itself.
	history := s.history()

	if err := s.Conversations.AddMessage("user", userText, nil, nil); err != nil {
		s.logger.Error("failed to append user message", zap.Error(err))
	}

	reply := s.sender.Send(ctx, s.params(), history, userText, webSearch)
	return s.appendReply(reply)
}

// CompleteEdit applies the edit-then-regenerate policy: replace the
// message content, truncate the log to the edited index, and, when the
// edited message is a user turn, resend it and append a fresh
// assistant reply. Non-user edits never regenerate. A leading "/web "
// marker in the new content enables web search for the regenerated
// turn only.
func (s *Session) CompleteEdit(ctx context.Context, index int, newContent string) (conversation.Message, bool) {
	webSearch := false
	if rest, ok := strings.CutPrefix(newContent, "/web "); ok {
		webSearch = true
		newContent = rest
	}

	edited, ok := s.Conversations.Get(index)
	if !ok {
		return conversation.Message{}, false
	}
	if !s.Conversations.Edit(index, newContent) {
		return conversation.Message{}, false
	}
	s.Conversations.Truncate(index)

	if edited.Role != "user" {
		s.autoSave()
		msg, _ := s.Conversations.Get(index)
		return msg, true
	}

	// Regeneration context: everything before the edited user turn.
	history := s.history()
	history = history[:len(history)-1]

	reply := s.sender.Send(ctx, s.params(), history, newContent, webSearch)
	return s.appendReply(reply), true
}

// appendReply records the normalized reply as an assistant message and
// persists the conversation when auto-save is enabled.
func (s *Session) appendReply(reply normalize.Reply) conversation.Message {
	if err := s.Conversations.AddMessage("assistant", reply.Text, reply.Tools, reply.Sources); err != nil {
		s.logger.Error("failed to append assistant message", zap.Error(err))
		return conversation.Message{}
	}
	s.autoSave()
	msg, _ := s.Conversations.Get(s.Conversations.Count())
	return msg
}

func (s *Session) autoSave() {
	if !s.Config.AutoSave {
		return
	}
	if err := s.Conversations.Save(); err != nil {
		s.logger.Warn("auto-save failed", zap.Error(err))
	}
}
