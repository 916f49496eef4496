package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"verbiage/internal/llm/normalize"
)

// Paths of the two backend endpoints under the base URL.
const (
	primaryPath = "/responses"
	chatPath    = "/chat/completions"
)

// Sender performs one backend call per user turn. Each call moves
// through Building -> Sent -> {Normalized | Failed(fallback) |
// Failed(terminal)}: when the session prefers the primary dialect, any
// transport or protocol failure falls back silently to the standard
// dialect, once, with no retry or backoff; a terminal failure is
// converted into assistant-role error text rather than propagated.
// When only the HTTP-POST dialect is configured there is no fallback,
// and the optional web-search plugin is the only per-call variation.
type Sender struct {
	transport     Transport
	model         string
	fallbackModel string
	usePrimary    bool
	logger        *zap.Logger
}

// SenderConfig configures a Sender.
type SenderConfig struct {
	Model         string
	FallbackModel string
	UsePrimary    bool
}

// NewSender creates a sender over the given transport.
func NewSender(transport Transport, cfg SenderConfig, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.FallbackModel == "" {
		cfg.FallbackModel = cfg.Model
	}
	return &Sender{
		transport:     transport,
		model:         cfg.Model,
		fallbackModel: cfg.FallbackModel,
		usePrimary:    cfg.UsePrimary,
		logger:        logger,
	}
}

// Send performs the call for one user turn and returns the normalized
// reply. It never returns an error: failures surface as the reply text.
func (s *Sender) Send(ctx context.Context, p Params, history []ContextMessage, userText string, webSearch bool) normalize.Reply {
	if s.usePrimary {
		reply, err := s.sendPrimary(ctx, p, history, userText)
		if err == nil {
			return reply
		}
		// Silent fallback: the standard dialect result is returned as
		// if it were the only attempt.
		s.logger.Debug("primary dialect failed, falling back", zap.Error(err))

		reply, err = s.sendStandard(ctx, p, history, userText)
		if err != nil {
			return errorReply(err)
		}
		return reply
	}

	reply, err := s.sendPost(ctx, p, history, userText, webSearch)
	if err != nil {
		return errorReply(err)
	}
	return reply
}

// sendPrimary serializes the whole context into one role-prefixed text
// blob and declares the agent's tool capabilities.
func (s *Sender) sendPrimary(ctx context.Context, p Params, history []ContextMessage, userText string) (normalize.Reply, error) {
	tools := p.Tools
	if len(tools) == 0 {
		tools = []string{"web_search_preview"}
	}
	descriptors := make([]toolDescriptor, 0, len(tools))
	for _, t := range tools {
		descriptors = append(descriptors, toolDescriptor{Type: t})
	}

	body, err := json.Marshal(primaryRequest{
		Model: s.model,
		Tools: descriptors,
		Input: joinContext(buildContext(p, history, userText)),
	})
	if err != nil {
		return normalize.Reply{}, err
	}

	raw, err := s.transport.Post(ctx, primaryPath, body)
	if err != nil {
		return normalize.Reply{}, err
	}
	return normalize.Normalize(raw), nil
}

// sendStandard serializes the context as discrete {role, content}
// records with explicit generation parameters and no tool declaration.
func (s *Sender) sendStandard(ctx context.Context, p Params, history []ContextMessage, userText string) (normalize.Reply, error) {
	body, err := json.Marshal(standardRequest{
		Model:       s.fallbackModel,
		Messages:    buildContext(p, history, userText),
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	})
	if err != nil {
		return normalize.Reply{}, err
	}

	raw, err := s.transport.Post(ctx, chatPath, body)
	if err != nil {
		return normalize.Reply{}, err
	}
	return normalize.Normalize(raw), nil
}

// sendPost is the single-dialect HTTP-POST variant, with the optional
// web-search plugin added only when enabled for the call.
func (s *Sender) sendPost(ctx context.Context, p Params, history []ContextMessage, userText string, webSearch bool) (normalize.Reply, error) {
	req := postRequest{
		Model:       s.model,
		Messages:    buildContext(p, history, userText),
		Temperature: p.Temperature,
		MaxTokens:   p.MaxTokens,
	}
	if webSearch {
		req.Plugins = []plugin{{ID: "web"}}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return normalize.Reply{}, err
	}

	raw, err := s.transport.Post(ctx, chatPath, body)
	if err != nil {
		return normalize.Reply{}, err
	}
	return normalize.Normalize(raw), nil
}

// errorReply converts a terminal failure into user-visible assistant
// text. Transport and protocol failures are content, not crashes.
func errorReply(err error) normalize.Reply {
	return normalize.Reply{
		Text:    fmt.Sprintf("Error calling the backend API: %v", err),
		Tools:   []string{},
		Sources: []map[string]any{},
	}
}
