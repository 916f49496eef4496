package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// stubTransport returns canned responses (or errors) per path and
// records every request body it sees.
type stubTransport struct {
	responses map[string][]byte
	errs      map[string]error
	calls     []struct {
		path string
		body []byte
	}
}

func newStubTransport() *stubTransport {
	return &stubTransport{
		responses: map[string][]byte{},
		errs:      map[string]error{},
	}
}

func (s *stubTransport) Post(_ context.Context, path string, body []byte) ([]byte, error) {
	s.calls = append(s.calls, struct {
		path string
		body []byte
	}{path, body})
	if err := s.errs[path]; err != nil {
		return nil, err
	}
	return s.responses[path], nil
}

func (s *stubTransport) lastBody(t *testing.T, path string) gjson.Result {
	t.Helper()
	for i := len(s.calls) - 1; i >= 0; i-- {
		if s.calls[i].path == path {
			require.True(t, json.Valid(s.calls[i].body))
			return gjson.ParseBytes(s.calls[i].body)
		}
	}
	t.Fatalf("no call recorded for %s", path)
	return gjson.Result{}
}

var testParams = Params{
	SystemPrompt: "You are terse.",
	Temperature:  0.3,
	MaxTokens:    512,
	Tools:        []string{"web_search_preview"},
}

func TestSend_PrimaryDialectShape(t *testing.T) {
	tr := newStubTransport()
	tr.responses[primaryPath] = []byte(`{"output":[{"content":[{"text":"ok"}]}]}`)
	s := NewSender(tr, SenderConfig{Model: "gpt-4.1", FallbackModel: "gpt-5-mini", UsePrimary: true}, nil)

	history := []ContextMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	reply := s.Send(context.Background(), testParams, history, "how are you?", false)
	assert.Equal(t, "ok", reply.Text)

	body := tr.lastBody(t, primaryPath)
	assert.Equal(t, "gpt-4.1", body.Get("model").String())
	assert.Equal(t, "web_search_preview", body.Get("tools.0.type").String())
	assert.Equal(t,
		"system: You are terse.\nuser: hi\nassistant: hello\nuser: how are you?",
		body.Get("input").String())
}

func TestSend_FallbackToStandardDialect(t *testing.T) {
	tr := newStubTransport()
	tr.errs[primaryPath] = errors.New("boom")
	tr.responses[chatPath] = []byte(`{"choices":[{"message":{"content":"fallback answer"}}]}`)
	s := NewSender(tr, SenderConfig{Model: "gpt-4.1", FallbackModel: "gpt-5-mini", UsePrimary: true}, nil)

	reply := s.Send(context.Background(), testParams, nil, "hi", false)

	// The fallback result comes through with no error text.
	assert.Equal(t, "fallback answer", reply.Text)
	assert.NotContains(t, reply.Text, "Error")

	body := tr.lastBody(t, chatPath)
	assert.Equal(t, "gpt-5-mini", body.Get("model").String())
	assert.Equal(t, int64(512), body.Get("max_tokens").Int())
	assert.InDelta(t, 0.3, body.Get("temperature").Float(), 1e-9)
	// Standard dialect declares no tools.
	assert.False(t, body.Get("tools").Exists())
	assert.Equal(t, "system", body.Get("messages.0.role").String())
	assert.Equal(t, "hi", body.Get("messages.1.content").String())
}

func TestSend_BothDialectsFailBecomesErrorText(t *testing.T) {
	tr := newStubTransport()
	tr.errs[primaryPath] = errors.New("primary down")
	tr.errs[chatPath] = errors.New("standard down")
	s := NewSender(tr, SenderConfig{Model: "m", UsePrimary: true}, nil)

	reply := s.Send(context.Background(), testParams, nil, "hi", false)
	assert.Contains(t, reply.Text, "Error calling the backend API")
	assert.Contains(t, reply.Text, "standard down")
	assert.Empty(t, reply.Tools)
	assert.Empty(t, reply.Sources)
}

func TestSend_PostDialectTogglesWebPlugin(t *testing.T) {
	tr := newStubTransport()
	tr.responses[chatPath] = []byte(`{"choices":[{"message":{"content":"ok"}}]}`)
	s := NewSender(tr, SenderConfig{Model: "deepseek/deepseek-chat"}, nil)

	s.Send(context.Background(), testParams, nil, "hi", false)
	body := tr.lastBody(t, chatPath)
	assert.False(t, body.Get("plugins").Exists())

	s.Send(context.Background(), testParams, nil, "hi", true)
	body = tr.lastBody(t, chatPath)
	assert.Equal(t, "web", body.Get("plugins.0.id").String())
}

func TestSend_PostDialectHasNoFallback(t *testing.T) {
	tr := newStubTransport()
	tr.errs[chatPath] = errors.New("offline")
	s := NewSender(tr, SenderConfig{Model: "m"}, nil)

	reply := s.Send(context.Background(), testParams, nil, "hi", false)
	assert.Contains(t, reply.Text, "offline")
	require.Len(t, tr.calls, 1)
	assert.Equal(t, chatPath, tr.calls[0].path)
}

func TestSend_NoSystemPromptOmitsSystemMessage(t *testing.T) {
	tr := newStubTransport()
	tr.responses[chatPath] = []byte(`{"choices":[{"message":{"content":"ok"}}]}`)
	s := NewSender(tr, SenderConfig{Model: "m"}, nil)

	p := testParams
	p.SystemPrompt = ""
	s.Send(context.Background(), p, nil, "hi", false)

	body := tr.lastBody(t, chatPath)
	assert.Equal(t, "user", body.Get("messages.0.role").String())
	assert.Equal(t, int64(1), body.Get("messages.#").Int())
}

func TestSend_ToolsAndSourcesPassThrough(t *testing.T) {
	tr := newStubTransport()
	tr.responses[primaryPath] = []byte(`{
		"output":[{"content":[{"text":"cited","annotations":[{"title":"T","url":"https://u"}]}]}],
		"tools":[{"type":"web_search_preview"}]
	}`)
	s := NewSender(tr, SenderConfig{Model: "m", UsePrimary: true}, nil)

	reply := s.Send(context.Background(), testParams, nil, "hi", false)
	assert.Equal(t, "cited", reply.Text)
	assert.Equal(t, []string{"web_search_preview"}, reply.Tools)
	require.Len(t, reply.Sources, 1)
	assert.Equal(t, "T", reply.Sources[0]["title"])
}
