// Package agent implements the agent profile registry: named request
// presets (persona prompt, temperature, token budget, tool list)
// persisted as one JSON document per agent.
package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultTool is the built-in web search tool every new agent gets
// unless it specifies its own tool list.
const DefaultTool = "web_search_preview"

// Tool identifies a capability the backend may use. Persisted agent
// documents accept either a bare name ("web_search_preview") or a
// structured descriptor ({"type": "..."}), so both marshal forms are
// supported.
type Tool struct {
	Type string         `json:"type"`
	Args map[string]any `json:"args,omitempty"`
}

// UnmarshalJSON accepts a bare string or a descriptor object.
func (t *Tool) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		t.Type = name
		t.Args = nil
		return nil
	}
	type descriptor Tool
	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("tool must be a name or a descriptor: %w", err)
	}
	*t = Tool(d)
	return nil
}

// MarshalJSON emits the compact bare-name form when the tool has no
// extra fields, keeping documents interchangeable with hand-written ones.
func (t Tool) MarshalJSON() ([]byte, error) {
	if len(t.Args) == 0 {
		return json.Marshal(t.Type)
	}
	type descriptor Tool
	return json.Marshal(descriptor(t))
}

// Agent is a named request-parameter preset.
type Agent struct {
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	Description  string    `json:"description"`
	Temperature  float64   `json:"temperature"`
	MaxTokens    int       `json:"max_tokens"`
	Tools        []Tool    `json:"tools"`
	CreatedAt    time.Time `json:"created_at"`
}

// New constructs an agent with the documented defaults. CreatedAt is
// set once here and never mutated afterwards.
func New(name, systemPrompt string) *Agent {
	return &Agent{
		Name:         name,
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
		MaxTokens:    2048,
		Tools:        []Tool{{Type: DefaultTool}},
		CreatedAt:    time.Now(),
	}
}

// ToolNames returns the ordered tool identifiers.
func (a *Agent) ToolNames() []string {
	names := make([]string, 0, len(a.Tools))
	for _, t := range a.Tools {
		names = append(names, t.Type)
	}
	return names
}

// NormalizeName derives the registry key (and file name stem) from an
// agent name: trimmed, lower-cased, spaces replaced by underscores.
func NormalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}
