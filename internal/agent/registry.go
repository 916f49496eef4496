package agent

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// DefaultName is the protected fallback agent. It is seeded on first
// use, can never be deleted, and becomes current again when the
// current agent is removed.
const DefaultName = "assistant"

// Summary is the listing view of a stored agent.
type Summary struct {
	Name        string
	Description string
	Temperature float64
	Tools       []string
}

// SystemMessage is the derived system turn for the current agent.
type SystemMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Registry owns agent definitions in a directory of JSON documents,
// one file per agent, plus the current-agent pointer for the session.
type Registry struct {
	dir     string
	logger  *zap.Logger
	current *Agent
}

// NewRegistry opens a registry over the given directory, seeding the
// built-in presets when the directory holds no agents yet, and makes
// the default agent current.
func NewRegistry(dir string, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{dir: dir, logger: logger}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create agents directory: %w", err)
	}

	existing, _ := filepath.Glob(filepath.Join(dir, "*.json"))
	if len(existing) == 0 {
		if err := r.seedDefaults(); err != nil {
			return nil, err
		}
	}

	// Best effort: an unparseable default leaves no current agent,
	// which downgrades requests to process-wide defaults.
	r.Switch(DefaultName)
	return r, nil
}

// seedDefaults writes the built-in preset agents. Only the assistant
// is protected; the rest are ordinary agents the user may delete.
func (r *Registry) seedDefaults() error {
	presets := []*Agent{
		preset(DefaultName,
			"You are a helpful, precise and friendly AI assistant. Answer clearly and concisely.",
			"General-purpose assistant", 0.7),
		preset("developer",
			"You are an expert software developer. Provide clean, well-documented code and explain your solutions step by step. Follow best practices.",
			"Software development expert", 0.3),
		preset("researcher",
			"You are a meticulous researcher. Provide accurate information, cite your sources and present thorough analyses. Always verify facts with web search.",
			"Research and analysis specialist", 0.4),
		preset("creative",
			"You are an inspired creative. Think originally, propose innovative ideas and creative solutions. Do not hesitate to think outside the box.",
			"Creative brainstorming agent", 0.9),
		preset("teacher",
			"You are a patient educator. Explain complex concepts simply, use concrete examples and adapt your level to your audience.",
			"Pedagogical explanation specialist", 0.6),
	}
	for _, a := range presets {
		if err := r.SaveAgent(a); err != nil {
			return err
		}
	}
	r.logger.Info("seeded default agents", zap.Int("count", len(presets)))
	return nil
}

func preset(name, prompt, description string, temperature float64) *Agent {
	a := New(name, prompt)
	a.Description = description
	a.Temperature = temperature
	return a
}

func (r *Registry) path(name string) string {
	return filepath.Join(r.dir, NormalizeName(name)+".json")
}

// SaveAgent persists an agent, overwriting any previous definition
// with the same normalized name.
func (r *Registry) SaveAgent(a *Agent) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(r.path(a.Name), data, 0o644)
}

// LoadAgent reads an agent by name. Absent or malformed documents
// report not-found.
func (r *Registry) LoadAgent(name string) (*Agent, bool) {
	data, err := os.ReadFile(r.path(name))
	if err != nil {
		return nil, false
	}
	var a Agent
	if err := json.Unmarshal(data, &a); err != nil {
		r.logger.Warn("malformed agent document",
			zap.String("name", name), zap.Error(err))
		return nil, false
	}
	return &a, true
}

// List returns summaries of every stored agent, sorted by name.
// Malformed documents are skipped silently.
func (r *Registry) List() []Summary {
	entries, _ := filepath.Glob(filepath.Join(r.dir, "*.json"))

	summaries := make([]Summary, 0, len(entries))
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var a Agent
		if err := json.Unmarshal(data, &a); err != nil || a.Name == "" {
			continue
		}
		summaries = append(summaries, Summary{
			Name:        a.Name,
			Description: a.Description,
			Temperature: a.Temperature,
			Tools:       a.ToolNames(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries
}

// Current returns the current agent, or nil.
func (r *Registry) Current() *Agent {
	return r.current
}

// Switch makes the named agent current. The current agent is left
// unchanged when the name cannot be loaded.
func (r *Registry) Switch(name string) bool {
	a, ok := r.LoadAgent(name)
	if !ok {
		return false
	}
	r.current = a
	return true
}

// CreateOptions carries the optional fields of Create.
type CreateOptions struct {
	Description string
	Temperature float64
	MaxTokens   int
	Tools       []Tool
}

// Create constructs, persists and returns a new agent. It does not
// change the current agent. Zero-valued options fall back to the
// documented defaults (temperature 0.7, 2048 tokens, web search tool).
func (r *Registry) Create(name, systemPrompt string, opts CreateOptions) (*Agent, error) {
	if NormalizeName(name) == "" {
		return nil, fmt.Errorf("agent name must not be empty")
	}
	if systemPrompt == "" {
		return nil, fmt.Errorf("agent system prompt must not be empty")
	}

	a := New(name, systemPrompt)
	a.Description = opts.Description
	if opts.Temperature != 0 {
		a.Temperature = opts.Temperature
	}
	if opts.MaxTokens != 0 {
		a.MaxTokens = opts.MaxTokens
	}
	if len(opts.Tools) != 0 {
		a.Tools = opts.Tools
	}

	if err := r.SaveAgent(a); err != nil {
		return nil, err
	}
	r.logger.Info("created agent", zap.String("name", a.Name))
	return a, nil
}

// Delete removes an agent. The protected default is refused. When the
// deleted agent was current, the default agent becomes current again.
func (r *Registry) Delete(name string) bool {
	if NormalizeName(name) == DefaultName {
		return false
	}
	path := r.path(name)
	if _, err := os.Stat(path); err != nil {
		return false
	}
	if err := os.Remove(path); err != nil {
		r.logger.Warn("failed to delete agent", zap.String("name", name), zap.Error(err))
		return false
	}
	if r.current != nil && NormalizeName(r.current.Name) == NormalizeName(name) {
		r.Switch(DefaultName)
	}
	return true
}

// CurrentSystemMessage derives the system turn from the current agent.
func (r *Registry) CurrentSystemMessage() (SystemMessage, bool) {
	if r.current == nil {
		return SystemMessage{}, false
	}
	return SystemMessage{Role: "system", Content: r.current.SystemPrompt}, true
}

// RequestParams returns the effective generation parameters: the
// current agent's values when one is set, otherwise the given
// process-wide defaults.
func (r *Registry) RequestParams(defaultTemperature float64, defaultMaxTokens int) (float64, int) {
	if r.current == nil {
		return defaultTemperature, defaultMaxTokens
	}
	return r.current.Temperature, r.current.MaxTokens
}

// Export writes a single agent document to an arbitrary path.
func (r *Registry) Export(name, destPath string) bool {
	a, ok := r.LoadAgent(name)
	if !ok {
		return false
	}
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return false
	}
	return os.WriteFile(destPath, data, 0o644) == nil
}

// Import reads an agent document from an arbitrary path and persists
// it into the registry.
func (r *Registry) Import(srcPath string) (*Agent, bool) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return nil, false
	}
	var a Agent
	if err := json.Unmarshal(data, &a); err != nil || a.Name == "" {
		return nil, false
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	if err := r.SaveAgent(&a); err != nil {
		return nil, false
	}
	return &a, true
}
