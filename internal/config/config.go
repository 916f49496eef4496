// Package config holds the startup configuration for verbiage.
// Configuration is read from config.json in the user config directory,
// with a project-local .env file and environment variables layered on top.
// Invalid configuration is fatal: the session never starts with a missing
// credential or out-of-range generation parameters.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds user preferences and backend settings.
type Config struct {
	APIKey           string  `json:"api_key"`
	Model            string  `json:"model"`
	FallbackModel    string  `json:"fallback_model"`
	BaseURL          string  `json:"base_url"`
	SiteURL          string  `json:"site_url"`
	SiteName         string  `json:"site_name"`
	ConversationsDir string  `json:"conversations_dir"`
	AgentsDir        string  `json:"agents_dir"`
	MaxTokens        int     `json:"max_tokens"`
	Temperature      float64 `json:"temperature"`
	UsePrimaryAPI    bool    `json:"use_primary_api"`
	DebugMode        bool    `json:"debug_mode"`
	AutoSave         bool    `json:"auto_save"`
}

// DefaultConfig returns the default configuration. Directory fields are
// left empty here and resolved against the config dir during Load.
func DefaultConfig() Config {
	return Config{
		Model:         "gpt-4.1",
		FallbackModel: "gpt-5-mini",
		BaseURL:       "https://openrouter.ai/api/v1",
		SiteName:      "verbiage",
		MaxTokens:     2048,
		Temperature:   0.7,
		UsePrimaryAPI: true,
		AutoSave:      true,
	}
}

// ConfigDir returns the directory where config and data are stored.
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "verbiage"), nil
}

// ConfigFile returns the full path to the config file.
func ConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the configuration from disk and applies .env and
// environment overrides. A missing config file yields the defaults,
// not an error; a malformed one is reported so the user can fix it.
func Load() (Config, error) {
	path, err := ConfigFile()
	if err != nil {
		return DefaultConfig(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path.
func LoadFrom(path string) (Config, error) {
	// A project-local .env can supply the credential; missing file is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// First run: keep defaults.
	case err != nil:
		return cfg, err
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("malformed config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.ConversationsDir == "" || cfg.AgentsDir == "" {
		dir := filepath.Dir(path)
		if cfg.ConversationsDir == "" {
			cfg.ConversationsDir = filepath.Join(dir, "conversations")
		}
		if cfg.AgentsDir == "" {
			cfg.AgentsDir = filepath.Join(dir, "agents")
		}
	}

	return cfg, nil
}

// applyEnvOverrides layers environment variables over the file config.
// Env vars win so a shell export can redirect a session without editing
// config.json.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPENROUTER_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("VERBIAGE_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("VERBIAGE_FALLBACK_MODEL"); v != "" {
		cfg.FallbackModel = v
	}
	if v := os.Getenv("VERBIAGE_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("VERBIAGE_CONVERSATIONS_DIR"); v != "" {
		cfg.ConversationsDir = v
	}
	if v := os.Getenv("VERBIAGE_AGENTS_DIR"); v != "" {
		cfg.AgentsDir = v
	}
	if v := os.Getenv("VERBIAGE_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxTokens = n
		}
	}
	if v := os.Getenv("VERBIAGE_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("VERBIAGE_USE_PRIMARY_API"); v != "" {
		cfg.UsePrimaryAPI = isTruthy(v)
	}
	if v := os.Getenv("VERBIAGE_DEBUG"); v != "" {
		cfg.DebugMode = isTruthy(v)
	}
	if v := os.Getenv("VERBIAGE_AUTO_SAVE"); v != "" {
		cfg.AutoSave = isTruthy(v)
	}
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on":
		return true
	}
	return false
}

// Validate checks the configuration and returns every problem found.
// Any returned problem is fatal at startup.
func (c *Config) Validate() []string {
	var errs []string

	if c.APIKey == "" {
		errs = append(errs, "api_key is not set (config.json or OPENROUTER_API_KEY)")
	}
	if c.MaxTokens <= 0 {
		errs = append(errs, "max_tokens must be greater than 0")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		errs = append(errs, "temperature must be between 0.0 and 2.0")
	}
	for _, dir := range []string{c.ConversationsDir, c.AgentsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			errs = append(errs, fmt.Sprintf("cannot create directory %s: %v", dir, err))
		}
	}

	return errs
}

// Save writes the configuration to disk.
func Save(cfg Config) error {
	path, err := ConfigFile()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Describe returns the effective configuration as display lines,
// with the credential redacted.
func (c *Config) Describe() []string {
	return []string{
		fmt.Sprintf("Model: %s", c.Model),
		fmt.Sprintf("Fallback model: %s", c.FallbackModel),
		fmt.Sprintf("Base URL: %s", c.BaseURL),
		fmt.Sprintf("Conversations dir: %s", c.ConversationsDir),
		fmt.Sprintf("Agents dir: %s", c.AgentsDir),
		fmt.Sprintf("Max tokens: %d", c.MaxTokens),
		fmt.Sprintf("Temperature: %g", c.Temperature),
		fmt.Sprintf("Primary API: %t", c.UsePrimaryAPI),
		fmt.Sprintf("Debug mode: %t", c.DebugMode),
		fmt.Sprintf("Auto-save: %t", c.AutoSave),
		"API key: (not shown)",
	}
}
