package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "gpt-4.1", cfg.Model)
	assert.Equal(t, 2048, cfg.MaxTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.True(t, cfg.AutoSave)
	assert.True(t, cfg.UsePrimaryAPI)
}

func TestLoadFrom_FileValues(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("VERBIAGE_MODEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{"api_key":"sk-test","model":"some/model","max_tokens":512,"temperature":0.2,"auto_save":false}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "some/model", cfg.Model)
	assert.Equal(t, 512, cfg.MaxTokens)
	assert.False(t, cfg.AutoSave)
	// Unset directories resolve next to the config file.
	assert.Equal(t, filepath.Join(dir, "conversations"), cfg.ConversationsDir)
	assert.Equal(t, filepath.Join(dir, "agents"), cfg.AgentsDir)
}

func TestLoadFrom_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestLoadFrom_EnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-env")
	t.Setenv("VERBIAGE_MODEL", "env/model")
	t.Setenv("VERBIAGE_MAX_TOKENS", "128")
	t.Setenv("VERBIAGE_USE_PRIMARY_API", "false")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "env/model", cfg.Model)
	assert.Equal(t, 128, cfg.MaxTokens)
	assert.False(t, cfg.UsePrimaryAPI)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing key", func(c *Config) { c.APIKey = "" }, "api_key"},
		{"zero max tokens", func(c *Config) { c.MaxTokens = 0 }, "max_tokens"},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, "temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.APIKey = "sk-test"
			dir := t.TempDir()
			cfg.ConversationsDir = filepath.Join(dir, "conversations")
			cfg.AgentsDir = filepath.Join(dir, "agents")
			tt.mutate(&cfg)

			errs := cfg.Validate()
			require.NotEmpty(t, errs)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestValidate_CreatesDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-test"
	dir := t.TempDir()
	cfg.ConversationsDir = filepath.Join(dir, "conversations")
	cfg.AgentsDir = filepath.Join(dir, "agents")

	errs := cfg.Validate()
	assert.Empty(t, errs)
	assert.DirExists(t, cfg.ConversationsDir)
	assert.DirExists(t, cfg.AgentsDir)
}

func TestDescribe_RedactsKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIKey = "sk-secret"

	for _, line := range cfg.Describe() {
		assert.NotContains(t, line, "sk-secret")
	}
}
