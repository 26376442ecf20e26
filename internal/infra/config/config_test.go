package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parley/internal/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, string(domain.ModeOnline), cfg.AI.Mode)
	assert.Equal(t, 0.7, cfg.AI.Temperature)
	assert.Equal(t, 40, cfg.AI.TopK)
	assert.Equal(t, 0.95, cfg.AI.TopP)
	assert.Equal(t, 1024, cfg.AI.MaxOutputTokens)
	assert.True(t, cfg.Proxy.CircuitBreaker.Enabled)
	assert.NoError(t, Validate(cfg))
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
ai:
  mode: offline
  temperature: 1.2
proxy:
  base_url: https://proxy.example.com
  conn_timeout: 10s
logger:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "offline", cfg.AI.Mode)
	assert.Equal(t, 1.2, cfg.AI.Temperature)
	assert.Equal(t, 40, cfg.AI.TopK, "unset fields keep defaults")
	assert.Equal(t, "https://proxy.example.com", cfg.Proxy.BaseURL)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadExpandsAPIKeyFromEnv(t *testing.T) {
	t.Setenv("PARLEY_TEST_KEY", "sk-secret")
	path := writeConfig(t, `
proxy:
  api_key: ${PARLEY_TEST_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.Proxy.APIKey)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "ai: [not a mapping")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidateAccumulatesErrors(t *testing.T) {
	cfg := Default()
	cfg.AI.Mode = "hybrid"
	cfg.AI.Temperature = 3.0
	cfg.AI.TopK = 0
	cfg.Logger.Format = "xml"

	err := Validate(cfg)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 4)
}

func TestAIConfigToDomain(t *testing.T) {
	cfg, err := Default().AI.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, domain.ModeOnline, cfg.Mode)
	assert.Equal(t, 0.7, cfg.Params.Temperature)

	bad := Default().AI
	bad.TopP = 1.5
	_, err = bad.ToDomain()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
