package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("CHAT_TEST_SET", "value")

	assert.Equal(t, "a=value", expandEnv("a=${CHAT_TEST_SET}"))
	assert.Equal(t, "a=value", expandEnv("a=${CHAT_TEST_SET:fallback}"))
	assert.Equal(t, "a=fallback", expandEnv("a=${CHAT_TEST_UNSET:fallback}"))
	assert.Equal(t, "a=", expandEnv("a=${CHAT_TEST_UNSET:}"))
	assert.Equal(t, "a=${CHAT_TEST_UNSET}", expandEnv("a=${CHAT_TEST_UNSET}"))
}

func TestLoadFromAppliesPlaceholdersAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
agent:
  base_url: ${CHAT_TEST_BASE:https://agents.example.com/v1/}
  agent_id: ${CHAT_TEST_AGENT:}
  api_token: ${CHAT_TEST_TOKEN:}
`)
	t.Setenv("CHAT_TEST_AGENT", "agent-123")
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://agents.example.com/v1", cfg.Agent.BaseURL)
	assert.Equal(t, "agent-123", cfg.Agent.AgentID)
	assert.Empty(t, cfg.Agent.APIToken)
	assert.False(t, cfg.Agent.Configured())
	assert.Equal(t, time.Duration(0), cfg.Agent.Timeout)
	assert.Equal(t, 3000, cfg.Server.HTTP.Port)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.HTTP.Addr())
	assert.Equal(t, 3, cfg.View.MinInputLength)
	assert.Equal(t, "chat_session", cfg.View.CookieName)
	assert.Equal(t, time.Hour, cfg.Cache.Retrieval.TTL)
	assert.False(t, cfg.Cache.Redis.Enabled)
}

func TestLoadFromMergesEnvironmentFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", `
server:
  http:
    port: 8080
view:
  title: Base
`)
	writeConfig(t, dir, "config.staging.yaml", `
view:
  title: Staging
`)
	t.Setenv("APP_ENV", "staging")
	t.Setenv("AGENT_API_TOKEN", "from-env")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTP.Port)
	assert.Equal(t, "Staging", cfg.View.Title)
	assert.Equal(t, "from-env", cfg.Agent.APIToken)
}

func TestLoadFromMissingBaseFile(t *testing.T) {
	_, err := LoadFrom(t.TempDir())
	assert.ErrorContains(t, err, "failed to read config file")
}
