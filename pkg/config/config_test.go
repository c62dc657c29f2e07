package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseYAMLWithDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  port: 9090
pipeline:
  max_chunk_chars: 5000
  resolver_cache_ttl: 30m
`))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5000, cfg.Pipeline.MaxChunkChars)
	assert.Equal(t, 30*time.Minute, cfg.Pipeline.ResolverCacheTTL)

	// Untouched fields pick up defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4, cfg.Server.MaxActiveJobs)
	assert.Equal(t, 400, cfg.Pipeline.ChunkOverlapChars)
	assert.Equal(t, 0.60, cfg.Pipeline.RulerOnlyMinConfidence)
	assert.Equal(t, 300*time.Millisecond, cfg.Pipeline.EventPollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestParseJSONFallback(t *testing.T) {
	cfg, err := Parse([]byte(`{"server": {"port": 7070}}`))
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("LEXI_TEST_KEY", "sk-123")
	t.Setenv("LEXI_TEST_DIR", "")

	cfg, err := Parse([]byte(`
llm:
  default:
    provider: openai
    api_key: ${LEXI_TEST_KEY}
storage:
  jobs_dir: ${LEXI_TEST_DIR:-/var/lib/lexigraph/jobs}
`))
	require.NoError(t, err)

	assert.Equal(t, "sk-123", cfg.LLM.Default.APIKey)
	assert.Equal(t, "/var/lib/lexigraph/jobs", cfg.Storage.JobsDir,
		"empty variable falls back to the ${VAR:-default} value")
}

func TestValidateRejectsBadValues(t *testing.T) {
	_, err := Parse([]byte("server:\n  port: 70000\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")

	_, err = Parse([]byte("pipeline:\n  max_chunk_chars: 100\n  chunk_overlap_chars: 200\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk overlap")

	_, err = Parse([]byte("llm:\n  tasks:\n    concept:\n      model: gpt-4o\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing provider")
}

func TestTaskProviderFallback(t *testing.T) {
	llm := LLMConfig{
		Default: LLMProviderConfig{Provider: "openai", Model: "gpt-4o-mini"},
		Tasks: map[string]LLMProviderConfig{
			"concept": {Provider: "anthropic", Model: "claude-sonnet-4-5"},
		},
	}

	assert.Equal(t, "anthropic", llm.TaskProvider("concept").Provider)
	assert.Equal(t, "openai", llm.TaskProvider("document_type").Provider)
}

func TestLLMProviderDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 4096, cfg.LLM.Default.MaxTokens)
	assert.Equal(t, 120*time.Second, cfg.LLM.Default.Timeout)
	assert.Equal(t, 2, cfg.LLM.Default.MaxRetries)
}
