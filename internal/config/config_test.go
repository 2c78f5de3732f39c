package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, VectorIndexPgvector, cfg.VectorIndex)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1000, cfg.ChunkSize)
	assert.Equal(t, 200, cfg.ChunkOverlap)
	assert.Equal(t, 5, cfg.QueryTopK)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 60*time.Second, cfg.EmbeddingTimeout)
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LLM_PROVIDER", " Ollama ")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("VECTOR_INDEX", "local")
	t.Setenv("QUERY_TOP_K", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "http://ollama:11434", cfg.OllamaURL)
	assert.Equal(t, 5*time.Second, cfg.LLMTimeout)
	assert.Equal(t, VectorIndexLocal, cfg.VectorIndex)
	assert.Equal(t, 3, cfg.QueryTopK)
}

func TestLoad_EmbeddingKeyFallsBackToOpenAIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.EmbeddingAPIKey)

	t.Setenv("EMBEDDING_API_KEY", "sk-embed")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-embed", cfg.EmbeddingAPIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "navigator.yaml")
	require.NoError(t, os.WriteFile(path, []byte("CHUNK_SIZE: 500\nCHUNK_OVERLAP: 50\n"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.ChunkSize)
	assert.Equal(t, 50, cfg.ChunkOverlap)
}

func TestLoad_UnknownLLMProviderIsNotAnError(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "mystery")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mystery", cfg.LLMProvider)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{ChunkSize: 1000, ChunkOverlap: 200, QueryTopK: 5, VectorIndex: VectorIndexLocal}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, true},
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = 1000 }, true},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, true},
		{"zero top k", func(c *Config) { c.QueryTopK = 0 }, true},
		{"unknown index", func(c *Config) { c.VectorIndex = "chroma" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
