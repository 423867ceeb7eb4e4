package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	t.Setenv("DEEPSEEK_BASE_URL", "")
	t.Setenv("DEEPSEEK_MODEL", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, 32, cfg.Embedder.BatchSize)
	require.Equal(t, 128, cfg.Retrieval.KeywordCacheSize)
	require.Equal(t, 10, cfg.Conversation.HistoryLimit)
	require.Equal(t, 200, cfg.VectorIndex.ChunkSize)
	require.Equal(t, 20, cfg.VectorIndex.ChunkOverlap)
}

func TestLoadFillsZeroFields(t *testing.T) {
	t.Setenv("DEEPSEEK_BASE_URL", "")
	t.Setenv("DEEPSEEK_MODEL", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
embedder:
  type: openai
  batch_size: 8
catalog:
  path: ""
vector_index:
  path: /tmp/idx.db
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8, cfg.Embedder.BatchSize)
	require.NotNil(t, cfg.Embedder.OpenAI)
	require.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	require.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	require.Equal(t, "/tmp/idx.db", cfg.VectorIndex.Path)
	require.Equal(t, filepath.Join("data", "product_knowledge.csv"), cfg.Catalog.Path)
	require.Equal(t, "deepseek-chat", cfg.LLM.Model)
}

func TestEnvOverridesLLM(t *testing.T) {
	t.Setenv("DEEPSEEK_BASE_URL", "http://localhost:9999/v1")
	t.Setenv("DEEPSEEK_MODEL", "local-model")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, "http://localhost:9999/v1", cfg.LLM.BaseURL)
	require.Equal(t, "local-model", cfg.LLM.Model)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("DEEPSEEK_BASE_URL", "")
	t.Setenv("DEEPSEEK_MODEL", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Reports.Dir = "out"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "out", loaded.Reports.Dir)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
