package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir(), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Equal(t, DefaultEmbeddingModel, cfg.Gemini.EmbeddingModel)
	assert.Equal(t, DefaultChatModel, cfg.Gemini.ChatModel)
	assert.Equal(t, DefaultGroqBaseURL, cfg.Groq.BaseURL)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.Overlap)
	assert.Equal(t, DefaultFetchK, cfg.Retrieval.FetchK)
	assert.InDelta(t, DefaultMinRelevance, cfg.Retrieval.MinRelevance, 1e-9)
}

func TestLoadFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	raw := []byte(`{"listen_addr": ":9000", "gemini": {"chat_model": "gemini-1.5-pro"}, "chunking": {"chunk_size": 500, "overlap": 50}}`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), raw, 0o600))
	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("SAFE_LISTEN_ADDR", ":9999")

	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	// Environment wins over the file.
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.ChatModel)
	assert.Equal(t, 500, cfg.Chunking.ChunkSize)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))
	_, err := Load(dir, nil)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir, nil)
	require.NoError(t, err)
	cfg.ListenAddr = ":7777"
	require.NoError(t, Save(cfg, nil))

	loaded, err := Load(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, ":7777", loaded.ListenAddr)
}

func TestApplyDefaultsRepairsDegenerateOverlap(t *testing.T) {
	cfg := &Config{Chunking: ChunkingConfig{ChunkSize: 100, Overlap: 100}}
	cfg.applyDefaults()
	assert.Equal(t, DefaultChunkOverlap, cfg.Chunking.Overlap)
}
