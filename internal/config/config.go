// Package config loads application configuration from a JSON file with
// environment variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// Defaults applied when neither the config file nor the environment sets a value.
const (
	DefaultEmbeddingModel = "gemini-embedding-001"
	DefaultChatModel      = "gemini-2.0-flash"
	// Output dimensionality for embeddings (MRL optimized)
	EmbeddingDimension = 768

	DefaultTranscriptionModel = "whisper-large-v3"
	DefaultGroqBaseURL        = "https://api.groq.com/openai/v1"

	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
	DefaultFetchK       = 100
	DefaultMinRelevance = 50.0

	DefaultListenAddr     = ":8230"
	DefaultTimeoutSeconds = 30
)

// Config holds application configuration from <data_dir>/config.json.
type Config struct {
	DataDir    string `json:"data_dir,omitempty"`
	ListenAddr string `json:"listen_addr,omitempty"`
	// Timeout in seconds applied to outbound HTTP calls (Groq, Overpass, ipinfo).
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`

	Gemini    GeminiConfig    `json:"gemini,omitempty"`
	Groq      GroqConfig      `json:"groq,omitempty"`
	Chunking  ChunkingConfig  `json:"chunking,omitempty"`
	Retrieval RetrievalConfig `json:"retrieval,omitempty"`
}

// GeminiConfig holds Gemini model settings.
type GeminiConfig struct {
	APIKey         string `json:"api_key,omitempty"`
	EmbeddingModel string `json:"embedding_model,omitempty"`
	ChatModel      string `json:"chat_model,omitempty"`
}

// GroqConfig holds the speech transcription service settings.
type GroqConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ChunkingConfig controls how documents are split before indexing.
type ChunkingConfig struct {
	ChunkSize int `json:"chunk_size,omitempty"`
	Overlap   int `json:"overlap,omitempty"`
}

// RetrievalConfig controls how many chunks are fetched per query and how the
// results are filtered and budgeted downstream.
type RetrievalConfig struct {
	// FetchK is the number of chunks requested from the vector store. Retrieval
	// over-fetches; relevance filtering is a display concern.
	FetchK int `json:"fetch_k,omitempty"`
	// MinRelevance (0-100) excludes weakly related chunks from display surfaces.
	MinRelevance float64 `json:"min_relevance,omitempty"`
	// MaxContextChars caps the total context spliced into a prompt. 0 = unlimited.
	MaxContextChars int `json:"max_context_chars,omitempty"`
}

// DefaultDataDir returns ~/.safed, the default location for all persisted state.
func DefaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".safed"), nil
}

// Load reads configuration from <dataDir>/config.json. A missing file is not
// an error; defaults plus environment variables are used instead.
func Load(dataDir string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if dataDir == "" {
		var err error
		dataDir, err = DefaultDataDir()
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{DataDir: dataDir}
	configPath := filepath.Join(dataDir, "config.json")
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
		cfg.DataDir = dataDir
		logger.Info("loaded config", "path", configPath)
	case os.IsNotExist(err):
		logger.Info("config file not found, using defaults and environment", "path", configPath)
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes configuration to <data_dir>/config.json.
func Save(cfg *Config, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	configPath := filepath.Join(cfg.DataDir, "config.json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config.json: %w", err)
	}

	logger.Info("saved config", "path", configPath)
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SAFE_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("SAFE_TIMEOUT_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := os.Getenv("GEMINI_EMBEDDING_MODEL"); v != "" {
		c.Gemini.EmbeddingModel = v
	}
	if v := os.Getenv("GEMINI_CHAT_MODEL"); v != "" {
		c.Gemini.ChatModel = v
	}
	if v := os.Getenv("GROQ_API_KEY"); v != "" {
		c.Groq.APIKey = v
	}
	if v := os.Getenv("GROQ_BASE_URL"); v != "" {
		c.Groq.BaseURL = v
	}
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Gemini.EmbeddingModel == "" {
		c.Gemini.EmbeddingModel = DefaultEmbeddingModel
	}
	if c.Gemini.ChatModel == "" {
		c.Gemini.ChatModel = DefaultChatModel
	}
	if c.Groq.BaseURL == "" {
		c.Groq.BaseURL = DefaultGroqBaseURL
	}
	if c.Groq.Model == "" {
		c.Groq.Model = DefaultTranscriptionModel
	}
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = DefaultChunkSize
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		c.Chunking.Overlap = DefaultChunkOverlap
	}
	if c.Retrieval.FetchK <= 0 {
		c.Retrieval.FetchK = DefaultFetchK
	}
	if c.Retrieval.MinRelevance <= 0 || c.Retrieval.MinRelevance > 100 {
		c.Retrieval.MinRelevance = DefaultMinRelevance
	}
}
