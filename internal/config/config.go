package config

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LLMConfig configures the OpenAI-compatible chat endpoint.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Stream      bool    `yaml:"stream"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// EvaluationConfig overrides sampling for the scoring call.
type EvaluationConfig struct {
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// HashingEmbedderConfig configures the local feature-hashing embedder.
type HashingEmbedderConfig struct {
	Dimension int `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string                 `yaml:"type"`
	BatchSize int                    `yaml:"batch_size"`
	OpenAI    *OpenAIEmbedderConfig  `yaml:"openai,omitempty"`
	Hashing   *HashingEmbedderConfig `yaml:"hashing,omitempty"`
}

// CatalogConfig points at the product table.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// VectorIndexConfig configures where and how the index is built.
type VectorIndexConfig struct {
	Path         string `yaml:"path"`
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
}

// RetrievalConfig configures the keyword memo and augmented lookups.
type RetrievalConfig struct {
	KeywordCacheSize int `yaml:"keyword_cache_size"`
	AugmentedK       int `yaml:"augmented_k"`
}

// ConversationConfig bounds the prompt history in augmented mode.
type ConversationConfig struct {
	HistoryLimit int `yaml:"history_limit"`
}

// ReportsConfig points at the report directory.
type ReportsConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LLM          LLMConfig          `yaml:"llm"`
	Evaluation   EvaluationConfig   `yaml:"evaluation"`
	Embedder     EmbedderConfig     `yaml:"embedder"`
	Catalog      CatalogConfig      `yaml:"catalog"`
	VectorIndex  VectorIndexConfig  `yaml:"vector_index"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Conversation ConversationConfig `yaml:"conversation"`
	Reports      ReportsConfig      `yaml:"reports"`
	Log          LogConfig          `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Default()
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, errors.Wrapf(err, "read config %s", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse config %s", path)
	}
	applyConfigDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/salescoach/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create config dir")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "encode config")
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "salescoach", "config.yaml"), nil
}

// Default returns a fully populated configuration.
func Default() *AppConfig {
	cfg := &AppConfig{
		LLM: LLMConfig{
			BaseURL:     "https://api.deepseek.com",
			APIKeyEnv:   "DEEPSEEK_API_KEY",
			Model:       "deepseek-chat",
			Temperature: 0.7,
			MaxTokens:   500,
			Stream:      true,
			TimeoutSecs: 60,
			MaxRetries:  2,
		},
		Evaluation:   EvaluationConfig{Temperature: 0.1, MaxTokens: 300},
		Embedder:     EmbedderConfig{Type: "hashing", BatchSize: 32, Hashing: &HashingEmbedderConfig{Dimension: 512}},
		Catalog:      CatalogConfig{Path: filepath.Join("data", "product_knowledge.csv")},
		VectorIndex:  VectorIndexConfig{Path: filepath.Join("data", "vector_store.db"), ChunkSize: 200, ChunkOverlap: 20},
		Retrieval:    RetrievalConfig{KeywordCacheSize: 128, AugmentedK: 1},
		Conversation: ConversationConfig{HistoryLimit: 10},
		Reports:      ReportsConfig{Dir: "reports"},
		Log:          LogConfig{Level: "info", Format: "console"},
	}
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = def.LLM.BaseURL
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = def.LLM.Model
	}
	if cfg.LLM.MaxTokens == 0 {
		cfg.LLM.MaxTokens = def.LLM.MaxTokens
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = def.LLM.TimeoutSecs
	}
	if cfg.Evaluation.MaxTokens == 0 {
		cfg.Evaluation.MaxTokens = def.Evaluation.MaxTokens
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = def.Embedder.Type
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = def.Embedder.BatchSize
	}
	if cfg.Embedder.Type == "hashing" {
		if cfg.Embedder.Hashing == nil {
			cfg.Embedder.Hashing = &HashingEmbedderConfig{}
		}
		if cfg.Embedder.Hashing.Dimension == 0 {
			cfg.Embedder.Hashing.Dimension = def.Embedder.Hashing.Dimension
		}
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = def.Catalog.Path
	}
	if cfg.VectorIndex.Path == "" {
		cfg.VectorIndex.Path = def.VectorIndex.Path
	}
	if cfg.VectorIndex.ChunkSize == 0 {
		cfg.VectorIndex.ChunkSize = def.VectorIndex.ChunkSize
	}
	if cfg.Retrieval.KeywordCacheSize == 0 {
		cfg.Retrieval.KeywordCacheSize = def.Retrieval.KeywordCacheSize
	}
	if cfg.Retrieval.AugmentedK == 0 {
		cfg.Retrieval.AugmentedK = def.Retrieval.AugmentedK
	}
	if cfg.Conversation.HistoryLimit == 0 {
		cfg.Conversation.HistoryLimit = def.Conversation.HistoryLimit
	}
	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = def.Reports.Dir
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Log.Format
	}
}

// DEEPSEEK_* variables win over the file so a .env is enough to point at another deployment.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("DEEPSEEK_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DEEPSEEK_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
}
