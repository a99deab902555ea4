package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener and request-boundary settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// Environment selects CORS behavior: "development" allows any origin,
	// "production" restricts to AllowedOrigins.
	Environment        string   `yaml:"environment"`
	AllowedOrigins     []string `yaml:"allowed_origins,omitempty"`
	AdminTokenEnv      string   `yaml:"admin_token_env"`
	RequestTimeoutSecs int      `yaml:"request_timeout_secs"`
}

// DataConfig points at the directory holding the system prompt and the
// profile document.
type DataConfig struct {
	Dir string `yaml:"dir"`
}

// AnthropicConfig configures the completion service client.
type AnthropicConfig struct {
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	MaxTokens   int    `yaml:"max_tokens"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI embeddings client.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig configures the text embedder. A nil OpenAI section means no
// embedding credentials are expected and retrieval runs degraded (static
// context only).
type EmbedderConfig struct {
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChromemConfig configures the embedded chromem-go vector store.
type ChromemConfig struct {
	Path string `yaml:"path"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type    string         `yaml:"type"`
	Qdrant  *QdrantConfig  `yaml:"qdrant,omitempty"`
	Chromem *ChromemConfig `yaml:"chromem,omitempty"`
}

// RetrievalConfig tunes search behavior and the collection schema.
type RetrievalConfig struct {
	Collection     string  `yaml:"collection"`
	Dimension      int     `yaml:"dimension"`
	Limit          int     `yaml:"limit"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// SessionConfig bounds per-session history growth and idle retention.
type SessionConfig struct {
	MaxMessages       int `yaml:"max_messages"`
	CompactAfter      int `yaml:"compact_after"`
	CompactKeepRecent int `yaml:"compact_keep_recent"`
	CompactCharLimit  int `yaml:"compact_char_limit"`
	MaxAgeSecs        int `yaml:"max_age_secs"`
}

// RateLimitConfig caps per-caller request volume.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Data        DataConfig        `yaml:"data"`
	Anthropic   AnthropicConfig   `yaml:"anthropic"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Retrieval   RetrievalConfig   `yaml:"retrieval"`
	Session     SessionConfig     `yaml:"session"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.AdminTokenEnv == "" {
		cfg.Server.AdminTokenEnv = "ADMIN_TOKEN"
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 60
	}
	if cfg.Data.Dir == "" {
		cfg.Data.Dir = "data"
	}
	if cfg.Anthropic.APIKeyEnv == "" {
		cfg.Anthropic.APIKeyEnv = "ANTHROPIC_API_KEY"
	}
	if cfg.Anthropic.Model == "" {
		cfg.Anthropic.Model = "claude-sonnet-4-20250514"
	}
	if cfg.Anthropic.MaxTokens == 0 {
		cfg.Anthropic.MaxTokens = 2048
	}
	if cfg.Anthropic.TimeoutSecs == 0 {
		cfg.Anthropic.TimeoutSecs = 30
	}
	if cfg.Embedder.OpenAI != nil {
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 10
		}
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Qdrant != nil {
		if cfg.VectorStore.Qdrant.APIKeyEnv == "" {
			cfg.VectorStore.Qdrant.APIKeyEnv = "QDRANT_API_KEY"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Retrieval.Collection == "" {
		cfg.Retrieval.Collection = "profile"
	}
	if cfg.Retrieval.Dimension == 0 {
		cfg.Retrieval.Dimension = 1536
	}
	if cfg.Retrieval.Limit == 0 {
		cfg.Retrieval.Limit = 3
	}
	if cfg.Retrieval.ScoreThreshold == 0 {
		cfg.Retrieval.ScoreThreshold = 0.7
	}
	if cfg.Session.MaxMessages == 0 {
		cfg.Session.MaxMessages = 40
	}
	if cfg.Session.CompactAfter == 0 {
		cfg.Session.CompactAfter = 30
	}
	if cfg.Session.CompactKeepRecent == 0 {
		cfg.Session.CompactKeepRecent = 20
	}
	if cfg.Session.CompactCharLimit == 0 {
		cfg.Session.CompactCharLimit = 1200
	}
	if cfg.Session.MaxAgeSecs == 0 {
		cfg.Session.MaxAgeSecs = 3600
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 20
	}
}
