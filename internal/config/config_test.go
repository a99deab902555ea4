package config

import (
	"path/filepath"
	"testing"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.VectorStore.Type != "memory" {
		t.Errorf("store type = %q", cfg.VectorStore.Type)
	}
	if cfg.Retrieval.Limit != 3 || cfg.Retrieval.ScoreThreshold != 0.7 {
		t.Errorf("retrieval defaults = %+v", cfg.Retrieval)
	}
	if cfg.Session.MaxMessages != 40 || cfg.Session.MaxAgeSecs != 3600 {
		t.Errorf("session defaults = %+v", cfg.Session)
	}
	if cfg.RateLimit.RequestsPerMinute != 20 {
		t.Errorf("rate limit default = %d", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Embedder.OpenAI != nil {
		t.Error("embedder should default to unset")
	}
}

func TestLoad_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := &AppConfig{}
	cfg.Server.Addr = ":9999"
	cfg.VectorStore.Type = "qdrant"
	cfg.VectorStore.Qdrant = &QdrantConfig{URL: "http://localhost:6333"}
	cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Addr != ":9999" {
		t.Errorf("addr = %q, want explicit value kept", loaded.Server.Addr)
	}
	if loaded.VectorStore.Qdrant.APIKeyEnv != "QDRANT_API_KEY" {
		t.Errorf("qdrant key env = %q", loaded.VectorStore.Qdrant.APIKeyEnv)
	}
	if loaded.Embedder.OpenAI.Model != "text-embedding-3-small" {
		t.Errorf("embedder model = %q", loaded.Embedder.OpenAI.Model)
	}
	if loaded.Anthropic.Model == "" {
		t.Error("anthropic defaults not applied")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Retrieval.Collection = "custom"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Retrieval.Collection != "custom" {
		t.Errorf("collection = %q", loaded.Retrieval.Collection)
	}
}
