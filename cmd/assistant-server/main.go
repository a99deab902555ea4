package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"profile-assistant/internal/assistant"
	"profile-assistant/internal/chunker"
	"profile-assistant/internal/config"
	"profile-assistant/internal/domain"
	"profile-assistant/internal/embedding"
	openaiembed "profile-assistant/internal/embedding/openai"
	"profile-assistant/internal/profile"
	"profile-assistant/internal/provider"
	"profile-assistant/internal/ratelimit"
	"profile-assistant/internal/retrieval"
	"profile-assistant/internal/server"
	"profile-assistant/internal/session"
	"profile-assistant/internal/vectorstore"
	chromemstore "profile-assistant/internal/vectorstore/chromem"
	"profile-assistant/internal/vectorstore/memory"
	"profile-assistant/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	prof, err := profile.Load(filepath.Join(cfg.Data.Dir, "profile.json"))
	if err != nil {
		log.Fatalf("failed to load profile data: %v", err)
	}
	systemPrompt, err := profile.LoadSystemPrompt(filepath.Join(cfg.Data.Dir, "system_prompt.txt"))
	if err != nil {
		log.Fatalf("failed to load system prompt: %v", err)
	}
	chunks := chunker.NewProfileChunker().Chunk(prof)

	// Missing embedding credentials disable retrieval rather than crashing;
	// the assistant degrades to the static profile context.
	var emb embedding.Embedder
	if cfg.Embedder.OpenAI != nil {
		client, err := openaiembed.NewClient(openaiembed.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Printf("retrieval disabled: %v", err)
		} else {
			emb = client
		}
	}

	var store vectorstore.Storage
	if emb != nil {
		switch cfg.VectorStore.Type {
		case "memory", "":
			store = memory.NewStore()
		case "qdrant":
			if cfg.VectorStore.Qdrant == nil || cfg.VectorStore.Qdrant.URL == "" {
				log.Fatalf("qdrant config missing")
			}
			store = qdrant.NewStore(qdrant.Config{
				URL:        cfg.VectorStore.Qdrant.URL,
				APIKey:     os.Getenv(cfg.VectorStore.Qdrant.APIKeyEnv),
				Collection: cfg.Retrieval.Collection,
				Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
			})
		case "chromem":
			path := ""
			if cfg.VectorStore.Chromem != nil {
				path = cfg.VectorStore.Chromem.Path
			}
			cs, err := chromemstore.NewStore(chromemstore.Config{
				Path:       path,
				Collection: cfg.Retrieval.Collection,
			})
			if err != nil {
				log.Fatalf("chromem store init failed: %v", err)
			}
			store = cs
		default:
			log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
		}
	}

	rsvc := retrieval.NewService(emb, store, prof.ContextSummary(), retrieval.Config{
		Limit:          cfg.Retrieval.Limit,
		ScoreThreshold: cfg.Retrieval.ScoreThreshold,
	}, log.New(os.Stderr, "retrieval: ", log.LstdFlags))

	if rsvc.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if err := rsvc.BootstrapIndex(ctx, chunks, cfg.Retrieval.Dimension); err != nil {
			// Not fatal: searches will fail over to the static context.
			log.Printf("index bootstrap failed: %v", err)
		}
		cancel()
	}

	var completer domain.Completer
	if key := os.Getenv(cfg.Anthropic.APIKeyEnv); key != "" {
		completer = provider.NewAnthropicCompleter(provider.AnthropicConfig{
			APIKey:    key,
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			Timeout:   time.Duration(cfg.Anthropic.TimeoutSecs) * time.Second,
		})
	} else {
		log.Printf("warning: %s not set; every chat turn will fail", cfg.Anthropic.APIKeyEnv)
	}

	sessions := session.NewStore(session.Limits{
		MaxMessages:       cfg.Session.MaxMessages,
		CompactAfter:      cfg.Session.CompactAfter,
		CompactKeepRecent: cfg.Session.CompactKeepRecent,
		CompactCharLimit:  cfg.Session.CompactCharLimit,
		MaxAge:            time.Duration(cfg.Session.MaxAgeSecs) * time.Second,
	})
	limiter := ratelimit.NewLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute)

	asst := assistant.New(sessions, limiter, rsvc, completer, systemPrompt,
		log.New(os.Stderr, "assistant: ", log.LstdFlags))

	var reindex func(ctx context.Context) error
	if rsvc.Enabled() {
		reindex = func(ctx context.Context) error { return rsvc.Reindex(ctx, chunks) }
	}
	srv := server.New(asst, reindex, server.Config{
		Environment:    cfg.Server.Environment,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AdminToken:     os.Getenv(cfg.Server.AdminTokenEnv),
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSecs) * time.Second,
	}, log.New(os.Stderr, "server: ", log.LstdFlags))

	log.Printf("listening on %s (%s)", cfg.Server.Addr, cfg.Server.Environment)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}
