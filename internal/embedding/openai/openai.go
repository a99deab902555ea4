package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"profile-assistant/internal/embedding"
)

// Client produces embeddings via the OpenAI API. Transient failures are
// retried under an explicit policy; the SDK's own retry loop is disabled so
// the schedule stays in one place.
type Client struct {
	client  openai.Client
	model   string
	timeout time.Duration
	// dimension is learned from the first successful call; atomic because
	// the client is shared across concurrent request handlers.
	dimension atomic.Int64
	retry     embedding.Policy
}

// Config configures the OpenAI embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 10 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: t,
		retry:   embedding.DefaultPolicy(IsTransient),
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension reports the vector length, learned from the first embed call.
// Zero until then.
func (c *Client) Dimension() int { return int(c.dimension.Load()) }

func (c *Client) recordDimension(n int) {
	c.dimension.CompareAndSwap(0, int64(n))
}

// Embed returns an embedding vector for the given text. Each underlying call
// is bounded by the per-call timeout; transient failures are retried up to
// the policy's attempt budget.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	var vec []float64
	err := c.retry.Do(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		resp, err := c.client.Embeddings.New(callCtx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
			Model: openai.EmbeddingModel(c.model),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return errors.New("no embedding returned")
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	c.recordDimension(len(vec))
	return vec, nil
}

// IsTransient reports whether an embedding call failure is worth retrying.
// Rate limits, server errors and transport failures are transient; bad
// credentials and malformed requests are permanent. Context cancellation is
// never retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		return apierr.StatusCode == 429 || apierr.StatusCode >= 500
	}
	// Deadline expiry on the per-call timeout counts as a transient network
	// stall; the outer context deadline stops the retry sleep regardless.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"EOF",
		"temporary failure",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
