package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"profile-assistant/internal/domain"
)

// Store is a minimal REST client to Qdrant. It assumes cosine distance and
// creates the collection only when it is missing.
type Store struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStore(cfg Config) *Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Store{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (s *Store) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	exists, err := s.collectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("%s/collections/%s", s.url, s.collection), body, nil)
}

func (s *Store) Upsert(ctx context.Context, records []domain.VectorRecord) error {
	points := make([]map[string]any, len(records))
	for i, r := range records {
		points[i] = map[string]any{
			"id":     r.ID,
			"vector": r.Vector,
			"payload": map[string]any{
				"text":      r.Payload.Text,
				"type":      r.Payload.Type,
				"title":     r.Payload.Title,
				"timeframe": r.Payload.Timeframe,
				"tags":      r.Payload.Tags,
			},
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection)
	return s.do(ctx, http.MethodPut, url, body, nil)
}

func (s *Store) Search(ctx context.Context, vector []float64, limit int, threshold float64) ([]domain.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": threshold,
		"with_payload":    true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection)
	if err := s.do(ctx, http.MethodPost, url, req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, domain.SearchResult{
			Chunk: payloadChunk(r.Payload),
			Score: r.Score,
		})
	}
	return results, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/count", s.url, s.collection)
	if err := s.do(ctx, http.MethodPost, url, map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (s *Store) collectionExists(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/collections/%s", s.url, s.collection), nil)
	if err != nil {
		return false, err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("qdrant GET collection failed: %s", resp.Status)
	}
	return true, nil
}

func (s *Store) do(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	s.setHeaders(req)
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
}

func payloadChunk(payload map[string]any) domain.DocumentChunk {
	chunk := domain.DocumentChunk{}
	if v, ok := payload["text"].(string); ok {
		chunk.Text = v
	}
	if v, ok := payload["type"].(string); ok {
		chunk.Type = v
	}
	if v, ok := payload["title"].(string); ok {
		chunk.Title = v
	}
	if v, ok := payload["timeframe"].(string); ok {
		chunk.Timeframe = v
	}
	if raw, ok := payload["tags"].([]any); ok {
		for _, t := range raw {
			if tag, ok := t.(string); ok {
				chunk.Tags = append(chunk.Tags, tag)
			}
		}
	}
	return chunk
}
