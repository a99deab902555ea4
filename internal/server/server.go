// Package server exposes the chat turn boundary over HTTP. Route wiring is
// plumbing; all admission, retrieval and session behavior lives in the
// assistant package.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"profile-assistant/internal/assistant"
)

// ChatService is the server-facing subset of the assistant.
type ChatService interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatResponse, error)
}

type Config struct {
	// Environment selects CORS behavior; anything but "production" allows
	// all origins.
	Environment    string
	AllowedOrigins []string
	// AdminToken guards the reindex endpoint; empty disables it.
	AdminToken     string
	RequestTimeout time.Duration
}

type Server struct {
	service ChatService
	// reindex rebuilds the vector collection; nil when retrieval is
	// disabled.
	reindex func(ctx context.Context) error
	cfg     Config
	logger  *log.Logger
}

func New(service ChatService, reindex func(ctx context.Context) error, cfg Config, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &Server{service: service, reindex: reindex, cfg: cfg, logger: logger}
}

// Handler returns the route tree wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /admin/reindex", s.handleReindex)
	return s.withCORS(mux)
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type chatResponse struct {
	Reply         string `json:"reply"`
	SessionID     string `json:"session_id"`
	UsedRetrieval bool   `json:"used_retrieval"`
	ContextLabel  string `json:"context_label"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "message is required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	resp, err := s.service.Chat(ctx, assistant.ChatRequest{
		Message:   payload.Message,
		SessionID: payload.SessionID,
		ClientKey: clientKey(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, assistant.ErrRateLimited):
			writeJSON(w, http.StatusTooManyRequests, errorResponse{
				Detail: "Rate limit exceeded. Please wait a moment before sending " +
					"another message. This helps ensure fair access for all visitors.",
			})
		case errors.Is(err, assistant.ErrNotConfigured):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{
				Detail: "Completion service not configured. Set the API key.",
			})
		case errors.Is(err, assistant.ErrUpstream), errors.Is(err, context.DeadlineExceeded):
			s.logger.Printf("chat turn failed: %v", err)
			writeJSON(w, http.StatusBadGateway, errorResponse{
				Detail: "Unable to process chat right now. Please try again soon.",
			})
		default:
			s.logger.Printf("chat turn failed: %v", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Reply:         resp.Reply,
		SessionID:     resp.SessionID,
		UsedRetrieval: resp.UsedRetrieval,
		ContextLabel:  resp.ContextLabel,
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if s.cfg.AdminToken == "" || s.reindex == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "reindexing is not enabled"})
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) != 1 {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "unauthorized"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	if err := s.reindex(ctx); err != nil {
		s.logger.Printf("reindex failed: %v", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Detail: "reindex failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
}

// clientKey derives a best-effort caller identity for rate limiting: the
// left-most X-Forwarded-For entry, falling back to the transport peer host.
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, found := strings.Cut(fwd, ","); found || first != "" {
			return strings.TrimSpace(first)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed := s.allowOrigin(origin); allowed != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowed)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(origin string) string {
	if s.cfg.Environment != "production" {
		return "*"
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if origin == allowed {
			return origin
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
