// Package assistant orchestrates a single chat turn: stale-state sweep,
// admission control, grounding retrieval, completion, and session history
// bookkeeping.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/google/uuid"

	"profile-assistant/internal/domain"
	"profile-assistant/internal/lifecycle"
	"profile-assistant/internal/ratelimit"
	"profile-assistant/internal/session"
)

var (
	// ErrRateLimited marks an admission-control rejection. It is a normal,
	// retriable-later outcome, not a failure of the pipeline.
	ErrRateLimited = errors.New("rate limit exceeded")
	// ErrUpstream marks a terminal completion-service failure for this turn.
	ErrUpstream = errors.New("completion service unavailable")
	// ErrNotConfigured is returned when no completion service was wired at
	// startup; unlike retrieval, the assistant cannot degrade past it.
	ErrNotConfigured = errors.New("completion service not configured")
)

// Context labels reported to callers so fallback use is observable.
const (
	ContextRetrieved = "retrieved"
	ContextStatic    = "static"
)

// fallbackReply replaces an empty completion so the turn still succeeds
// with a non-empty reply.
const fallbackReply = "I couldn't generate a response just now. " +
	"Please try asking in a different way."

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	Message string
	// SessionID continues an existing conversation; empty starts a new one.
	SessionID string
	// ClientKey identifies the caller for rate limiting. Falls back to the
	// session id when the transport provides nothing better.
	ClientKey string
}

// ChatResponse is the turn's outcome plus retrieval metadata.
type ChatResponse struct {
	Reply         string
	SessionID     string
	UsedRetrieval bool
	ContextLabel  string
}

// Assistant wires the conversation stores and the retrieval pipeline around
// a completion service.
type Assistant struct {
	sessions     *session.Store
	limiter      *ratelimit.Limiter
	janitor      *lifecycle.Janitor
	retriever    domain.Retriever
	completer    domain.Completer
	systemPrompt string
	logger       *log.Logger
}

func New(sessions *session.Store, limiter *ratelimit.Limiter, retriever domain.Retriever, completer domain.Completer, systemPrompt string, logger *log.Logger) *Assistant {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Assistant{
		sessions:     sessions,
		limiter:      limiter,
		janitor:      lifecycle.NewJanitor(sessions, limiter, logger),
		retriever:    retriever,
		completer:    completer,
		systemPrompt: systemPrompt,
		logger:       logger,
	}
}

// Chat runs one turn. Session history is only mutated once a definitive
// reply (completion or fallback text) is in hand; a failed turn leaves the
// session exactly as it was.
func (a *Assistant) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	a.janitor.Sweep()

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	a.sessions.Touch(sessionID)

	clientKey := req.ClientKey
	if clientKey == "" {
		clientKey = sessionID
	}
	if !a.limiter.Admit(clientKey) {
		return nil, ErrRateLimited
	}

	if a.completer == nil {
		return nil, ErrNotConfigured
	}

	contextText, usedRetrieval := a.retriever.Retrieve(ctx, req.Message)
	label := ContextStatic
	if usedRetrieval {
		label = ContextRetrieved
	}
	system := a.systemPrompt + "\n\n[PROFILE DATA]\n" + contextText

	history := a.sessions.History(sessionID)
	turn := append(history, domain.NewTextMessage(domain.RoleUser, req.Message))

	reply, err := a.completer.Complete(ctx, system, turn)
	if err != nil {
		a.logger.Printf("chat completion failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if reply == "" {
		reply = fallbackReply
	}

	a.sessions.Append(sessionID, domain.RoleUser, req.Message)
	a.sessions.Append(sessionID, domain.RoleAssistant, reply)

	return &ChatResponse{
		Reply:         reply,
		SessionID:     sessionID,
		UsedRetrieval: usedRetrieval,
		ContextLabel:  label,
	}, nil
}
