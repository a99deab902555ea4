package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"profile-assistant/internal/domain"
	"profile-assistant/internal/ratelimit"
	"profile-assistant/internal/session"
)

type stubRetriever struct {
	context   string
	retrieved bool
}

func (r *stubRetriever) Retrieve(ctx context.Context, query string) (string, bool) {
	return r.context, r.retrieved
}

type stubCompleter struct {
	reply      string
	err        error
	lastSystem string
	lastTurns  []domain.Message
}

func (c *stubCompleter) Complete(ctx context.Context, system string, history []domain.Message) (string, error) {
	c.lastSystem = system
	c.lastTurns = history
	return c.reply, c.err
}

func testLimits() session.Limits {
	return session.Limits{
		MaxMessages:       40,
		CompactAfter:      30,
		CompactKeepRecent: 20,
		CompactCharLimit:  1200,
		MaxAge:            time.Hour,
	}
}

func newTestAssistant(retriever domain.Retriever, completer domain.Completer) (*Assistant, *session.Store) {
	sessions := session.NewStore(testLimits())
	limiter := ratelimit.NewLimiter(20, time.Minute)
	a := New(sessions, limiter, retriever, completer, "You are a helpful assistant.", nil)
	return a, sessions
}

func TestChat_SuccessAppendsBothTurns(t *testing.T) {
	completer := &stubCompleter{reply: "Hello there."}
	a, sessions := newTestAssistant(&stubRetriever{context: "ctx", retrieved: true}, completer)

	resp, err := a.Chat(context.Background(), ChatRequest{Message: "Hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "Hello there." {
		t.Errorf("reply = %q", resp.Reply)
	}
	if resp.SessionID == "" {
		t.Error("missing generated session id")
	}
	if !resp.UsedRetrieval || resp.ContextLabel != ContextRetrieved {
		t.Errorf("retrieval metadata = (%v, %q)", resp.UsedRetrieval, resp.ContextLabel)
	}

	history := sessions.History(resp.SessionID)
	if len(history) != 2 {
		t.Fatalf("history length = %d, want 2", len(history))
	}
	if history[0].Role != domain.RoleUser || history[1].Role != domain.RoleAssistant {
		t.Errorf("history roles = %v, %v", history[0].Role, history[1].Role)
	}
}

func TestChat_SessionIDReused(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	a, _ := newTestAssistant(&stubRetriever{context: "ctx"}, completer)

	first, err := a.Chat(context.Background(), ChatRequest{Message: "one"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := a.Chat(context.Background(), ChatRequest{Message: "two", SessionID: first.SessionID})
	if err != nil {
		t.Fatal(err)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("session id changed: %q vs %q", first.SessionID, second.SessionID)
	}
	// The second turn should have seen the first exchange in its history.
	if len(completer.lastTurns) != 3 {
		t.Fatalf("completer saw %d turns, want 3", len(completer.lastTurns))
	}
}

func TestChat_SystemPromptCarriesContext(t *testing.T) {
	completer := &stubCompleter{reply: "ok"}
	a, _ := newTestAssistant(&stubRetriever{context: "retrieved facts", retrieved: true}, completer)

	if _, err := a.Chat(context.Background(), ChatRequest{Message: "hi"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(completer.lastSystem, "[PROFILE DATA]\nretrieved facts") {
		t.Errorf("system prompt missing grounding section: %q", completer.lastSystem)
	}
	if !strings.HasPrefix(completer.lastSystem, "You are a helpful assistant.") {
		t.Errorf("system prompt missing base instructions: %q", completer.lastSystem)
	}
}

func TestChat_StaticContextLabel(t *testing.T) {
	a, _ := newTestAssistant(&stubRetriever{context: "static digest", retrieved: false}, &stubCompleter{reply: "ok"})
	resp, err := a.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.UsedRetrieval || resp.ContextLabel != ContextStatic {
		t.Errorf("retrieval metadata = (%v, %q), want static", resp.UsedRetrieval, resp.ContextLabel)
	}
}

func TestChat_RateLimitRejection(t *testing.T) {
	sessions := session.NewStore(testLimits())
	limiter := ratelimit.NewLimiter(2, time.Minute)
	a := New(sessions, limiter, &stubRetriever{context: "ctx"}, &stubCompleter{reply: "ok"}, "prompt", nil)

	req := ChatRequest{Message: "hi", ClientKey: "client-1"}
	for i := 0; i < 2; i++ {
		if _, err := a.Chat(context.Background(), req); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	_, err := a.Chat(context.Background(), req)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("third request error = %v, want ErrRateLimited", err)
	}
}

func TestChat_NoCompleterConfigured(t *testing.T) {
	a, _ := newTestAssistant(&stubRetriever{context: "ctx"}, nil)
	_, err := a.Chat(context.Background(), ChatRequest{Message: "hi"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}

func TestChat_UpstreamFailureLeavesSessionUntouched(t *testing.T) {
	completer := &stubCompleter{err: errors.New("api timeout")}
	a, sessions := newTestAssistant(&stubRetriever{context: "ctx"}, completer)

	resp, err := a.Chat(context.Background(), ChatRequest{Message: "hi", SessionID: "s1"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("error = %v, want ErrUpstream", err)
	}
	if resp != nil {
		t.Fatalf("response = %v, want nil", resp)
	}
	if got := sessions.History("s1"); len(got) != 0 {
		t.Fatalf("failed turn mutated history: %d messages", len(got))
	}
}

func TestChat_EmptyCompletionUsesFallbackReply(t *testing.T) {
	a, sessions := newTestAssistant(&stubRetriever{context: "ctx"}, &stubCompleter{reply: ""})
	resp, err := a.Chat(context.Background(), ChatRequest{Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "couldn't generate a response") {
		t.Errorf("reply = %q, want fallback text", resp.Reply)
	}
	// The fallback still counts as a completed turn.
	if got := sessions.History(resp.SessionID); len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
}
