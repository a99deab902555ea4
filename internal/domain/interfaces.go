package domain

import "context"

// Retriever produces grounding context for a user query. The boolean reports
// whether retrieved chunks were used or the static fallback context.
type Retriever interface {
	Retrieve(ctx context.Context, query string) (string, bool)
}

// Completer produces an assistant reply from a system prompt and history.
type Completer interface {
	Complete(ctx context.Context, system string, history []Message) (string, error)
}
