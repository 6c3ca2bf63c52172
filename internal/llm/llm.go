// Package llm wraps the hosted model behind a narrow completion interface.
package llm

import "context"

// Completion is the model's answer plus the token usage it reported.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Completer performs a single completion call. Implementations must respect
// ctx cancellation; the call is not retried because it is not provably
// idempotent against billing.
type Completer interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}
