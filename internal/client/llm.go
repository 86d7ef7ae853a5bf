package client

import (
	"context"
	"time"
)

// ChatRequest is a single-turn prompt sent to an LLM provider.
type ChatRequest struct {
	System string
	Prompt string
	// JSON asks the provider for a JSON object response.
	JSON        bool
	Temperature float32
	MaxTokens   int
}

// withTimeout bounds ctx by d. A zero d leaves ctx unbounded.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
