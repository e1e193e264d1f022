package inferguard

import (
	"context"
	"time"
)

// ModelClient is the model-invocation collaborator. Implementations talk
// to one upstream provider family; failures come back as returned errors,
// and the pipeline decides fallback from the error, never from a panic.
type ModelClient interface {
	// Complete performs a synchronous completion.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// CompletionRequest is the request sent to the model collaborator.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// CompletionResponse is the collaborator's answer.
type CompletionResponse struct {
	Text       string
	Model      string // model actually used; may differ from the request
	Usage      Usage
	ResponseID string
	CreatedAt  time.Time
}

// MemoryProvider is the read-only memory/context collaborator feeding the
// intake stage.
type MemoryProvider interface {
	Recall(ctx context.Context, input, sessionID string) (MemoryContext, error)
}

// MemoryContext is a textual summary of prior session context plus the
// access log of what was consulted to produce it.
type MemoryContext struct {
	Summary   string
	AccessLog []string
}
