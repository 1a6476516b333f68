// Package ports defines the interfaces through which the competition core
// talks to its collaborators: model endpoints, question sources, the
// persistence sink, and metrics. Implementations live under infrastructure/.
package ports

import (
	"context"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// LLMClient is the uniform completion capability for one configured model.
// Implementations handle provider-specific request shaping, authentication,
// and response parsing; the core only sees "prompt in, text or error out".
type LLMClient interface {
	// Complete sends a prompt and returns the generated text.
	// The options map carries provider-tunable parameters such as
	// "temperature" (float64) and "max_tokens" (int).
	Complete(ctx context.Context, prompt string, options map[string]any) (string, error)

	// GetModel returns the provider-side model identifier, for logging.
	GetModel() string
}

// ModelInvoker invokes roster models with a bounded per-attempt timeout and
// a retry budget. Failures surface as *llm.InvocationError classified as
// retryable, non-retryable, or exhausted.
//
// Invoke is safe for concurrent use across distinct models; no ordering is
// guaranteed across calls.
type ModelInvoker interface {
	Invoke(ctx context.Context, model domain.ModelIdentity, prompt string, options map[string]any) (string, error)
}
