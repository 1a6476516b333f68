package llm

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

// Default retry configuration.
const (
	// DefaultMaxRetries is the default number of retries after the
	// initial attempt.
	DefaultMaxRetries = 3
	// DefaultBaseDelay is the initial delay before the first retry.
	DefaultBaseDelay = 1 * time.Second
	// DefaultMaxDelay caps the delay between attempts.
	DefaultMaxDelay = 30 * time.Second
	// DefaultAttemptTimeout bounds each individual attempt.
	DefaultAttemptTimeout = 60 * time.Second
	// DefaultJitterPercent randomizes delays to avoid request storms.
	DefaultJitterPercent = 0.1
)

// InvocationKind classifies how an invocation failed.
type InvocationKind int

const (
	// KindRetryable marks a transient failure that was (or could be)
	// retried. It only escapes the Invoker when the parent context is
	// cancelled mid-retry.
	KindRetryable InvocationKind = iota
	// KindNonRetryable marks a failure that retrying cannot fix, such as
	// a rejected credential or malformed request.
	KindNonRetryable
	// KindExhausted marks a transient failure that persisted through the
	// whole retry budget.
	KindExhausted
)

// String returns the kind's wire name.
func (k InvocationKind) String() string {
	switch k {
	case KindRetryable:
		return "retryable"
	case KindNonRetryable:
		return "non_retryable"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// InvocationError is the uniform failure type the competition core sees
// from model invocations.
type InvocationError struct {
	// Model is the roster name of the model that failed.
	Model string
	// Kind classifies the failure.
	Kind InvocationKind
	// Attempts counts how many attempts were made.
	Attempts int
	// Cause is the last underlying error.
	Cause error
}

// Error implements the error interface.
func (e *InvocationError) Error() string {
	return fmt.Sprintf("invoking %s failed (%s, %d attempts): %v", e.Model, e.Kind, e.Attempts, e.Cause)
}

// Unwrap returns the last underlying error.
func (e *InvocationError) Unwrap() error { return e.Cause }

// RetryPolicy controls the Invoker's backoff behavior.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int
	// BaseDelay is the delay before the first retry; subsequent delays
	// grow exponentially.
	BaseDelay time.Duration
	// MaxDelay caps the backoff.
	MaxDelay time.Duration
	// JitterPercent adds +/- this fraction of the delay as jitter.
	JitterPercent float64
}

// DefaultRetryPolicy returns the standard retry settings.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    DefaultMaxRetries,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		JitterPercent: DefaultJitterPercent,
	}
}

var _ ports.ModelInvoker = (*Invoker)(nil)

// Invoker resolves model identities to their configured clients and
// executes calls with a per-attempt timeout and retry with exponential
// backoff. It holds no mutable state and is safe for concurrent use.
type Invoker struct {
	clients        map[string]ports.LLMClient
	attemptTimeout time.Duration
	policy         RetryPolicy
}

// NewInvoker creates an Invoker over a name-to-client mapping, normally
// produced by BuildClients. A zero attemptTimeout falls back to the
// default.
func NewInvoker(clients map[string]ports.LLMClient, attemptTimeout time.Duration, policy RetryPolicy) *Invoker {
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Invoker{
		clients:        clients,
		attemptTimeout: attemptTimeout,
		policy:         policy,
	}
}

// Invoke calls the named model with the prompt, retrying transient
// failures. Failures surface as *InvocationError; the round scheduler
// keys off the Kind to decide between exclusion and abandonment.
func (inv *Invoker) Invoke(ctx context.Context, model domain.ModelIdentity, prompt string, options map[string]any) (string, error) {
	client, ok := inv.clients[model.Name]
	if !ok {
		return "", &InvocationError{
			Model: model.Name,
			Kind:  KindNonRetryable,
			Cause: fmt.Errorf("no client configured for model %q", model.Name),
		}
	}

	var lastErr error
	for attempt := 0; attempt <= inv.policy.MaxRetries; attempt++ {
		response, err := inv.attempt(ctx, client, prompt, options)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if !isRetryable(err) {
			return "", &InvocationError{
				Model:    model.Name,
				Kind:     KindNonRetryable,
				Attempts: attempt + 1,
				Cause:    err,
			}
		}

		if attempt == inv.policy.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return "", &InvocationError{
				Model:    model.Name,
				Kind:     KindRetryable,
				Attempts: attempt + 1,
				Cause:    ctx.Err(),
			}
		case <-time.After(inv.retryDelay(attempt)):
		}
	}

	return "", &InvocationError{
		Model:    model.Name,
		Kind:     KindExhausted,
		Attempts: inv.policy.MaxRetries + 1,
		Cause:    lastErr,
	}
}

// attempt runs one call under the per-attempt deadline.
func (inv *Invoker) attempt(ctx context.Context, client ports.LLMClient, prompt string, options map[string]any) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, inv.attemptTimeout)
	defer cancel()
	return client.Complete(attemptCtx, prompt, options)
}

// isRetryable reports whether an attempt error is worth retrying.
// Classified provider errors carry their own retryability; a deadline
// expiry on the attempt context is a timeout and therefore transient.
func isRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	// Unclassified errors are treated as transient network problems.
	return true
}

// retryDelay computes the exponential backoff with jitter for an attempt.
func (inv *Invoker) retryDelay(attempt int) time.Duration {
	if attempt > 30 {
		attempt = 30
	}
	delay := inv.policy.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > inv.policy.MaxDelay {
		delay = inv.policy.MaxDelay
	}

	jitter := int64(float64(delay) * inv.policy.JitterPercent)
	if jitter > 0 {
		//nolint:gosec // G404: math/rand is acceptable for retry jitter.
		delay += time.Duration(rand.Int64N(2*jitter) - jitter)
	}

	if delay < inv.policy.BaseDelay {
		return inv.policy.BaseDelay
	}
	return delay
}
