// Package llm provides the model-invocation layer of the arena: provider
// implementations for OpenAI, Anthropic, and Google behind a common CoreLLM
// interface, a functional middleware chain for rate limiting, metrics, and
// tracing, and the retrying Invoker used by the competition core.
//
// Basic usage:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o",
//	})
//	text, err := client.Complete(ctx, "Hello", nil)
//
// With middleware:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: os.Getenv("ANTHROPIC_API_KEY"),
//	    Model:  "claude-sonnet-4-20250514",
//	    Middleware: []llm.Middleware{
//	        llm.RateLimitMiddleware(10, 20),
//	        llm.MetricsMiddleware(collector),
//	    },
//	})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/zhmzlzn/modelarena/internal/ports"
)

// CoreLLM is the minimal interface a provider must implement. Middleware
// wraps any conforming implementation without knowing the provider.
type CoreLLM interface {
	// DoRequest sends a prompt to the provider and returns the response
	// text. The opts map carries provider-tunable parameters such as
	// temperature and max_tokens.
	DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error)

	// GetModel returns the currently configured model name.
	GetModel() string
}

// Middleware wraps a CoreLLM to add cross-cutting behavior. Middleware
// composes: the first entry in a chain is the outermost wrapper.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds the settings for creating a provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model is the provider-side model identifier.
	Model string

	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string

	// Timeout bounds each HTTP request at the transport level. The
	// Invoker applies its own per-attempt deadline on top of this.
	Timeout time.Duration

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client adapts a wrapped CoreLLM to the ports.LLMClient interface.
type Client struct {
	core CoreLLM
}

var _ ports.LLMClient = (*Client)(nil)

// NewClient builds a client for the named provider, assembling the
// middleware chain around the provider implementation.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first entry is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core}, nil
}

// Complete sends a prompt and returns the generated text.
func (c *Client) Complete(ctx context.Context, prompt string, options map[string]any) (string, error) {
	return c.core.DoRequest(ctx, prompt, options)
}

// GetModel returns the model identifier of the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// ProviderFactory creates a CoreLLM from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under a type name.
// Providers in this package register themselves in init.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
