package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingCore tags the response with its label so tests can observe
// middleware ordering.
type recordingCore struct {
	label string
	trace *[]string
}

func (r *recordingCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	*r.trace = append(*r.trace, r.label)
	return "ok", nil
}

func (r *recordingCore) GetModel() string { return "trace-model" }

func labelMiddleware(label string, trace *[]string) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &labeledCore{label: label, trace: trace, next: next}
	}
}

type labeledCore struct {
	label string
	trace *[]string
	next  CoreLLM
}

func (l *labeledCore) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, error) {
	*l.trace = append(*l.trace, l.label)
	return l.next.DoRequest(ctx, prompt, opts)
}

func (l *labeledCore) GetModel() string { return l.next.GetModel() }

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := NewClient("carrier-pigeon", ClientConfig{APIKey: "key"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestNewClient_MiddlewareOrder(t *testing.T) {
	var trace []string
	RegisterProviderFactory("trace-test", func(config ClientConfig) (CoreLLM, error) {
		return &recordingCore{label: "core", trace: &trace}, nil
	})

	client, err := NewClient("trace-test", ClientConfig{
		APIKey: "key",
		Middleware: []Middleware{
			labelMiddleware("first", &trace),
			labelMiddleware("second", &trace),
		},
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "core"}, trace,
		"first middleware entry must be the outermost wrapper")
	assert.Equal(t, "trace-model", client.GetModel())
}

func TestNewClient_RegisteredProviders(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic", "google"} {
		t.Run(provider, func(t *testing.T) {
			_, ok := providerFactories[provider]
			assert.True(t, ok, "provider %s must self-register", provider)
		})
	}
}
