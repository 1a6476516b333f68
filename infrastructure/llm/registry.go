package llm

import (
	"fmt"
	"os"
	"time"

	"github.com/zhmzlzn/modelarena/internal/domain"
	"github.com/zhmzlzn/modelarena/internal/ports"
)

// BuildOptions configures client construction for a roster.
type BuildOptions struct {
	// Timeout is the transport-level request timeout for every client.
	Timeout time.Duration

	// Middleware is applied to every client, first entry outermost.
	Middleware []Middleware

	// LookupEnv resolves credential environment variables. Defaults to
	// os.LookupEnv; tests substitute a map lookup.
	LookupEnv func(string) (string, bool)
}

// BuildClients constructs one client per roster entry, resolving each
// model's credential from its configured environment variable. It fails
// fast on the first unbuildable model so a misconfigured roster aborts
// the run before any question is asked.
func BuildClients(roster domain.Roster, opts BuildOptions) (map[string]ports.LLMClient, error) {
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	clients := make(map[string]ports.LLMClient, len(roster))
	for _, model := range roster {
		apiKey, ok := lookup(model.APIKeyEnv)
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("model %s: credential env %q is not set", model.Name, model.APIKeyEnv)
		}

		client, err := NewClient(model.Provider, ClientConfig{
			APIKey:     apiKey,
			Model:      model.Model,
			BaseURL:    model.BaseURL,
			Timeout:    opts.Timeout,
			Middleware: opts.Middleware,
		})
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", model.Name, err)
		}
		clients[model.Name] = client
	}

	return clients, nil
}
