package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

func mapLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestBuildClients(t *testing.T) {
	roster := domain.Roster{
		{Name: "alpha", Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "ALPHA_KEY"},
		{Name: "beta", Provider: "anthropic", Model: "claude-3-5-sonnet-20241022", APIKeyEnv: "BETA_KEY"},
	}

	clients, err := BuildClients(roster, BuildOptions{
		Timeout: 10 * time.Second,
		LookupEnv: mapLookup(map[string]string{
			"ALPHA_KEY": "sk-alpha",
			"BETA_KEY":  "sk-beta",
		}),
	})

	require.NoError(t, err)
	require.Len(t, clients, 2)
	assert.Equal(t, "gpt-4o-mini", clients["alpha"].GetModel())
	assert.Equal(t, "claude-3-5-sonnet-20241022", clients["beta"].GetModel())
}

func TestBuildClients_MissingCredential(t *testing.T) {
	roster := domain.Roster{
		{Name: "alpha", Provider: "openai", Model: "gpt-4o-mini", APIKeyEnv: "ALPHA_KEY"},
	}

	_, err := BuildClients(roster, BuildOptions{LookupEnv: mapLookup(nil)})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ALPHA_KEY")
}

func TestBuildClients_UnknownProvider(t *testing.T) {
	roster := domain.Roster{
		{Name: "alpha", Provider: "smoke-signal", Model: "v1", APIKeyEnv: "ALPHA_KEY"},
	}

	_, err := BuildClients(roster, BuildOptions{
		LookupEnv: mapLookup(map[string]string{"ALPHA_KEY": "sk"}),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}
