// Package domain contains the pure data types of the competition engine:
// model identities, questions, round records, score tables, and the error
// taxonomy. It has no I/O and no dependencies on the infrastructure layers.
package domain

import "fmt"

// ModelIdentity describes one participating model endpoint.
// Identities are loaded from configuration and are immutable for the
// duration of a run; the core only ever reads them.
type ModelIdentity struct {
	// Name uniquely identifies the model within a competition.
	// All round records and score tables key off this value.
	Name string `json:"name" yaml:"name"`

	// Provider selects the invocation backend ("openai", "anthropic",
	// "google").
	Provider string `json:"provider" yaml:"provider"`

	// Model is the provider-side model identifier, e.g. "gpt-4o".
	Model string `json:"model" yaml:"model"`

	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// APIKeyEnv names the environment variable holding the credential.
	// The credential itself is never stored on the identity.
	APIKeyEnv string `json:"api_key_env,omitempty" yaml:"api_key_env,omitempty"`
}

// String returns a short human-readable form used in logs and errors.
func (m ModelIdentity) String() string {
	return fmt.Sprintf("%s (%s/%s)", m.Name, m.Provider, m.Model)
}

// Roster is the ordered set of model identities eligible to participate
// in a competition run. Order matters: judge rotation and contestant
// ordering are both defined relative to roster order.
type Roster []ModelIdentity

// Names returns the model names in roster order.
func (r Roster) Names() []string {
	names := make([]string, len(r))
	for i, m := range r {
		names[i] = m.Name
	}
	return names
}

// Lookup returns the identity with the given name, or false if the name
// is not on the roster.
func (r Roster) Lookup(name string) (ModelIdentity, bool) {
	for _, m := range r {
		if m.Name == name {
			return m, true
		}
	}
	return ModelIdentity{}, false
}

// Without returns a copy of the roster with the named model removed,
// preserving the relative order of the remaining entries.
func (r Roster) Without(name string) Roster {
	out := make(Roster, 0, len(r))
	for _, m := range r {
		if m.Name != name {
			out = append(out, m)
		}
	}
	return out
}
