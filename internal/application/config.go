package application

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zhmzlzn/modelarena/internal/domain"
)

// Config is the complete specification for a competition run and serves
// as the primary configuration entry point for the system.
type Config struct {
	// Models lists the participating models. Every entry acts as both a
	// potential judge and a contestant.
	Models []ModelConfig `yaml:"models" validate:"required,min=2,dive"`
	// Competition controls round count, question sourcing, scoring, and
	// execution policies.
	Competition CompetitionConfig `yaml:"competition" validate:"required"`
	// Invocation tunes per-call timeouts and the retry budget applied to
	// every model request.
	Invocation InvocationConfig `yaml:"invocation"`
	// Persistence configures where round records and scores are written.
	Persistence PersistenceConfig `yaml:"persistence"`
}

// ModelConfig identifies one participating model and how to reach it.
type ModelConfig struct {
	// Name is the unique roster identifier used in rankings, scores, and
	// reports. Must be alphanumeric with dashes or underscores.
	Name string `yaml:"name" validate:"required,min=1,max=100"`
	// Provider selects the client implementation: openai, anthropic, or
	// google.
	Provider string `yaml:"provider" validate:"required,oneof=openai anthropic google"`
	// Model is the provider-side model identifier.
	Model string `yaml:"model" validate:"required,min=1"`
	// BaseURL overrides the provider's default endpoint when non-empty.
	BaseURL string `yaml:"base_url,omitempty" validate:"omitempty,url"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env" validate:"required,min=1"`
}

// CompetitionConfig controls the shape of a run.
type CompetitionConfig struct {
	// MinModels is the minimum roster size required to run a round. A
	// round needs one judge plus at least two contestants to produce a
	// meaningful ranking.
	MinModels int `yaml:"min_models" validate:"omitempty,min=3"`
	// RemoveAfterFailures removes a model from the active roster after
	// this many consecutive invocation failures. Zero keeps the default.
	RemoveAfterFailures int `yaml:"remove_after_failures" validate:"omitempty,min=1,max=20"`
	// Questions controls where questions come from and how many rounds
	// are played.
	Questions QuestionConfig `yaml:"questions" validate:"required"`
	// Scoring maps ranking positions to points.
	Scoring domain.ScoringPolicy `yaml:"scoring"`
	// Policies toggles execution behaviors.
	Policies PolicyConfig `yaml:"policies"`
}

// QuestionConfig controls question sourcing. One question is asked per
// round, so Count is also the round count.
type QuestionConfig struct {
	// Count is the number of rounds to play.
	Count int `yaml:"count" validate:"required,min=1,max=1000"`
	// Topics filters the question bank when non-empty.
	Topics []string `yaml:"topics" validate:"max=20,dive,min=1,max=50"`
	// Difficulty filters the question bank when non-empty. One of easy,
	// medium, or hard.
	Difficulty string `yaml:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	// Generate asks the first roster model to generate fresh questions
	// instead of drawing from the bank. Falls back to the bank when
	// generation fails.
	Generate bool `yaml:"generate"`
	// BankPath points to a YAML question bank file. Empty uses the
	// built-in bank.
	BankPath string `yaml:"bank_path,omitempty"`
}

// PolicyConfig toggles competition execution behaviors.
type PolicyConfig struct {
	// ParallelExecution runs rounds concurrently. Results are identical
	// to sequential execution; only wall-clock time changes.
	ParallelExecution bool `yaml:"parallel_execution"`
	// MaxConcurrency caps concurrent rounds when ParallelExecution is
	// on. Zero means the round count.
	MaxConcurrency int `yaml:"max_concurrency" validate:"omitempty,min=1,max=64"`
	// RandomizeJudgeOrder presents answers to the judge in a fresh random
	// order each round so positional bias cannot favor any contestant.
	RandomizeJudgeOrder bool `yaml:"randomize_judge_order"`
	// AnonymizeContestants hides contestant names from the judge,
	// presenting answers by position only.
	AnonymizeContestants bool `yaml:"anonymize_contestants"`
	// NormalizeScores adds a 0-1 normalized score column to the final
	// standings.
	NormalizeScores bool `yaml:"normalize_scores"`
}

// InvocationConfig tunes model call behavior.
type InvocationConfig struct {
	// TimeoutSeconds bounds each individual attempt.
	TimeoutSeconds int `yaml:"timeout_seconds" validate:"omitempty,min=1,max=600"`
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int `yaml:"max_retries" validate:"omitempty,min=0,max=10"`
	// BaseDelayMs is the initial backoff delay in milliseconds.
	BaseDelayMs int `yaml:"base_delay_ms" validate:"omitempty,min=1,max=60000"`
	// MaxDelayMs caps the backoff delay in milliseconds.
	MaxDelayMs int `yaml:"max_delay_ms" validate:"omitempty,min=1,max=300000"`
	// RequestsPerSecond rate-limits calls per model when positive.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"omitempty,min=0.01,max=1000"`
	// MaxTokens bounds response length per call.
	MaxTokens int `yaml:"max_tokens" validate:"omitempty,min=1,max=100000"`
}

// PersistenceConfig controls round record storage.
type PersistenceConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `yaml:"path,omitempty"`
	// Async buffers writes through a background worker so slow disks do
	// not stall rounds.
	Async bool `yaml:"async"`
	// QueueSize bounds the async write queue.
	QueueSize int `yaml:"queue_size" validate:"omitempty,min=1,max=100000"`
	// Overflow selects queue-full behavior: block or drop_oldest.
	Overflow string `yaml:"overflow" validate:"omitempty,oneof=block drop_oldest"`
}

// Default tuning values applied by ApplyDefaults.
const (
	DefaultMinModels           = 3
	DefaultRemoveAfterFailures = 3
	DefaultQueueSize           = 256
	DefaultOverflow            = "block"
)

// ApplyDefaults fills zero-valued tunables with their defaults. Called
// by LoadConfig after parsing; exported so programmatic construction
// gets the same treatment.
func (c *Config) ApplyDefaults() {
	if c.Competition.MinModels == 0 {
		c.Competition.MinModels = DefaultMinModels
	}
	if c.Competition.RemoveAfterFailures == 0 {
		c.Competition.RemoveAfterFailures = DefaultRemoveAfterFailures
	}
	if c.Competition.Scoring == (domain.ScoringPolicy{}) {
		c.Competition.Scoring = domain.DefaultScoringPolicy()
	}
	if c.Persistence.QueueSize == 0 {
		c.Persistence.QueueSize = DefaultQueueSize
	}
	if c.Persistence.Overflow == "" {
		c.Persistence.Overflow = DefaultOverflow
	}
}

// Roster converts the configured models into the domain roster,
// preserving configuration order.
func (c *Config) Roster() domain.Roster {
	roster := make(domain.Roster, 0, len(c.Models))
	for _, m := range c.Models {
		roster = append(roster, domain.ModelIdentity{
			Name:      m.Name,
			Provider:  m.Provider,
			Model:     m.Model,
			BaseURL:   m.BaseURL,
			APIKeyEnv: m.APIKeyEnv,
		})
	}
	return roster
}

// AttemptTimeout returns the per-attempt timeout as a duration, zero
// when unset.
func (c *InvocationConfig) AttemptTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig reads, parses, and validates a competition configuration
// from a YAML file.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()
	return LoadConfigFromReader(f)
}

// LoadConfigFromReader parses and validates a competition configuration
// from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateConfig checks struct constraints plus the semantic rules
// validator tags cannot express: unique model names, a roster at least
// as large as min_models, and a coherent scoring ladder.
func ValidateConfig(cfg *Config) error {
	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidConfiguration, err)
	}

	seen := make(map[string]struct{}, len(cfg.Models))
	for _, m := range cfg.Models {
		if _, dup := seen[m.Name]; dup {
			return fmt.Errorf("%w: duplicate model name %q", domain.ErrInvalidConfiguration, m.Name)
		}
		seen[m.Name] = struct{}{}
	}

	if len(cfg.Models) < cfg.Competition.MinModels {
		return fmt.Errorf("%w: %d models configured but min_models is %d",
			domain.ErrInvalidConfiguration, len(cfg.Models), cfg.Competition.MinModels)
	}

	s := cfg.Competition.Scoring
	if s.First < s.Second || s.Second < s.Third || s.Third < s.Other {
		return fmt.Errorf("%w: scoring points must not increase with worse ranks", domain.ErrInvalidConfiguration)
	}

	return nil
}
