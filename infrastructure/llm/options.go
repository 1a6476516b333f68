package llm

import (
	"fmt"
	"net/url"
	"sync"
	"time"
)

// Valid ranges for common request parameters, shared across providers.
const (
	// MinTemperature is the minimum allowed temperature.
	MinTemperature = 0.0
	// MaxTemperature is the maximum allowed temperature. Set to 2.0 to
	// accommodate providers like Gemini.
	MaxTemperature = 2.0
	// MinTopP is the minimum allowed top_p value.
	MinTopP = 0.0
	// MaxTopP is the maximum allowed top_p value.
	MaxTopP = 1.0
	// DefaultMaxTokens is used when the caller does not set max_tokens.
	DefaultMaxTokens = 2000
	// MinTimeout is the smallest accepted request timeout.
	MinTimeout = 1 * time.Second
	// MaxTimeout is the largest accepted request timeout.
	MaxTimeout = 10 * time.Minute
)

// BaseProvider provides thread-safe model-name storage shared by the
// provider implementations.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the configured model name. Safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// RequestOptions is the standardized parameter set extracted from the
// free-form options map passed to Complete.
type RequestOptions struct {
	// MaxTokens caps the generated output length.
	MaxTokens int
	// Model overrides the client's configured model for this request.
	Model string
	// Temperature controls output randomness; nil means provider default.
	Temperature *float64
	// TopP enables nucleus sampling; nil means provider default.
	TopP *float64
	// System is an optional system prompt.
	System string
}

// ParseRequestOptions extracts known parameters from an options map,
// falling back to defaults for missing or out-of-range entries.
func ParseRequestOptions(opts map[string]any, defaultModel string) RequestOptions {
	options := RequestOptions{
		MaxTokens: DefaultMaxTokens,
		Model:     defaultModel,
	}

	if v, ok := opts["max_tokens"].(int); ok && v > 0 {
		options.MaxTokens = v
	}
	if v, ok := opts["model"].(string); ok && v != "" {
		options.Model = v
	}
	if v, ok := opts["system"].(string); ok {
		options.System = v
	}
	if v, ok := toFloat64(opts["temperature"]); ok && v >= MinTemperature && v <= MaxTemperature {
		options.Temperature = &v
	}
	if v, ok := toFloat64(opts["top_p"]); ok && v >= MinTopP && v <= MaxTopP {
		options.TopP = &v
	}

	return options
}

// toFloat64 accepts the numeric types YAML and JSON decoding produce.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

// ValidateBaseURL checks that a base URL override is a well-formed http or
// https URL. An empty string is valid and selects the provider default.
func ValidateBaseURL(baseURL string) (string, error) {
	if baseURL == "" {
		return "", nil
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL format: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", fmt.Errorf("URL scheme must be http or https, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("URL must include a host")
	}

	return parsed.String(), nil
}

// ValidateTimeout clamps a timeout into the accepted range.
func ValidateTimeout(timeout time.Duration) time.Duration {
	if timeout < MinTimeout {
		return MinTimeout
	}
	if timeout > MaxTimeout {
		return MaxTimeout
	}
	return timeout
}

// clamp restricts a float64 value to a range.
func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
