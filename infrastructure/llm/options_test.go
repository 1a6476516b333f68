package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	tests := []struct {
		name string
		opts map[string]any
		want func(t *testing.T, got RequestOptions)
	}{
		{
			name: "defaults when empty",
			opts: nil,
			want: func(t *testing.T, got RequestOptions) {
				assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
				assert.Equal(t, "default-model", got.Model)
				assert.Nil(t, got.Temperature)
				assert.Nil(t, got.TopP)
			},
		},
		{
			name: "explicit values",
			opts: map[string]any{
				"max_tokens":  512,
				"model":       "other-model",
				"temperature": 0.2,
				"top_p":       0.9,
				"system":      "be fair",
			},
			want: func(t *testing.T, got RequestOptions) {
				assert.Equal(t, 512, got.MaxTokens)
				assert.Equal(t, "other-model", got.Model)
				require.NotNil(t, got.Temperature)
				assert.Equal(t, 0.2, *got.Temperature)
				require.NotNil(t, got.TopP)
				assert.Equal(t, 0.9, *got.TopP)
				assert.Equal(t, "be fair", got.System)
			},
		},
		{
			name: "integer temperature accepted",
			opts: map[string]any{"temperature": 1},
			want: func(t *testing.T, got RequestOptions) {
				require.NotNil(t, got.Temperature)
				assert.Equal(t, 1.0, *got.Temperature)
			},
		},
		{
			name: "out of range values ignored",
			opts: map[string]any{"temperature": 5.0, "top_p": 2.0, "max_tokens": -1},
			want: func(t *testing.T, got RequestOptions) {
				assert.Nil(t, got.Temperature)
				assert.Nil(t, got.TopP)
				assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want(t, ParseRequestOptions(tt.opts, "default-model"))
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		wantErr bool
	}{
		{name: "empty is valid", baseURL: "", wantErr: false},
		{name: "https accepted", baseURL: "https://api.example.com/v1", wantErr: false},
		{name: "http accepted", baseURL: "http://localhost:8080", wantErr: false},
		{name: "missing scheme rejected", baseURL: "api.example.com", wantErr: true},
		{name: "wrong scheme rejected", baseURL: "ftp://api.example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateBaseURL(tt.baseURL)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTimeout(t *testing.T) {
	assert.Equal(t, MinTimeout, ValidateTimeout(0))
	assert.Equal(t, MaxTimeout, ValidateTimeout(time.Hour))
	assert.Equal(t, 30*time.Second, ValidateTimeout(30*time.Second))
}
