// Package provider connects annotation sessions to an LLM. The model is
// treated as a black-box source of ordered text chunks; everything above
// this package only sees the ChunkStream interface.
package provider

import (
	"context"
	"fmt"
)

// ChunkStream is an ordered sequence of text fragments from the model.
// Recv returns io.EOF when the stream ends normally.
type ChunkStream interface {
	Recv() (string, error)
	Close() error
}

// Provider opens a chunk stream for a framed prompt.
type Provider interface {
	// Stream starts a completion for the given system instruction and
	// user payload and returns the token stream.
	Stream(ctx context.Context, system, user string) (ChunkStream, error)

	// Name returns the provider name
	Name() string

	// IsAvailable checks if the provider is properly configured and available
	IsAvailable() error
}

// Config holds common configuration for LLM providers
type Config struct {
	Provider string // Provider name: "openai" or "gemini"

	// OpenAI-specific settings
	OpenAIKey   string
	OpenAIModel string // e.g. "gpt-4o-mini"

	// Gemini-specific settings
	GeminiKey   string
	GeminiModel string // e.g. "gemini-2.0-flash"

	Temperature float32
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Provider:    "openai",
		OpenAIModel: "gpt-4o-mini",
		GeminiModel: "gemini-2.0-flash",
		Temperature: 0.3,
	}
}

// NewProvider creates the appropriate LLM provider based on configuration
func NewProvider(config *Config) (Provider, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case "openai":
		if config.OpenAIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is required")
		}
		return NewOpenAIProvider(config), nil

	case "gemini":
		if config.GeminiKey == "" {
			return nil, fmt.Errorf("Gemini API key is required")
		}
		return NewGeminiProvider(config), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", config.Provider)
	}
}
