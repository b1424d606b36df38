package provider

import (
	"context"
	"fmt"
	"io"
	"iter"

	"google.golang.org/genai"
)

// GeminiProvider streams completions from the Gemini API.
type GeminiProvider struct {
	apiKey string
	model  string
	temp   float32
}

// NewGeminiProvider creates a Gemini-backed provider.
func NewGeminiProvider(config *Config) *GeminiProvider {
	model := config.GeminiModel
	if model == "" {
		model = DefaultConfig().GeminiModel
	}
	return &GeminiProvider{
		apiKey: config.GeminiKey,
		model:  model,
		temp:   config.Temperature,
	}
}

// Name returns the provider name
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// IsAvailable checks if the provider is properly configured
func (p *GeminiProvider) IsAvailable() error {
	if p.apiKey == "" {
		return fmt.Errorf("Gemini API key not configured")
	}
	return nil
}

// Stream opens a streaming generation for the framed prompt.
func (p *GeminiProvider) Stream(ctx context.Context, system, user string) (ChunkStream, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("Gemini client error: %w", err)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr(p.temp),
	}
	seq := client.Models.GenerateContentStream(ctx, p.model, genai.Text(user), config)
	next, stop := iter.Pull2(seq)
	return &geminiStream{next: next, stop: stop}, nil
}

type geminiStream struct {
	next func() (*genai.GenerateContentResponse, error, bool)
	stop func()
}

// Recv returns the next text delta, translating iterator exhaustion into
// io.EOF so all providers signal stream end the same way.
func (s *geminiStream) Recv() (string, error) {
	resp, err, ok := s.next()
	if !ok {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return resp.Text(), nil
}

// Close stops the underlying iterator.
func (s *geminiStream) Close() error {
	s.stop()
	return nil
}
