package provider

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider streams chat completions from the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	temp   float32
}

// NewOpenAIProvider creates an OpenAI-backed provider.
func NewOpenAIProvider(config *Config) *OpenAIProvider {
	model := config.OpenAIModel
	if model == "" {
		model = DefaultConfig().OpenAIModel
	}
	return &OpenAIProvider{
		client: openai.NewClient(config.OpenAIKey),
		model:  model,
		temp:   config.Temperature,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// IsAvailable checks if the provider is properly configured
func (p *OpenAIProvider) IsAvailable() error {
	if p.client == nil {
		return fmt.Errorf("OpenAI client not initialized")
	}
	return nil
}

// Stream opens a streaming chat completion for the framed prompt.
func (p *OpenAIProvider) Stream(ctx context.Context, system, user string) (ChunkStream, error) {
	req := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: p.temp,
		Stream:      true,
	}

	s, err := p.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	return &openaiStream{stream: s}, nil
}

type openaiStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns the next text delta. io.EOF passes through untouched so
// callers can detect normal stream end.
func (s *openaiStream) Recv() (string, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

// Close releases the underlying HTTP stream.
func (s *openaiStream) Close() error {
	return s.stream.Close()
}
