package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/ryokun6/ryos-sub006/internal/annotate"
	"github.com/ryokun6/ryos-sub006/internal/provider"
)

// MockChunkStream replays a fixed sequence of text fragments, then ends
// with io.EOF, or with Err when set.
type MockChunkStream struct {
	Chunks []string
	Err    error

	pos    int
	Closed bool
}

// Recv returns the next fragment.
func (m *MockChunkStream) Recv() (string, error) {
	if m.pos < len(m.Chunks) {
		chunk := m.Chunks[m.pos]
		m.pos++
		return chunk, nil
	}
	if m.Err != nil {
		return "", m.Err
	}
	return "", io.EOF
}

// Close records that the stream was released.
func (m *MockChunkStream) Close() error {
	m.Closed = true
	return nil
}

// MockProvider mocks an LLM provider, recording each framed prompt.
type MockProvider struct {
	Chunks    []string
	StreamErr error
	ChunkErr  error
	Calls     []string
	Systems   []string
	Streams   []*MockChunkStream
}

// Name returns the provider name
func (m *MockProvider) Name() string {
	return "mock"
}

// IsAvailable always succeeds.
func (m *MockProvider) IsAvailable() error {
	return nil
}

// Stream records the call and returns a fresh chunk stream over the
// configured fragments.
func (m *MockProvider) Stream(ctx context.Context, system, user string) (provider.ChunkStream, error) {
	m.Calls = append(m.Calls, user)
	m.Systems = append(m.Systems, system)
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	s := &MockChunkStream{Chunks: m.Chunks, Err: m.ChunkErr}
	m.Streams = append(m.Streams, s)
	return s, nil
}

// MockEmitter captures emitted session events in order.
type MockEmitter struct {
	mu     sync.Mutex
	Events []any
}

// Emit appends the event.
func (m *MockEmitter) Emit(event any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

// EventTypes summarizes captured events for assertions, e.g.
// ["start", "line", "complete"].
func (m *MockEmitter) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.Events))
	for _, e := range m.Events {
		switch event := e.(type) {
		case annotate.StartEvent:
			types = append(types, event.Type)
		case annotate.LineEvent:
			types = append(types, event.Type)
		case annotate.CachedEvent:
			types = append(types, event.Type)
		case annotate.CompleteEvent:
			types = append(types, event.Type)
		case annotate.ErrorEvent:
			types = append(types, event.Type)
		default:
			types = append(types, "unknown")
		}
	}
	return types
}

// Lines returns the captured line events in emission order.
func (m *MockEmitter) Lines() []annotate.LineEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var lines []annotate.LineEvent
	for _, e := range m.Events {
		if line, ok := e.(annotate.LineEvent); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

// Complete returns the captured complete event, if any.
func (m *MockEmitter) Complete() (annotate.CompleteEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Events {
		if done, ok := e.(annotate.CompleteEvent); ok {
			return done, true
		}
	}
	return annotate.CompleteEvent{}, false
}
