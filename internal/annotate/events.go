package annotate

import "github.com/ryokun6/ryos-sub006/internal/ruby"

// Emitter receives session events in order as they occur. The SSE layer
// implements it; tests capture events with a slice-backed mock.
type Emitter interface {
	Emit(event any)
}

// StartEvent opens a generation stream.
type StartEvent struct {
	Type       string `json:"type"`
	TotalLines int    `json:"totalLines"`
	Message    string `json:"message"`
}

// LineEvent reports one finished line. Exactly one of Translation,
// Furigana or Soramimi is set, matching the session kind.
type LineEvent struct {
	Type        string         `json:"type"`
	LineIndex   int            `json:"lineIndex"`
	Translation *string        `json:"translation,omitempty"`
	Furigana    []ruby.Segment `json:"furigana,omitempty"`
	Soramimi    []ruby.Segment `json:"soramimi,omitempty"`
	Progress    int            `json:"progress"`
}

// CachedEvent short-circuits a request with a previously persisted (or
// deterministically derived) annotation set.
type CachedEvent struct {
	Type        string           `json:"type"`
	Translation []string         `json:"translation,omitempty"`
	Furigana    [][]ruby.Segment `json:"furigana,omitempty"`
	Soramimi    [][]ruby.Segment `json:"soramimi,omitempty"`
}

// CompleteEvent closes a successful generation with the full aligned
// result arrays.
type CompleteEvent struct {
	Type         string           `json:"type"`
	TotalLines   int              `json:"totalLines"`
	SuccessCount int              `json:"successCount"`
	Translations []string         `json:"translations,omitempty"`
	Furigana     [][]ruby.Segment `json:"furigana,omitempty"`
	Soramimi     [][]ruby.Segment `json:"soramimi,omitempty"`
	Success      bool             `json:"success"`
}

// ErrorEvent reports an upstream failure after the stream has opened.
type ErrorEvent struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
