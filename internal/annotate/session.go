// Package annotate runs the incremental annotation state machine: it
// pre-seeds fallbacks, consumes the model's chunk stream, correlates
// numbered results back to lyric lines and emits progress events until
// the stream completes or fails.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/ryokun6/ryos-sub006/internal/lyrics"
	"github.com/ryokun6/ryos-sub006/internal/prompt"
	"github.com/ryokun6/ryos-sub006/internal/provider"
	"github.com/ryokun6/ryos-sub006/internal/ruby"
	"github.com/ryokun6/ryos-sub006/internal/stream"
)

// ErrNoLyrics signals missing or unparseable lyrics. It fails a request
// before any stream starts.
var ErrNoLyrics = errors.New("no lyrics available")

// State is the session lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarted
	StateStreaming
	StateCompleted
	StateFailed
)

// String returns the state name for diagnostics.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarted:
		return "started"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Session is the ephemeral state for one in-flight annotation request.
// It is created at generation start and discarded at stream end, never
// persisted itself.
type Session struct {
	ID   string
	Kind prompt.Kind
	Lang string

	state     State
	lines     []lyrics.Line
	frame     *prompt.Frame
	emitter   Emitter
	buf       stream.Reassembler
	confirmed []bool
	completed int

	// Exactly one of these holds results, matching Kind.
	translations []string
	segments     [][]ruby.Segment
}

// NewSession creates an idle session for the given framed request.
func NewSession(kind prompt.Kind, lang string, lines []lyrics.Line, frame *prompt.Frame, emitter Emitter) *Session {
	s := &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		Lang:      lang,
		lines:     lines,
		frame:     frame,
		emitter:   emitter,
		confirmed: make([]bool, len(lines)),
	}
	if kind == prompt.KindTranslation {
		s.translations = make([]string, len(lines))
	} else {
		s.segments = make([][]ruby.Segment, len(lines))
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// SuccessCount is the number of lines confirmed so far, locally resolved
// lines included.
func (s *Session) SuccessCount() int {
	return s.completed
}

// Translations returns the aligned result array for translation sessions.
func (s *Session) Translations() []string {
	return s.translations
}

// Segments returns the aligned result array for furigana and soramimi
// sessions.
func (s *Session) Segments() [][]ruby.Segment {
	return s.segments
}

// Start pre-seeds every line with its safe fallback (the plain original
// text, no reading), emits the start event, then immediately emits a line
// event for every line resolvable without the model. No network round
// trip happens before those events reach the client.
func (s *Session) Start() {
	for i, line := range s.lines {
		if s.translations != nil {
			s.translations[i] = line.Words
		} else {
			s.segments[i] = ruby.Plain(line.Words)
		}
	}
	s.state = StateStarted
	s.emitter.Emit(StartEvent{
		Type:       "start",
		TotalLines: len(s.lines),
		Message:    startMessage(s.Kind, s.frame.SentCount()),
	})
	for _, i := range s.frame.LocalIndices() {
		s.confirm(i)
	}
}

// Run consumes the model stream until it ends or fails. On normal end,
// unconfirmed lines keep their fallback and the complete event carries
// the full aligned arrays. On upstream error the session emits an error
// event and returns the error; nothing is persisted for failed runs.
func (s *Session) Run(ctx context.Context, chunks provider.ChunkStream) error {
	defer chunks.Close()

	for {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}
		chunk, err := chunks.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.fail(err)
		}
		if s.state == StateStarted {
			s.state = StateStreaming
		}
		for _, line := range s.buf.Feed(chunk) {
			s.handleLine(line)
		}
	}

	if rest, ok := s.buf.Flush(); ok {
		s.handleLine(rest)
	}
	s.state = StateCompleted
	s.emitter.Emit(s.completeEvent())
	return nil
}

// Complete finishes a session that never needed the model, emitting the
// complete event directly from the pre-seeded state.
func (s *Session) Complete() {
	s.state = StateCompleted
	s.emitter.Emit(s.completeEvent())
}

// handleLine parses one completed protocol line and applies it. Lines
// that do not match the protocol, or reference unknown wire indices, are
// dropped without escalating; a duplicate index overwrites the earlier
// result (last write wins).
func (s *Session) handleLine(line string) {
	res, ok := stream.ParseLineResult(line)
	if !ok {
		return
	}
	idx, ok := s.frame.Resolve(res.Wire)
	if !ok {
		return
	}

	if s.translations != nil {
		s.translations[idx] = res.Content
	} else {
		segs := ruby.Decode(res.Content)
		if s.Kind == prompt.KindSoramimi {
			segs = ruby.FillReadings(segs)
		}
		// The model must hand the base text back unchanged; anything else
		// would misalign against word timings, so it degrades to plain.
		if ruby.Concat(segs) != s.lines[idx].Words {
			segs = ruby.Plain(s.lines[idx].Words)
		}
		s.segments[idx] = segs
	}
	s.confirm(idx)
}

// confirm marks a line as resolved and emits its line event with updated
// progress. Re-confirming an index re-emits but does not double count.
func (s *Session) confirm(i int) {
	if !s.confirmed[i] {
		s.confirmed[i] = true
		s.completed++
	}
	event := LineEvent{
		Type:      "line",
		LineIndex: i,
		Progress:  s.completed * 100 / len(s.lines),
	}
	switch s.Kind {
	case prompt.KindTranslation:
		text := s.translations[i]
		event.Translation = &text
	case prompt.KindFurigana:
		event.Furigana = s.segments[i]
	case prompt.KindSoramimi:
		event.Soramimi = s.segments[i]
	}
	s.emitter.Emit(event)
}

func (s *Session) fail(err error) error {
	s.state = StateFailed
	s.emitter.Emit(ErrorEvent{Type: "error", Error: err.Error()})
	return fmt.Errorf("annotation stream failed: %w", err)
}

func (s *Session) completeEvent() CompleteEvent {
	event := CompleteEvent{
		Type:         "complete",
		TotalLines:   len(s.lines),
		SuccessCount: s.completed,
		Success:      true,
	}
	switch s.Kind {
	case prompt.KindTranslation:
		event.Translations = s.translations
	case prompt.KindFurigana:
		event.Furigana = s.segments
	case prompt.KindSoramimi:
		event.Soramimi = s.segments
	}
	return event
}

func startMessage(kind prompt.Kind, sent int) string {
	switch kind {
	case prompt.KindTranslation:
		return fmt.Sprintf("Translating %d lines", sent)
	case prompt.KindFurigana:
		return fmt.Sprintf("Annotating %d lines", sent)
	case prompt.KindSoramimi:
		return fmt.Sprintf("Transliterating %d lines", sent)
	}
	return "Starting"
}
