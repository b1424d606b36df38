package annotate

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"github.com/ryokun6/ryos-sub006/internal/lyrics"
	"github.com/ryokun6/ryos-sub006/internal/prompt"
	"github.com/ryokun6/ryos-sub006/internal/ruby"
)

// captureEmitter records events in order. A local type rather than the
// shared testutil mock because testutil depends on this package.
type captureEmitter struct {
	events []any
}

func (c *captureEmitter) Emit(event any) {
	c.events = append(c.events, event)
}

func (c *captureEmitter) lines() []LineEvent {
	var out []LineEvent
	for _, e := range c.events {
		if line, ok := e.(LineEvent); ok {
			out = append(out, line)
		}
	}
	return out
}

func (c *captureEmitter) complete() (CompleteEvent, bool) {
	for _, e := range c.events {
		if done, ok := e.(CompleteEvent); ok {
			return done, true
		}
	}
	return CompleteEvent{}, false
}

// fakeStream replays chunks then EOF or a configured error.
type fakeStream struct {
	chunks []string
	err    error
	pos    int
	closed bool
}

func (f *fakeStream) Recv() (string, error) {
	if f.pos < len(f.chunks) {
		chunk := f.chunks[f.pos]
		f.pos++
		return chunk, nil
	}
	if f.err != nil {
		return "", f.err
	}
	return "", io.EOF
}

func (f *fakeStream) Close() error {
	f.closed = true
	return nil
}

func testLines(words ...string) []lyrics.Line {
	lines := make([]lyrics.Line, len(words))
	for i, w := range words {
		lines[i] = lyrics.Line{StartTimeMs: int64(i) * 1000, Words: w}
	}
	return lines
}

func newFuriganaSession(emitter Emitter, words ...string) *Session {
	lines := testLines(words...)
	frame := prompt.New(prompt.KindFurigana, "", lines, nil)
	return NewSession(prompt.KindFurigana, "", lines, frame, emitter)
}

func TestSession_LocalLinesEmitBeforeStream(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "Hello there", "猫が好き", "走る")

	s.Start()

	if s.State() != StateStarted {
		t.Errorf("Expected started state, got %s", s.State())
	}
	if len(emitter.events) != 2 {
		t.Fatalf("Expected start + 1 local line event, got %d events", len(emitter.events))
	}
	start, ok := emitter.events[0].(StartEvent)
	if !ok || start.Type != "start" || start.TotalLines != 3 {
		t.Errorf("Unexpected start event: %+v", emitter.events[0])
	}
	line, ok := emitter.events[1].(LineEvent)
	if !ok || line.LineIndex != 0 {
		t.Fatalf("Expected local line 0, got %+v", emitter.events[1])
	}
	want := []ruby.Segment{{Text: "Hello there"}}
	if !reflect.DeepEqual(line.Furigana, want) {
		t.Errorf("Expected plain fallback %+v, got %+v", want, line.Furigana)
	}
}

func TestSession_FuriganaScenario(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "Hello there", "猫が好き", "走る")
	stream := &fakeStream{chunks: []string{"1: <猫:ねこ>が", "<好:す>き\n", "2: <走:はし>る"}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if s.State() != StateCompleted {
		t.Errorf("Expected completed, got %s", s.State())
	}
	if !stream.closed {
		t.Error("Stream not closed")
	}

	done, ok := emitter.complete()
	if !ok {
		t.Fatal("No complete event")
	}
	if done.TotalLines != 3 || done.SuccessCount != 3 || !done.Success {
		t.Errorf("Unexpected complete event: %+v", done)
	}
	if len(done.Furigana) != 3 {
		t.Fatalf("Expected 3 aligned entries, got %d", len(done.Furigana))
	}
	want := [][]ruby.Segment{
		{{Text: "Hello there"}},
		{{Text: "猫", Reading: "ねこ"}, {Text: "が"}, {Text: "好", Reading: "す"}, {Text: "き"}},
		{{Text: "走", Reading: "はし"}, {Text: "る"}},
	}
	if !reflect.DeepEqual(done.Furigana, want) {
		t.Errorf("Expected %+v, got %+v", want, done.Furigana)
	}

	lines := emitter.lines()
	if lines[len(lines)-1].Progress != 100 {
		t.Errorf("Final progress should be 100, got %d", lines[len(lines)-1].Progress)
	}
}

func TestSession_EarlyEOFKeepsFallback(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "猫が好き", "走る", "夢を見る")
	// Confirms wires 1 and 2, never wire 3.
	stream := &fakeStream{chunks: []string{"1: <猫:ねこ>が<好:す>き\n2: <走:はし>る\n"}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	done, _ := emitter.complete()
	if len(done.Furigana) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(done.Furigana))
	}
	if done.SuccessCount != 2 {
		t.Errorf("Expected successCount 2, got %d", done.SuccessCount)
	}
	fallback := []ruby.Segment{{Text: "夢を見る"}}
	if !reflect.DeepEqual(done.Furigana[2], fallback) {
		t.Errorf("Expected pre-seeded fallback, got %+v", done.Furigana[2])
	}
}

func TestSession_UpstreamErrorEmitsErrorEvent(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "猫が好き")
	stream := &fakeStream{chunks: []string{"1: <猫"}, err: errors.New("connection reset")}

	s.Start()
	err := s.Run(context.Background(), stream)
	if err == nil {
		t.Fatal("Expected error")
	}
	if s.State() != StateFailed {
		t.Errorf("Expected failed state, got %s", s.State())
	}

	last := emitter.events[len(emitter.events)-1]
	ev, ok := last.(ErrorEvent)
	if !ok || ev.Type != "error" {
		t.Fatalf("Expected error event last, got %+v", last)
	}
	if _, ok := emitter.complete(); ok {
		t.Error("Failed session must not emit complete")
	}
}

func TestSession_StrayChatterAndBadIndicesIgnored(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "猫が好き")
	stream := &fakeStream{chunks: []string{
		"Sure! Here are the annotations:\n",
		"99: <何:なに>か\n",
		"1: <猫:ねこ>が<好:す>き\n",
	}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	done, _ := emitter.complete()
	if done.SuccessCount != 1 {
		t.Errorf("Expected 1 confirmed line, got %d", done.SuccessCount)
	}
	if done.Furigana[0][0].Reading != "ねこ" {
		t.Errorf("Valid line not applied: %+v", done.Furigana[0])
	}
}

func TestSession_DuplicateIndexLastWriteWins(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "走る")
	stream := &fakeStream{chunks: []string{"1: 走る\n1: <走:はし>る\n"}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	done, _ := emitter.complete()
	if done.SuccessCount != 1 {
		t.Errorf("Duplicate must not double count: %d", done.SuccessCount)
	}
	want := []ruby.Segment{{Text: "走", Reading: "はし"}, {Text: "る"}}
	if !reflect.DeepEqual(done.Furigana[0], want) {
		t.Errorf("Expected last write %+v, got %+v", want, done.Furigana[0])
	}
}

func TestSession_MismatchedBaseTextDegradesToPlain(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "走る")
	// Model rewrote the base text; keeping it would break word-timing
	// alignment.
	stream := &fakeStream{chunks: []string{"1: <走る:はしる>\n"}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	done, _ := emitter.complete()
	want := []ruby.Segment{{Text: "走る"}}
	if !reflect.DeepEqual(done.Furigana[0], want) {
		t.Errorf("Expected plain fallback, got %+v", done.Furigana[0])
	}
}

func TestSession_RemainderFlushedAtEOF(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "走る")
	// No trailing newline before EOF.
	stream := &fakeStream{chunks: []string{"1: <走:はし>る"}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	done, _ := emitter.complete()
	if done.SuccessCount != 1 {
		t.Errorf("Final unterminated line was lost: %+v", done)
	}
}

func TestSession_TranslationVerbatim(t *testing.T) {
	emitter := &captureEmitter{}
	lines := testLines("猫が好き", "走る")
	frame := prompt.New(prompt.KindTranslation, "en", lines, nil)
	s := NewSession(prompt.KindTranslation, "en", lines, frame, emitter)
	stream := &fakeStream{chunks: []string{"1: I like cats\n2: Running\n"}}

	s.Start()
	if err := s.Run(context.Background(), stream); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	done, _ := emitter.complete()
	want := []string{"I like cats", "Running"}
	if !reflect.DeepEqual(done.Translations, want) {
		t.Errorf("Expected %v, got %v", want, done.Translations)
	}
}

func TestSession_CompleteWithoutModel(t *testing.T) {
	emitter := &captureEmitter{}
	s := newFuriganaSession(emitter, "All English", "No kanji here")

	s.Start()
	s.Complete()

	done, ok := emitter.complete()
	if !ok {
		t.Fatal("No complete event")
	}
	if done.SuccessCount != 2 || done.TotalLines != 2 {
		t.Errorf("Unexpected complete event: %+v", done)
	}
}

func TestStateString(t *testing.T) {
	states := map[State]string{
		StateIdle:      "idle",
		StateStarted:   "started",
		StateStreaming: "streaming",
		StateCompleted: "completed",
		StateFailed:    "failed",
	}
	for state, want := range states {
		if state.String() != want {
			t.Errorf("State %d = %q, want %q", state, state.String(), want)
		}
	}
}
