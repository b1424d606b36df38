// Package prompt builds the numbered-line payload and per-kind system
// instructions sent to the model, and keeps the wire-index map needed to
// correlate streamed results back to original lines.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ryokun6/ryos-sub006/internal/lyrics"
	"github.com/ryokun6/ryos-sub006/internal/ruby"
)

// Kind identifies an annotation kind.
type Kind string

const (
	KindTranslation Kind = "translation"
	KindFurigana    Kind = "furigana"
	KindSoramimi    Kind = "soramimi"
)

// Valid reports whether k names a known annotation kind.
func (k Kind) Valid() bool {
	switch k {
	case KindTranslation, KindFurigana, KindSoramimi:
		return true
	}
	return false
}

// Frame is the framed request for one annotation session: the system
// instruction, the numbered user payload, and the wire-index map that
// lives for the session's full lifetime. Wire indices are only assigned
// to lines actually sent to the model; every other line resolves locally.
type Frame struct {
	System string
	User   string

	wireToLine map[int]int
	local      []int
	total      int
}

// New frames a request for the given kind and target language. For
// soramimi, previously generated furigana may be passed so the model sees
// pronunciation hints; payload lines then carry <base:reading> markup.
func New(kind Kind, lang string, lines []lyrics.Line, furigana [][]ruby.Segment) *Frame {
	f := &Frame{
		wireToLine: make(map[int]int),
		total:      len(lines),
	}

	var payload strings.Builder
	wire := 1
	for i, line := range lines {
		if !needsModel(kind, line.Words) {
			f.local = append(f.local, i)
			continue
		}
		text := line.Words
		if kind == KindSoramimi && i < len(furigana) && furigana[i] != nil {
			text = ruby.Encode(furigana[i])
		}
		fmt.Fprintf(&payload, "%d: %s\n", wire, text)
		f.wireToLine[wire] = i
		wire++
	}

	f.User = payload.String()
	f.System = systemInstruction(kind, lang, furigana != nil)
	return f
}

// Resolve maps a 1-based wire index back to the 0-based original line
// index. Unknown indices (out of range, never assigned) return false and
// are ignored by the caller.
func (f *Frame) Resolve(wire int) (int, bool) {
	i, ok := f.wireToLine[wire]
	return i, ok
}

// LocalIndices lists the lines resolvable without the model, in order.
func (f *Frame) LocalIndices() []int {
	return f.local
}

// SentCount is the number of lines included in the payload. Zero means
// the whole request resolves locally and no model call is needed.
func (f *Frame) SentCount() int {
	return len(f.wireToLine)
}

// TotalLines is the number of original lines covered by this frame.
func (f *Frame) TotalLines() int {
	return f.total
}

// needsModel decides whether a line requires model involvement for the
// given kind. Keeping locally-resolvable lines out of the payload keeps
// token cost proportional to actual work.
func needsModel(kind Kind, words string) bool {
	words = strings.TrimSpace(words)
	if words == "" {
		return false
	}
	switch kind {
	case KindFurigana:
		return lyrics.ContainsKanji(words)
	case KindSoramimi:
		return !lyrics.IsLatinOnly(words)
	default:
		return true
	}
}

func systemInstruction(kind Kind, lang string, hasFurigana bool) string {
	var b strings.Builder
	switch kind {
	case KindTranslation:
		fmt.Fprintf(&b, "You are a song lyrics translator. Translate each numbered lyric line into %s. ", languageName(lang))
		b.WriteString("Preserve the tone and imagery of the original. ")
	case KindFurigana:
		b.WriteString("You are a Japanese reading annotator. For each numbered lyric line, annotate every kanji run with its reading using <base:reading> markup, for example <猫:ねこ>が<好:す>き. ")
		b.WriteString("Keep okurigana outside the brackets: 走る becomes <走:はし>る, never <走る:はしる>. ")
		b.WriteString("Leave kana and other text unchanged. ")
	case KindSoramimi:
		fmt.Fprintf(&b, "You are a soramimi writer. For each numbered lyric line, write how the original sounds using %s words, chosen for sound rather than meaning. ", languageName(lang))
		b.WriteString("Wrap each original run with its sound-alike using <base:reading> markup, keeping the base text exactly as given. ")
		if hasFurigana {
			b.WriteString("Lines may already contain <base:reading> pronunciation hints; use them to pick sounds, then replace the readings with your sound-alikes. ")
		}
	}
	b.WriteString("Respond with one line per input line in the form \"{n}: {result}\", keeping the same numbers. ")
	b.WriteString("Output nothing else: no commentary, no blank lines, no code fences.")
	return b.String()
}

// languageName expands common language codes so prompts read naturally;
// unknown codes pass through as-is.
func languageName(lang string) string {
	switch strings.ToLower(lang) {
	case "", "en":
		return "English"
	case "ja":
		return "Japanese"
	case "zh":
		return "Chinese"
	case "ko":
		return "Korean"
	case "es":
		return "Spanish"
	case "fr":
		return "French"
	case "de":
		return "German"
	case "pt":
		return "Portuguese"
	}
	return lang
}
