// Package ruby implements the <base:reading> inline markup used to pair
// base text with phonetic readings for furigana and soramimi annotations.
package ruby

import (
	"strings"

	"github.com/ryokun6/ryos-sub006/internal/lyrics"
)

// Segment is a contiguous run of text with an optional phonetic reading.
// A line's annotation is an ordered segment sequence whose concatenated
// Text equals the original line.
type Segment struct {
	Text    string `json:"text"`
	Reading string `json:"reading,omitempty"`
}

// Plain wraps text in a single unannotated segment. It is the safe
// fallback for any line the model never confirms.
func Plain(text string) []Segment {
	return []Segment{{Text: text}}
}

// Concat rebuilds the original line text from its segments.
func Concat(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		b.WriteString(seg.Text)
	}
	return b.String()
}

// Encode serializes segments to <base:reading> markup. Unannotated
// segments pass through as plain text.
func Encode(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		if seg.Reading != "" {
			b.WriteString("<")
			b.WriteString(seg.Text)
			b.WriteString(":")
			b.WriteString(seg.Reading)
			b.WriteString(">")
		} else {
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}

// Decode parses <base:reading> markup into ordered segments. It is pure
// and total: a token that fails to parse cleanly is kept as plain text
// with no reading, and the function never fails. Adjacent plain runs are
// merged so decoding stays stable under re-encoding.
func Decode(s string) []Segment {
	var (
		segments []Segment
		plain    strings.Builder
	)
	flush := func() {
		if plain.Len() > 0 {
			segments = append(segments, Segment{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(s); {
		next := strings.IndexByte(s[i:], '<')
		if next < 0 {
			plain.WriteString(s[i:])
			break
		}
		plain.WriteString(s[i : i+next])
		i += next
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			// No closing bracket: the rest is plain text.
			plain.WriteString(s[i:])
			break
		}
		token := s[i+1 : i+end]
		colon := strings.IndexByte(token, ':')
		if colon <= 0 || colon == len(token)-1 {
			// Not a base:reading pair; keep the bracket literally.
			plain.WriteByte('<')
			i++
			continue
		}
		flush()
		segments = append(segments, Segment{
			Text:    token[:colon],
			Reading: token[colon+1:],
		})
		i += end + 1
	}
	flush()
	if segments == nil {
		return []Segment{{Text: s}}
	}
	return segments
}

// FillReadings backfills missing readings on kanji segments from other
// segments in the same line that annotate identical base text. Segments
// that cannot be inferred stay plain rather than being dropped, so the
// sequence keeps its alignment with the source line.
func FillReadings(segments []Segment) []Segment {
	known := make(map[string]string)
	for _, seg := range segments {
		if seg.Reading != "" {
			known[seg.Text] = seg.Reading
		}
	}
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		out[i] = seg
		if seg.Reading != "" || !lyrics.ContainsKanji(seg.Text) {
			continue
		}
		if reading, ok := known[seg.Text]; ok {
			out[i].Reading = reading
		}
	}
	return out
}
