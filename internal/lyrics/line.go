package lyrics

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"
)

// WordTiming carries per-word timing from word-synced sources (KRC).
// Offsets are relative to the start of the line.
type WordTiming struct {
	OffsetMs   int64  `json:"offsetMs"`
	DurationMs int64  `json:"durationMs"`
	Text       string `json:"text"`
}

// Line is a single time-synced lyric line. The 0-based position of a line
// in its slice is the canonical line index used throughout the pipeline.
type Line struct {
	StartTimeMs int64        `json:"startTimeMs"`
	Words       string       `json:"words"`
	WordTimings []WordTiming `json:"wordTimings,omitempty"`
}

// Hash returns the lyric-source hash annotations are keyed by. Any change
// to the raw source text produces a different hash and invalidates every
// annotation set generated against the old one.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// ContainsKanji reports whether s contains at least one Han character.
// Lines without kanji never need furigana from the model.
func ContainsKanji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// IsLatinOnly reports whether s consists entirely of ASCII characters.
// Such lines are already pronounceable and resolve locally for soramimi.
func IsLatinOnly(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
