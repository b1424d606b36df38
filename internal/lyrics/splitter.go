package lyrics

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	lrcTimeRe = regexp.MustCompile(`\[(\d{1,3}):(\d{1,2})(?:[.:](\d{1,3}))?\]`)
	krcLineRe = regexp.MustCompile(`^\[(\d+),(\d+)\](.*)$`)
	krcWordRe = regexp.MustCompile(`<(\d+),(\d+),\d+>([^<]*)`)

	// Credit boilerplate that lyric providers prepend to the actual lyrics.
	creditRe = regexp.MustCompile(`作词|作詞|作曲|编曲|編曲|监制|監製|词\s*[:：]|曲\s*[:：]|演唱\s*[:：]|Lyrics\s*by|Composed\s*by|Arranged\s*by`)
)

// Split parses raw lyric text into ordered lines, auto-detecting the
// format. Title and artist, when known, are used to filter header
// boilerplate. Malformed or empty input yields an empty slice, never an
// error; callers treat zero lines as "no lyrics available".
func Split(raw, title, artist string) []Line {
	if IsKRC(raw) {
		return SplitKRC(raw, title, artist)
	}
	return SplitLRC(raw, title, artist)
}

// IsKRC reports whether raw looks like word-synced KRC rather than plain
// LRC. KRC lines open with a [start,duration] pair in milliseconds.
func IsKRC(raw string) bool {
	for _, line := range strings.Split(raw, "\n") {
		if krcLineRe.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

// SplitLRC parses [mm:ss.xx] timestamped lyrics. A line may carry several
// timestamps; it is emitted once per timestamp. Lines with equal
// timestamps keep their source order.
func SplitLRC(raw, title, artist string) []Line {
	var lines []Line
	for _, src := range strings.Split(raw, "\n") {
		src = strings.TrimSpace(strings.TrimSuffix(src, "\r"))
		if src == "" {
			continue
		}
		stamps := lrcTimeRe.FindAllStringSubmatch(src, -1)
		if len(stamps) == 0 {
			continue
		}
		text := strings.TrimSpace(lrcTimeRe.ReplaceAllString(src, ""))
		if text == "" || isBoilerplate(text, title, artist) {
			continue
		}
		for _, m := range stamps {
			lines = append(lines, Line{
				StartTimeMs: lrcTimestampMs(m),
				Words:       text,
			})
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].StartTimeMs < lines[j].StartTimeMs
	})
	return lines
}

// SplitKRC parses word-synced KRC lyrics, keeping per-word timings.
func SplitKRC(raw, title, artist string) []Line {
	var lines []Line
	for _, src := range strings.Split(raw, "\n") {
		src = strings.TrimSpace(strings.TrimSuffix(src, "\r"))
		m := krcLineRe.FindStringSubmatch(src)
		if m == nil {
			continue
		}
		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		var (
			timings []WordTiming
			text    strings.Builder
		)
		for _, w := range krcWordRe.FindAllStringSubmatch(m[3], -1) {
			offset, _ := strconv.ParseInt(w[1], 10, 64)
			duration, _ := strconv.ParseInt(w[2], 10, 64)
			timings = append(timings, WordTiming{
				OffsetMs:   offset,
				DurationMs: duration,
				Text:       w[3],
			})
			text.WriteString(w[3])
		}
		words := strings.TrimSpace(text.String())
		if words == "" || isBoilerplate(words, title, artist) {
			continue
		}
		lines = append(lines, Line{
			StartTimeMs: start,
			Words:       words,
			WordTimings: timings,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].StartTimeMs < lines[j].StartTimeMs
	})
	return lines
}

func lrcTimestampMs(m []string) int64 {
	minutes, _ := strconv.ParseInt(m[1], 10, 64)
	seconds, _ := strconv.ParseInt(m[2], 10, 64)
	ms := minutes*60000 + seconds*1000
	if m[3] != "" {
		frac, _ := strconv.ParseInt(m[3], 10, 64)
		switch len(m[3]) {
		case 1:
			ms += frac * 100
		case 2:
			ms += frac * 10
		default:
			ms += frac
		}
	}
	return ms
}

// isBoilerplate filters provider credits and title/artist header lines so
// they are never sent for annotation.
func isBoilerplate(text, title, artist string) bool {
	if creditRe.MatchString(text) {
		return true
	}
	if title != "" && artist != "" {
		if strings.Contains(text, title) && strings.Contains(text, artist) {
			return true
		}
	}
	return false
}
