package lyrics

import (
	"encoding/base64"
	"encoding/json"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var krcLanguageRe = regexp.MustCompile(`\[language:([A-Za-z0-9+/=]+)\]`)

// krcLanguagePayload mirrors the JSON carried by the KRC [language:...]
// header. Type 1 entries are line-by-line translations, type 0 entries
// romanization hints.
type krcLanguagePayload struct {
	Content []struct {
		Language     int        `json:"language"`
		Type         int        `json:"type"`
		LyricContent [][]string `json:"lyricContent"`
	} `json:"content"`
}

// EmbeddedTranslation extracts the translation embedded in a KRC source,
// aligned one entry per line of SplitKRC(raw, title, artist). It returns
// false when the source carries no usable translation, in which case the
// model pipeline is the only way to get one.
func EmbeddedTranslation(raw, title, artist string) ([]string, bool) {
	m := krcLanguageRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}
	decoded, err := base64.StdEncoding.DecodeString(m[1])
	if err != nil {
		return nil, false
	}
	var payload krcLanguagePayload
	if err := json.Unmarshal(decoded, &payload); err != nil {
		return nil, false
	}
	var rows [][]string
	for _, entry := range payload.Content {
		if entry.Type == 1 && len(entry.LyricContent) > 0 {
			rows = entry.LyricContent
			break
		}
	}
	if rows == nil {
		return nil, false
	}

	// Walk the timed lines the same way SplitKRC does so translation rows
	// stay aligned after boilerplate filtering, then apply the same stable
	// sort by start time.
	type keptRow struct {
		start int64
		text  string
	}
	var kept []keptRow
	row := 0
	for _, src := range strings.Split(raw, "\n") {
		src = strings.TrimSpace(strings.TrimSuffix(src, "\r"))
		lm := krcLineRe.FindStringSubmatch(src)
		if lm == nil {
			continue
		}
		start, err := strconv.ParseInt(lm[1], 10, 64)
		if err != nil {
			continue
		}
		var text strings.Builder
		for _, w := range krcWordRe.FindAllStringSubmatch(lm[3], -1) {
			text.WriteString(w[3])
		}
		words := strings.TrimSpace(text.String())
		if words != "" && !isBoilerplate(words, title, artist) {
			translated := ""
			if row < len(rows) {
				translated = strings.Join(rows[row], " ")
			}
			kept = append(kept, keptRow{start: start, text: translated})
		}
		row++
	}
	if len(kept) == 0 {
		return nil, false
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	out := make([]string, len(kept))
	for i, k := range kept {
		out[i] = k.text
	}
	return out, true
}
