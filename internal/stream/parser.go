package stream

import (
	"regexp"
	"strconv"
	"strings"
)

// lineResultRe matches the numbered-line protocol the model is instructed
// to follow: a 1-based wire index, a separator, then the line content.
var lineResultRe = regexp.MustCompile(`^(\d+)[:.\s]\s*(.*)$`)

// LineResult is one parsed protocol line: the model's 1-based wire index
// and the raw annotated content.
type LineResult struct {
	Wire    int
	Content string
}

// ParseLineResult extracts a LineResult from a completed line. Lines that
// do not match the protocol are stray model chatter; the second return is
// false and the caller drops them silently.
func ParseLineResult(line string) (LineResult, bool) {
	line = strings.TrimRight(line, "\r")
	m := lineResultRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return LineResult{}, false
	}
	wire, err := strconv.Atoi(m[1])
	if err != nil || wire < 1 {
		return LineResult{}, false
	}
	return LineResult{Wire: wire, Content: m[2]}, true
}
