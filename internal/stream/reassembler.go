// Package stream reassembles an LLM's arbitrarily-chunked token stream
// into complete lines and parses the numbered-line protocol out of them.
package stream

import "strings"

// Reassembler buffers text fragments of arbitrary size and boundary and
// yields complete lines in stream order.
type Reassembler struct {
	pending string
}

// Feed appends a fragment to the buffer and returns every line completed
// by it, in order. The remainder after the last newline stays buffered.
func (r *Reassembler) Feed(chunk string) []string {
	r.pending += chunk
	if !strings.Contains(r.pending, "\n") {
		return nil
	}
	parts := strings.Split(r.pending, "\n")
	r.pending = parts[len(parts)-1]
	return parts[:len(parts)-1]
}

// Flush returns the buffered remainder at stream end. The second return
// is false when nothing is pending.
func (r *Reassembler) Flush() (string, bool) {
	if r.pending == "" {
		return "", false
	}
	line := r.pending
	r.pending = ""
	return line, true
}
