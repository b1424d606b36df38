// Package lyrics parses time-synced lyric sources (LRC and KRC) into
// ordered, timestamped lines. It also provides the lyric-source hash that
// keys cached annotations and the script classification helpers used to
// decide which lines need model involvement.
package lyrics
