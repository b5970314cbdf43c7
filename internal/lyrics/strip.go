package lyrics

import (
	"regexp"
	"strings"
)

var (
	reHeader    = regexp.MustCompile(`(?i)^\[(ar|ti|al|au|by|offset|re|ve|length|#)\s*:[^\]]*\]$`)
	reLineStamp = regexp.MustCompile(`\[\d{1,3}:\d{2}(?:[.:]\d{1,3})?\]`)
	reWordStamp = regexp.MustCompile(`<\d{1,3}:\d{2}(?:[.:]\d{1,3})?>`)
)

// IsSynced reports whether text carries LRC line timestamps.
func IsSynced(text string) bool {
	return reLineStamp.MatchString(text)
}

// StripTimestamps turns LRC text into plain lyrics: header tags such as
// [ar:] and [offset:] are dropped, [mm:ss.xx] and <mm:ss.xx> stamps are
// removed, lines are trimmed and blank runs collapse to one empty line.
func StripTimestamps(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var out []string
	blank := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if reHeader.MatchString(line) {
			continue
		}
		line = reLineStamp.ReplaceAllString(line, "")
		line = reWordStamp.ReplaceAllString(line, "")
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			blank = len(out) > 0
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
