package ffmpeg

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reDuration = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
	rePosition = regexp.MustCompile(`time=\s*(-?\d+):(\d{2}):(\d{2}(?:\.\d+)?)`)
)

// ParseDuration extracts the total duration from an input banner line such
// as "  Duration: 00:03:25.07, start: 0.000000, bitrate: 320 kb/s".
func ParseDuration(line string) (time.Duration, bool) {
	return parseClock(reDuration, line)
}

// ParsePosition extracts the encoded position from a stats line such as
// "size= 1024kB time=00:01:00.00 bitrate= 139.8kbits/s speed=41x".
func ParsePosition(line string) (time.Duration, bool) {
	return parseClock(rePosition, line)
}

func parseClock(re *regexp.Regexp, line string) (time.Duration, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	h, err1 := strconv.Atoi(m[1])
	mi, err2 := strconv.Atoi(m[2])
	s, err3 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	sign := 1.0
	if strings.HasPrefix(m[1], "-") {
		sign, h = -1, -h
	}
	secs := sign * (float64(h)*3600 + float64(mi)*60 + s)
	return time.Duration(secs * float64(time.Second)), true
}

// Percent maps a position to floor(100*pos/total) within [0, 99]. 100 is
// reserved for a confirmed successful exit. Unknown total yields 0.
func Percent(pos, total time.Duration) int {
	if total <= 0 || pos <= 0 {
		return 0
	}
	p := int(math.Floor(100 * float64(pos) / float64(total)))
	return clamp(p, 0, 99)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// tail keeps the last n lines.
type tail struct {
	lines []string
	next  int
	full  bool
}

func newTail(n int) *tail { return &tail{lines: make([]string, n)} }

func (t *tail) add(line string) {
	if len(t.lines) == 0 {
		return
	}
	t.lines[t.next] = line
	t.next = (t.next + 1) % len(t.lines)
	if t.next == 0 {
		t.full = true
	}
}

func (t *tail) snapshot() []string {
	if !t.full {
		return append([]string(nil), t.lines[:t.next]...)
	}
	out := make([]string, 0, len(t.lines))
	out = append(out, t.lines[t.next:]...)
	return append(out, t.lines[:t.next]...)
}

// maxLine bounds a single unterminated diagnostic line.
const maxLine = 64 << 10

// lineWriter splits a byte stream on '\n' and '\r' and hands each
// non-empty line to fn synchronously. ffmpeg terminates stats lines with
// '\r' only.
type lineWriter struct {
	buf []byte
	fn  func(string)
}

func (w *lineWriter) Write(p []byte) (int, error) {
	for _, c := range p {
		if c == '\n' || c == '\r' {
			w.emit()
			continue
		}
		w.buf = append(w.buf, c)
		if len(w.buf) >= maxLine {
			w.emit()
		}
	}
	return len(p), nil
}

// Flush emits any unterminated trailing line.
func (w *lineWriter) Flush() { w.emit() }

func (w *lineWriter) emit() {
	if len(w.buf) == 0 {
		return
	}
	line := string(w.buf)
	w.buf = w.buf[:0]
	w.fn(line)
}
