package pipeline

import "github.com/backmassage/lyricmux/internal/lyrics"

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total            int
	Converted        int
	Skipped          int
	Failed           int
	Canceled         int
	TotalInputBytes  int64
	TotalOutputBytes int64
	Lyrics           lyrics.Stats
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
// Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}

func (s *RunStats) addLyrics(l lyrics.Stats) {
	s.Lyrics.Found += l.Found
	s.Lyrics.NotFound += l.NotFound
	s.Lyrics.Sidecar += l.Sidecar
	s.Lyrics.Embedded += l.Embedded
	s.Lyrics.Failed += l.Failed
}
