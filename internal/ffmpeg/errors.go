package ffmpeg

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrCanceled reports that a run ended because cancellation was requested.
// It is not a failure: callers should treat it as a distinct outcome.
var ErrCanceled = errors.New("ffmpeg: canceled")

// ErrOutputMissing reports an exit status of 0 without the declared output.
var ErrOutputMissing = errors.New("ffmpeg: exited 0 but produced no output")

// LaunchError reports that the executable could not be started, including
// after the bare-name fallback when one was attempted.
type LaunchError struct {
	Binary      string
	Fallback    string // bare name tried via PATH; empty when not attempted
	Err         error
	FallbackErr error
}

func (e *LaunchError) Error() string {
	if e.Fallback != "" {
		return fmt.Sprintf("launch %s: %v (fallback %s: %v)", e.Binary, e.Err, e.Fallback, e.FallbackErr)
	}
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError reports a process that ran but did not succeed. Tail holds the
// last diagnostic lines.
type ExitError struct {
	ExitCode int
	Tail     []string
	Err      error
}

func (e *ExitError) Error() string {
	var b strings.Builder
	if errors.Is(e.Err, ErrOutputMissing) {
		b.WriteString(ErrOutputMissing.Error())
	} else {
		fmt.Fprintf(&b, "ffmpeg exited with code %d", e.ExitCode)
	}
	if r := e.Reason(); r != "" {
		b.WriteString(": " + r)
	} else if n := len(e.Tail); n > 0 {
		b.WriteString(": " + e.Tail[n-1])
	}
	return b.String()
}

func (e *ExitError) Unwrap() error { return e.Err }

// Reason classifies the diagnostic tail into a short cause, or "".
func (e *ExitError) Reason() string {
	return Classify(strings.Join(e.Tail, "\n"))
}

// Pre-compiled classifiers for common ffmpeg failure causes, checked in
// order; the first match wins.
var failureReasons = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`(?i)Unknown encoder|Encoder not found|Unrecognized option`), "encoder or option not available in this ffmpeg build"},
	{regexp.MustCompile(`(?i)No such file or directory`), "input file not found"},
	{regexp.MustCompile(`(?i)Invalid data found when processing input|moov atom not found`), "input is not a readable media file"},
	{regexp.MustCompile(`(?i)Permission denied`), "permission denied"},
	{regexp.MustCompile(`(?i)No space left on device`), "no space left on device"},
	{regexp.MustCompile(`(?i)Stream map .* matches no streams|Output file .* does not contain any stream`), "selected streams not present in input"},
	{regexp.MustCompile(`(?i)Failed to (initialise|open) VAAPI|Cannot load (libcuda|nvcuda)|No NVENC capable devices|Error creating a MFX session`), "hardware encoder unavailable"},
}

// Classify returns a short description of why ffmpeg failed, based on its
// diagnostic output, or "" when no known pattern matches.
func Classify(stderr string) string {
	for _, f := range failureReasons {
		if f.re.MatchString(stderr) {
			return f.reason
		}
	}
	return ""
}
