// Package ffmpeg builds ffmpeg command lines from planner output and
// supervises their execution.
//
// A run moves Starting -> Running -> {Succeeded | Failed | Canceled}. The
// diagnostic stream is split on both '\n' and '\r'; every line is handled
// synchronously, in order, before the next is read: it is kept in a short
// tail, parsed for the input duration and the time= position, reported to
// the progress callback and checked against the cancel flag. A short
// ticker also polls the flag while the process is silent.
//
// Files:
//   - builder.go: Command, BuildConvert, BuildEmbed
//   - executor.go: Start/Run, Handle.Wait, CancelFlag, State
//   - progress.go: marker parsing, percent mapping, line splitting
//   - retry.go: the single bare-name launch fallback
//   - errors.go: ErrCanceled, LaunchError, ExitError, failure classifiers
package ffmpeg
