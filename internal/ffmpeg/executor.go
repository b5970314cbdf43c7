package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Defaults for RunOptions zero values.
const (
	DefaultKillGrace = 5 * time.Second
	DefaultPoll      = 100 * time.Millisecond
	DefaultTailLines = 10
)

// Canceler is polled for cooperative cancellation.
type Canceler interface {
	Canceled() bool
}

// CancelFlag is a level-triggered cancellation flag shared between a
// caller and any number of runs. Cancel is idempotent. A nil *CancelFlag is
// never canceled.
type CancelFlag struct {
	v atomic.Bool
}

// Cancel sets the flag.
func (f *CancelFlag) Cancel() { f.v.Store(true) }

// Canceled reports whether Cancel has been called.
func (f *CancelFlag) Canceled() bool { return f != nil && f.v.Load() }

// State is the lifecycle position of one process run.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	}
	return "unknown"
}

// Terminal reports whether s is a final state.
func (s State) Terminal() bool { return s >= StateSucceeded }

// RunOptions configures observation and termination of one run.
type RunOptions struct {
	Progress  func(percent int) // 0-99 while running, 100 once after success
	Line      func(line string) // every non-empty diagnostic line
	Cancel    Canceler
	KillGrace time.Duration // interrupt-to-kill delay; DefaultKillGrace when zero
	Poll      time.Duration // cancel poll interval while no output arrives
	TailLines int           // diagnostic lines kept for failures
}

// Result describes a finished run.
type Result struct {
	State    State
	Binary   string        // executable actually started
	Fallback bool          // started via the bare-name fallback
	Total    time.Duration // parsed input duration, 0 when never seen
	Tail     []string
}

// Handle is one running process. It exists from launch until Wait returns.
type Handle struct {
	cmd     *exec.Cmd
	command Command
	opts    RunOptions
	stop    context.CancelFunc
	parent  context.Context
	lines   *lineWriter
	done    chan struct{}
	err     error

	binary   string
	fallback bool

	state     atomic.Int32
	cancelled atomic.Bool

	mu    sync.Mutex
	tail  *tail
	total time.Duration
}

// Run starts c and waits for it. See Start and Handle.Wait.
func Run(ctx context.Context, c Command, opts RunOptions) (Result, error) {
	h, err := Start(ctx, c, opts)
	if err != nil {
		return resultOf(h, c), err
	}
	return h.Wait()
}

// Start launches c. Cancellation is checked first: an already-canceled
// request never spawns and returns ErrCanceled. A missing executable is
// retried once by bare name via PATH; if that also fails a *LaunchError is
// returned. On any error the declared output is removed.
func Start(ctx context.Context, c Command, opts RunOptions) (*Handle, error) {
	if opts.KillGrace <= 0 {
		opts.KillGrace = DefaultKillGrace
	}
	if opts.Poll <= 0 {
		opts.Poll = DefaultPoll
	}
	if opts.TailLines <= 0 {
		opts.TailLines = DefaultTailLines
	}

	h := &Handle{
		command: c,
		opts:    opts,
		parent:  ctx,
		done:    make(chan struct{}),
		tail:    newTail(opts.TailLines),
		binary:  c.Binary,
	}
	h.state.Store(int32(StateStarting))

	if h.cancelRequested() {
		h.state.Store(int32(StateCanceled))
		removeOutput(c.OutputPath)
		return h, ErrCanceled
	}

	if err := h.launch(c.Binary); err != nil {
		fb, ok := fallbackBinary(c.Binary, err)
		if !ok {
			h.state.Store(int32(StateFailed))
			removeOutput(c.OutputPath)
			return h, &LaunchError{Binary: c.Binary, Err: err}
		}
		if ferr := h.launch(fb); ferr != nil {
			h.state.Store(int32(StateFailed))
			removeOutput(c.OutputPath)
			return h, &LaunchError{Binary: c.Binary, Fallback: fb, Err: err, FallbackErr: ferr}
		}
		h.binary, h.fallback = fb, true
	}

	h.state.Store(int32(StateRunning))
	go func() {
		h.err = h.cmd.Wait()
		close(h.done)
	}()
	return h, nil
}

// launch builds and starts a process for binary. The process gets an
// interrupt when the run is stopped, and a kill KillGrace later.
func (h *Handle) launch(binary string) error {
	ctx, stop := context.WithCancel(h.parent)
	cmd := exec.CommandContext(ctx, binary, h.command.Args...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = h.opts.KillGrace
	// Set before Start: the stderr goroutine may call back immediately.
	h.cmd, h.stop = cmd, stop
	h.lines = &lineWriter{fn: h.handleLine}
	cmd.Stderr = h.lines
	if err := cmd.Start(); err != nil {
		stop()
		return err
	}
	return nil
}

// handleLine runs synchronously on the stderr copy goroutine for every
// diagnostic line, so progress and cancellation see each line in order.
func (h *Handle) handleLine(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	h.mu.Lock()
	h.tail.add(line)
	if h.total == 0 {
		if d, ok := ParseDuration(line); ok && d > 0 {
			h.total = d
		}
	}
	total := h.total
	h.mu.Unlock()

	if h.opts.Line != nil {
		h.opts.Line(line)
	}
	if h.checkCancel() {
		return
	}
	if total > 0 && h.opts.Progress != nil {
		if pos, ok := ParsePosition(line); ok {
			h.opts.Progress(Percent(pos, total))
			h.checkCancel()
		}
	}
}

func (h *Handle) cancelRequested() bool {
	return (h.opts.Cancel != nil && h.opts.Cancel.Canceled()) || h.parent.Err() != nil
}

// checkCancel requests termination once cancellation is observed.
func (h *Handle) checkCancel() bool {
	if h.cancelled.Load() {
		return true
	}
	if !h.cancelRequested() {
		return false
	}
	h.Cancel()
	return true
}

// Cancel requests graceful termination. Safe to call repeatedly and from
// any goroutine.
func (h *Handle) Cancel() {
	if h.cancelled.Swap(true) {
		return
	}
	if h.stop != nil {
		h.stop()
	}
}

// State reports the current lifecycle state.
func (h *Handle) State() State { return State(h.state.Load()) }

// Tail returns a copy of the most recent diagnostic lines.
func (h *Handle) Tail() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.tail.snapshot()
}

// Total returns the parsed input duration, or 0 when not yet seen.
func (h *Handle) Total() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.total
}

// Wait blocks until the process exits, classifies the outcome and cleans up.
//
//   - Canceled: cancellation was observed at any point, including after a
//     natural exit. Output is removed; the error is ErrCanceled.
//   - Succeeded: exit 0 and the declared output exists. Progress gets 100.
//   - Failed: anything else. Output is removed; the error is *ExitError.
func (h *Handle) Wait() (Result, error) {
	ticker := time.NewTicker(h.opts.Poll)
	defer ticker.Stop()

wait:
	for {
		select {
		case <-h.done:
			break wait
		case <-ticker.C:
			h.checkCancel()
		}
	}
	defer h.stop()
	h.lines.Flush()

	// Cancellation wins any race with a natural exit.
	if h.cancelled.Load() || h.cancelRequested() {
		h.cancelled.Store(true)
		removeOutput(h.command.OutputPath)
		h.state.Store(int32(StateCanceled))
		return resultOf(h, h.command), ErrCanceled
	}

	if h.err == nil && (h.command.OutputPath == "" || outputExists(h.command.OutputPath)) {
		h.state.Store(int32(StateSucceeded))
		if h.opts.Progress != nil {
			h.opts.Progress(100)
		}
		return resultOf(h, h.command), nil
	}

	removeOutput(h.command.OutputPath)
	h.state.Store(int32(StateFailed))
	exitErr := &ExitError{ExitCode: -1, Tail: h.Tail(), Err: h.err}
	var ee *exec.ExitError
	switch {
	case h.err == nil:
		exitErr.ExitCode = 0
		exitErr.Err = ErrOutputMissing
	case errors.As(h.err, &ee):
		exitErr.ExitCode = ee.ExitCode()
	}
	return resultOf(h, h.command), exitErr
}

func resultOf(h *Handle, c Command) Result {
	if h == nil {
		return Result{State: StateFailed, Binary: c.Binary}
	}
	return Result{
		State:    h.State(),
		Binary:   h.binary,
		Fallback: h.fallback,
		Total:    h.Total(),
		Tail:     h.Tail(),
	}
}

func outputExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func removeOutput(path string) {
	if path != "" {
		_ = os.Remove(path)
	}
}
