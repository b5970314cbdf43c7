// Command lyricmux converts media files with ffmpeg and enriches the
// results with lyrics and a legacy 128-byte tag trailer.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/backmassage/lyricmux/internal/ffmpeg"
)

// exitCanceled follows the shell convention for SIGINT.
const exitCanceled = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}
	if errors.Is(err, ffmpeg.ErrCanceled) || errors.Is(err, context.Canceled) {
		os.Exit(exitCanceled)
	}
	fmt.Fprintf(os.Stderr, "lyricmux: %v\n", err)
	os.Exit(1)
}
