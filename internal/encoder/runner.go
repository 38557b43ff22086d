// Package encoder executes planned ffmpeg invocations as child processes.
package encoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/ffmix/ffmix-api/internal/plan"
)

// stderrTailBytes bounds how much diagnostic output is kept for error
// responses.
const stderrTailBytes = 4000

// Runner runs ffmpeg invocations.
type Runner struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// New creates a Runner. If ffmpegPath is empty, it defaults to "ffmpeg"
// (found via PATH).
func New(ffmpegPath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Runner{ffmpegPath: ffmpegPath}
}

// Run executes one invocation. The -y flag is always prepended so ffmpeg
// overwrites outputs instead of prompting. A cancelled context kills the
// child process. Non-zero exit returns a *ProcessError carrying the exit
// code and the tail of stderr; there is no retry.
func (r *Runner) Run(ctx context.Context, inv plan.Invocation) error {
	args := append([]string{"-y"}, inv.Args...)

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, r.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("encoder: cancelled: %w", ctx.Err())
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return &ProcessError{
			ExitCode: exitCode,
			Stderr:   tail(stderr.String(), stderrTailBytes),
			Args:     args,
			Err:      err,
		}
	}

	return nil
}

// ProcessError represents a failed ffmpeg run, including the stderr tail
// for inclusion in error responses.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Args     []string
	Err      error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("encoder: ffmpeg exited %d: %v\nargs: %v\nstderr: %s", e.ExitCode, e.Err, e.Args, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// tail returns the last n bytes of s.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
