package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffmix/ffmix-api/internal/plan"
)

// fakeRunner builds a Runner backed by a shell script so process handling
// can be tested without ffmpeg installed.
func fakeRunner(t *testing.T, script string) *Runner {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake runner script requires a POSIX shell")
	}

	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0755))
	return New(path)
}

func TestNew_DefaultPath(t *testing.T) {
	r := New("")
	assert.Equal(t, "ffmpeg", r.ffmpegPath)
}

func TestRun_Success(t *testing.T) {
	r := fakeRunner(t, "exit 0\n")

	err := r.Run(context.Background(), plan.Invocation{Args: []string{"-i", "in.mp4", "out.mp4"}})
	assert.NoError(t, err)
}

func TestRun_PrependsOverwriteFlag(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "args.txt")
	r := fakeRunner(t, fmt.Sprintf("echo \"$@\" > %s\nexit 0\n", marker))

	err := r.Run(context.Background(), plan.Invocation{Args: []string{"-i", "in.mp4", "out.mp4"}})
	require.NoError(t, err)

	got, err := os.ReadFile(marker)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "-y "), "expected -y first, got %q", got)
}

func TestRun_NonZeroExit(t *testing.T) {
	r := fakeRunner(t, "echo 'Invalid data found when processing input' >&2\nexit 187\n")

	err := r.Run(context.Background(), plan.Invocation{Args: []string{"-i", "bad.mp4", "out.mp4"}})
	require.Error(t, err)

	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 187, perr.ExitCode)
	assert.Contains(t, perr.Stderr, "Invalid data found")
}

func TestRun_StderrTailIsBounded(t *testing.T) {
	r := fakeRunner(t, "i=0\nwhile [ $i -lt 500 ]; do echo 'a very long diagnostic line from the encoder' >&2; i=$((i+1)); done\nexit 1\n")

	err := r.Run(context.Background(), plan.Invocation{Args: []string{"out.mp4"}})
	require.Error(t, err)

	var perr *ProcessError
	require.True(t, errors.As(err, &perr))
	assert.LessOrEqual(t, len(perr.Stderr), stderrTailBytes)
}

func TestRun_ContextCancellationKillsProcess(t *testing.T) {
	r := fakeRunner(t, "sleep 60\n")

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := r.Run(ctx, plan.Invocation{Args: []string{"out.mp4"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}
