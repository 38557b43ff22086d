// Package probe provides read-only media introspection via ffprobe.
package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Static errors for probe operations.
var (
	// ErrUnreadable is returned when the file cannot be read at all.
	ErrUnreadable = errors.New("probe: file is not readable")
	// ErrToolFailure is returned when ffprobe exits non-zero.
	ErrToolFailure = errors.New("probe: ffprobe execution failed")
	// ErrParse is returned when ffprobe output cannot be interpreted.
	ErrParse = errors.New("probe: unparseable ffprobe output")
)

// Result describes a media file. It is recomputed per asset and never
// cached across requests.
type Result struct {
	// DurationMS is the container duration in integer milliseconds,
	// rounded down so downstream trims never overrun the file.
	DurationMS int64
	// HasVideo reports whether at least one video stream is present.
	HasVideo bool
	// HasAudio reports whether at least one audio stream is present.
	HasAudio bool
	// Width and Height are taken from the first video stream, 0 when absent.
	Width  int
	Height int
}

// ffprobeOutput mirrors the JSON ffprobe prints with -show_format -show_streams.
type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// Prober inspects local media files using the ffprobe CLI.
type Prober struct {
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// New creates a Prober. If ffprobePath is empty, it defaults to "ffprobe"
// (found via PATH).
func New(ffprobePath string) *Prober {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Prober{ffprobePath: ffprobePath}
}

// Probe inspects the file at path. Probing is all-or-nothing: any failure
// returns an error and a nil Result.
func (p *Prober) Probe(ctx context.Context, path string) (*Result, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("probe: cancelled: %w", ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w, stderr: %s", ErrToolFailure, err, stderr.String())
	}

	var out ffprobeOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	if strings.TrimSpace(out.Format.Duration) == "" {
		return nil, fmt.Errorf("%w: no duration in format section", ErrParse)
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: duration %q: %w", ErrParse, out.Format.Duration, err)
	}

	res := &Result{
		DurationMS: int64(math.Floor(seconds * 1000)),
	}
	for _, s := range out.Streams {
		switch s.CodecType {
		case "video":
			if !res.HasVideo {
				res.Width = s.Width
				res.Height = s.Height
			}
			res.HasVideo = true
		case "audio":
			res.HasAudio = true
		}
	}

	return res, nil
}
