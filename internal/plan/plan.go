// Package plan turns validated operation requests plus probe results into
// fully-specified ffmpeg invocations. Planning is pure: no I/O, no process
// execution, just argument assembly, so the timing and geometry math of each
// operation is testable in isolation.
package plan

import (
	"errors"
	"path/filepath"
	"strconv"
)

// Static errors for planning.
var (
	// ErrInvalidGeometry is returned when output dimensions are not positive.
	ErrInvalidGeometry = errors.New("plan: invalid geometry: width and height must be positive")
	// ErrInvalidRange is returned when a time range is empty or negative.
	ErrInvalidRange = errors.New("plan: invalid time range")
	// ErrUnsupportedMode is returned for crop modes other than cover_center.
	ErrUnsupportedMode = errors.New("plan: unsupported crop mode")
)

// Workspace file names. The orchestrator fetches assets to these names and
// the planner references them, so invocations never need path plumbing
// beyond the workspace directory.
const (
	VideoFile     = "video.mp4"
	MusicFile     = "music.mp3"
	VoiceFile     = "voice.mp3"
	MusicTrimFile = "music_trim.m4a" // AAC in MP4; never AAC in an .mp3 container
	OutputFile    = "out.mp4"
)

// Request defaults.
const (
	DefaultMusicVolume = 0.18
	DefaultVoiceVolume = 1.0
	DefaultFadeOutMS   = 1000
	DefaultOutWidth    = 1080
	DefaultOutHeight   = 1920
	DefaultCRF         = 23
	DefaultPreset      = "veryfast"
)

// coarseSeekLeadMS is how far before the requested start the demuxer-level
// seek lands; the remainder is covered by the frame-accurate output seek.
const coarseSeekLeadMS = 5000

// audioBitrate is used for every AAC encode in the pipeline.
const audioBitrate = "192k"

// Invocation is one fully-specified ffmpeg command. Args excludes the
// binary name and the -y overwrite flag, which the runner prepends.
type Invocation struct {
	// Args is the ordered ffmpeg argument list, output path last.
	Args []string
	// OutputPath is the file this invocation produces.
	OutputPath string
}

// CropMode selects the geometry strategy for clip extraction.
type CropMode string

// CropCoverCenter scales the source to fully cover the target box, then
// center-crops to the exact dimensions. The only supported mode.
const CropCoverCenter CropMode = "cover_center"

// MixRequest describes an audio-mix-into-video operation.
type MixRequest struct {
	// VideoURL is the source video.
	VideoURL string
	// MusicURL is the background music.
	MusicURL string
	// VoiceURL is an optional voice track; empty means none.
	VoiceURL string
	// DurationMS is the target output duration, > 0.
	DurationMS int64
	// MusicVolume is the background music volume multiplier.
	MusicVolume float64
	// VoiceVolume is the voice volume multiplier.
	VoiceVolume float64
	// FadeOutMS is the music fade-out window.
	FadeOutMS int64
}

// HasVoice reports whether a separate voice track was supplied.
func (r MixRequest) HasVoice() bool {
	return r.VoiceURL != ""
}

// ClipRequest describes a timed-clip-with-reframe operation.
type ClipRequest struct {
	// VideoURL is the source video.
	VideoURL string
	// StartMS and EndMS bound the extracted span; 0 <= StartMS < EndMS.
	StartMS int64
	EndMS   int64
	// OutWidth and OutHeight are the exact output dimensions.
	OutWidth  int
	OutHeight int
	// Crop selects the reframe strategy.
	Crop CropMode
	// CRF is the x264 quality parameter.
	CRF int
	// Preset is the x264 speed preset.
	Preset string
}

// seconds formats a millisecond value as ffmpeg expects, e.g. 6516 -> "6.516".
func seconds(ms int64) string {
	return strconv.FormatFloat(float64(ms)/1000.0, 'f', 3, 64)
}

// volume formats a volume multiplier without trailing zeros.
func volume(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func join(dir, name string) string {
	return filepath.Join(dir, name)
}
