package plan

import (
	"fmt"

	"github.com/ffmix/ffmix-api/internal/probe"
)

// Mix plans the invocations for an audio-mix operation. dir is the
// workspace directory holding the fetched assets under the package's fixed
// file names; video is the probe result for the fetched video.
//
// The plan always starts with a music-conditioning pass: trim to the target
// duration, apply the fade-out, and re-encode into an AAC-in-MP4
// intermediate so the mux stage never sees a container/codec mismatch.
// The second pass depends on the request and the video's streams:
//
//  1. voice supplied: mix voice and conditioned music into one track and
//     replace the video's audio with it;
//  2. no voice, video has audio: mix conditioned music under the video's
//     existing audio;
//  3. no voice, video has no audio: mux the conditioned music in as the
//     sole audio track.
func Mix(req MixRequest, video *probe.Result, dir string) ([]Invocation, error) {
	if req.DurationMS <= 0 {
		return nil, fmt.Errorf("%w: duration_ms must be > 0, got %d", ErrInvalidRange, req.DurationMS)
	}
	if req.FadeOutMS < 0 {
		return nil, fmt.Errorf("%w: fade_out_ms must be >= 0, got %d", ErrInvalidRange, req.FadeOutMS)
	}

	dur := seconds(req.DurationMS)

	// A fade window longer than the clip fades the whole clip, never errors.
	fadeStart := req.DurationMS - req.FadeOutMS
	if fadeStart < 0 {
		fadeStart = 0
	}

	musicFilter := fmt.Sprintf("atrim=0:%s,asetpts=PTS-STARTPTS,volume=%s", dur, volume(req.MusicVolume))
	if req.FadeOutMS > 0 {
		musicFilter += fmt.Sprintf(",afade=t=out:st=%s:d=%s", seconds(fadeStart), seconds(req.FadeOutMS))
	}

	trim := Invocation{
		Args: []string{
			"-i", join(dir, MusicFile),
			"-map_metadata", "-1",
			"-filter:a", musicFilter,
			"-t", dur,
			"-vn",
			"-c:a", "aac",
			"-b:a", audioBitrate,
			"-f", "mp4",
			join(dir, MusicTrimFile),
		},
		OutputPath: join(dir, MusicTrimFile),
	}

	// Output never outlives the shorter of the video and the target.
	capMS := req.DurationMS
	if video.DurationMS > 0 && video.DurationMS < capMS {
		capMS = video.DurationMS
	}
	outT := seconds(capMS)

	var mux Invocation
	switch {
	case req.HasVoice():
		filter := fmt.Sprintf(
			"[1:a]volume=%s,asetpts=PTS-STARTPTS[voice];"+
				"[2:a]asetpts=PTS-STARTPTS[music];"+
				"[voice][music]amix=inputs=2:duration=longest:dropout_transition=0,atrim=0:%s[aout]",
			volume(req.VoiceVolume), dur,
		)
		mux = Invocation{
			Args: []string{
				"-i", join(dir, VideoFile),
				"-i", join(dir, VoiceFile),
				"-i", join(dir, MusicTrimFile),
				"-filter_complex", filter,
				"-map", "0:v:0",
				"-map", "[aout]",
				"-t", outT,
				"-c:v", "copy",
				"-c:a", "aac",
				"-b:a", audioBitrate,
				"-movflags", "+faststart",
				join(dir, OutputFile),
			},
			OutputPath: join(dir, OutputFile),
		}

	case video.HasAudio:
		filter := fmt.Sprintf(
			"[1:a]asetpts=PTS-STARTPTS[music];"+
				"[0:a]volume=1.0,asetpts=PTS-STARTPTS[orig];"+
				"[orig][music]amix=inputs=2:duration=longest:dropout_transition=0,atrim=0:%s[aout]",
			dur,
		)
		mux = Invocation{
			Args: []string{
				"-i", join(dir, VideoFile),
				"-i", join(dir, MusicTrimFile),
				"-filter_complex", filter,
				"-map", "0:v:0",
				"-map", "[aout]",
				"-t", outT,
				"-c:v", "copy",
				"-c:a", "aac",
				"-b:a", audioBitrate,
				"-movflags", "+faststart",
				join(dir, OutputFile),
			},
			OutputPath: join(dir, OutputFile),
		}

	default:
		// Silent video: the conditioned music becomes the sole audio track.
		mux = Invocation{
			Args: []string{
				"-i", join(dir, VideoFile),
				"-i", join(dir, MusicTrimFile),
				"-map", "0:v:0",
				"-map", "1:a:0",
				"-t", outT,
				"-c:v", "copy",
				"-c:a", "aac",
				"-b:a", audioBitrate,
				"-movflags", "+faststart",
				join(dir, OutputFile),
			},
			OutputPath: join(dir, OutputFile),
		}
	}

	return []Invocation{trim, mux}, nil
}
