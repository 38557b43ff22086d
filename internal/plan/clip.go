package plan

import (
	"fmt"
	"strconv"

	"github.com/ffmix/ffmix-api/internal/probe"
)

// Clip plans the single invocation for a timed-clip operation. dir is the
// workspace directory holding the fetched video; source is its probe result.
//
// Seeking is two-stage: a demuxer-level -ss before the input jumps near the
// start cheaply, and an output-side -ss decodes the remainder so the cut
// lands on the requested millisecond instead of the nearest keyframe.
// Geometry is cover-crop: scale until the target box is fully covered,
// center-crop to the exact dimensions, then force a 1:1 sample aspect ratio
// so strict decoders don't stretch the result.
func Clip(req ClipRequest, source *probe.Result, dir string) ([]Invocation, error) {
	if req.OutWidth <= 0 || req.OutHeight <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidGeometry, req.OutWidth, req.OutHeight)
	}
	if req.Crop != CropCoverCenter {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMode, req.Crop)
	}
	if req.StartMS < 0 || req.EndMS <= req.StartMS {
		return nil, fmt.Errorf("%w: start_ms=%d end_ms=%d", ErrInvalidRange, req.StartMS, req.EndMS)
	}

	// Clamp the end to the source so -t never overruns the file; a start at
	// or past the end of the source would yield an empty clip.
	end := req.EndMS
	if source.DurationMS > 0 && end > source.DurationMS {
		end = source.DurationMS
	}
	if req.StartMS >= end {
		return nil, fmt.Errorf("%w: start_ms=%d is beyond source duration %dms", ErrInvalidRange, req.StartMS, source.DurationMS)
	}

	coarse := req.StartMS - coarseSeekLeadMS
	if coarse < 0 {
		coarse = 0
	}
	fine := req.StartMS - coarse
	span := end - req.StartMS

	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		req.OutWidth, req.OutHeight, req.OutWidth, req.OutHeight,
	)

	inv := Invocation{
		Args: []string{
			"-ss", seconds(coarse),
			"-i", join(dir, VideoFile),
			"-ss", seconds(fine),
			"-t", seconds(span),
			"-vf", filter,
			"-c:v", "libx264",
			"-preset", req.Preset,
			"-crf", strconv.Itoa(req.CRF),
			"-c:a", "aac",
			"-b:a", audioBitrate,
			"-movflags", "+faststart",
			join(dir, OutputFile),
		},
		OutputPath: join(dir, OutputFile),
	}

	return []Invocation{inv}, nil
}
