package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffmix/ffmix-api/internal/probe"
)

func clipRequest() ClipRequest {
	return ClipRequest{
		VideoURL:  "https://example.com/video.mp4",
		StartMS:   120000,
		EndMS:     145000,
		OutWidth:  DefaultOutWidth,
		OutHeight: DefaultOutHeight,
		Crop:      CropCoverCenter,
		CRF:       DefaultCRF,
		Preset:    DefaultPreset,
	}
}

// seekArgs returns the coarse (pre-input) and fine (post-input) -ss values.
func seekArgs(t *testing.T, args []string) (coarse, fine string) {
	t.Helper()
	var found []string
	for i, a := range args {
		if a == "-ss" && i+1 < len(args) {
			found = append(found, args[i+1])
		}
	}
	require.Len(t, found, 2, "expected two -ss flags in %v", args)
	return found[0], found[1]
}

func TestClip_TwoStageSeek(t *testing.T) {
	source := &probe.Result{DurationMS: 300000, HasVideo: true, HasAudio: true}

	invs, err := Clip(clipRequest(), source, "/ws")
	require.NoError(t, err)
	require.Len(t, invs, 1)

	inv := invs[0]
	coarse, fine := seekArgs(t, inv.Args)
	assert.Equal(t, "115.000", coarse)
	assert.Equal(t, "5.000", fine)
	assert.Equal(t, "25.000", argAfter(t, inv.Args, "-t"))

	// The coarse seek must come before the input.
	ssIdx, inputIdx := -1, -1
	for i, a := range inv.Args {
		if a == "-ss" && ssIdx == -1 {
			ssIdx = i
		}
		if a == "-i" {
			inputIdx = i
		}
	}
	assert.Less(t, ssIdx, inputIdx)
}

func TestClip_StartNearFileBeginning(t *testing.T) {
	req := clipRequest()
	req.StartMS = 2000
	req.EndMS = 8000
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	invs, err := Clip(req, source, "/ws")
	require.NoError(t, err)

	coarse, fine := seekArgs(t, invs[0].Args)
	// Coarse seek clamps at zero; the fine seek covers the full offset.
	assert.Equal(t, "0.000", coarse)
	assert.Equal(t, "2.000", fine)
}

func TestClip_CoverCropFilter(t *testing.T) {
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	invs, err := Clip(clipRequest(), source, "/ws")
	require.NoError(t, err)

	filter := argAfter(t, invs[0].Args, "-vf")
	assert.Equal(t, "scale=1080:1920:force_original_aspect_ratio=increase,crop=1080:1920,setsar=1", filter)
}

func TestClip_QualityPassthrough(t *testing.T) {
	req := clipRequest()
	req.CRF = 18
	req.Preset = "slow"
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	invs, err := Clip(req, source, "/ws")
	require.NoError(t, err)

	assert.Equal(t, "18", argAfter(t, invs[0].Args, "-crf"))
	assert.Equal(t, "slow", argAfter(t, invs[0].Args, "-preset"))
}

func TestClip_EndClampedToSource(t *testing.T) {
	req := clipRequest()
	req.StartMS = 290000
	req.EndMS = 400000
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	invs, err := Clip(req, source, "/ws")
	require.NoError(t, err)

	// Span is clamped to what the source actually has: 300000 - 290000.
	assert.Equal(t, "10.000", argAfter(t, invs[0].Args, "-t"))
}

func TestClip_StartBeyondSource(t *testing.T) {
	req := clipRequest()
	req.StartMS = 300000
	req.EndMS = 310000
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	_, err := Clip(req, source, "/ws")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestClip_InvalidRanges(t *testing.T) {
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	t.Run("end before start", func(t *testing.T) {
		req := clipRequest()
		req.StartMS = 5000
		req.EndMS = 5000
		_, err := Clip(req, source, "/ws")
		assert.ErrorIs(t, err, ErrInvalidRange)
	})

	t.Run("negative start", func(t *testing.T) {
		req := clipRequest()
		req.StartMS = -1
		_, err := Clip(req, source, "/ws")
		assert.ErrorIs(t, err, ErrInvalidRange)
	})
}

func TestClip_InvalidGeometry(t *testing.T) {
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	req := clipRequest()
	req.OutWidth = 0
	_, err := Clip(req, source, "/ws")
	assert.ErrorIs(t, err, ErrInvalidGeometry)

	req = clipRequest()
	req.OutHeight = -10
	_, err = Clip(req, source, "/ws")
	assert.ErrorIs(t, err, ErrInvalidGeometry)
}

func TestClip_UnsupportedCropMode(t *testing.T) {
	source := &probe.Result{DurationMS: 300000, HasVideo: true}

	req := clipRequest()
	req.Crop = "letterbox"
	_, err := Clip(req, source, "/ws")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}
