// Package server provides the HTTP surface for the media-assembly pipeline.
// It includes handlers, middleware, routes, and DTOs separated from the
// pipeline's domain types.
package server

import "github.com/ffmix/ffmix-api/internal/plan"

// MixRequest is the HTTP request body for POST /mix.
type MixRequest struct {
	// VideoURL is a public URL to the input MP4 video.
	VideoURL string `json:"video_url" validate:"required,http_url"`
	// VoiceURL is an optional public URL to a voice audio track.
	VoiceURL string `json:"voice_url,omitempty" validate:"omitempty,http_url"`
	// MusicURL is a public URL to the background music audio.
	MusicURL string `json:"music_url" validate:"required,http_url"`
	// DurationMS is the target output duration in milliseconds.
	DurationMS int64 `json:"duration_ms" validate:"required,gt=0"`
	// MusicVolume is the background music volume multiplier (default 0.18).
	MusicVolume *float64 `json:"music_volume,omitempty" validate:"omitempty,gte=0,lte=2"`
	// FadeOutMS is the music fade-out window in milliseconds (default 1000).
	FadeOutMS *int64 `json:"fade_out_ms,omitempty" validate:"omitempty,gte=0"`
	// VoiceVolume is the voice volume multiplier (default 1.0).
	VoiceVolume *float64 `json:"voice_volume,omitempty" validate:"omitempty,gte=0,lte=3"`
}

// ToPlan converts the DTO into a fully-defaulted planner request.
func (r MixRequest) ToPlan() plan.MixRequest {
	req := plan.MixRequest{
		VideoURL:    r.VideoURL,
		MusicURL:    r.MusicURL,
		VoiceURL:    r.VoiceURL,
		DurationMS:  r.DurationMS,
		MusicVolume: plan.DefaultMusicVolume,
		VoiceVolume: plan.DefaultVoiceVolume,
		FadeOutMS:   plan.DefaultFadeOutMS,
	}
	if r.MusicVolume != nil {
		req.MusicVolume = *r.MusicVolume
	}
	if r.VoiceVolume != nil {
		req.VoiceVolume = *r.VoiceVolume
	}
	if r.FadeOutMS != nil {
		req.FadeOutMS = *r.FadeOutMS
	}
	return req
}

// ClipRequest is the HTTP request body for POST /clip.
type ClipRequest struct {
	// VideoURL is a public URL to the input video.
	VideoURL string `json:"video_url" validate:"required,http_url"`
	// StartMS is the clip start offset in milliseconds.
	StartMS int64 `json:"start_ms" validate:"gte=0"`
	// EndMS is the clip end offset in milliseconds; must exceed StartMS.
	EndMS int64 `json:"end_ms" validate:"required,gtfield=StartMS"`
	// OutWidth is the output width in pixels (default 1080).
	OutWidth *int `json:"out_w,omitempty" validate:"omitempty,min=1,max=4096"`
	// OutHeight is the output height in pixels (default 1920).
	OutHeight *int `json:"out_h,omitempty" validate:"omitempty,min=1,max=4096"`
	// CropMode selects the reframe strategy (default cover_center).
	CropMode string `json:"crop_mode,omitempty"`
	// CRF is the x264 quality parameter (default 23).
	CRF *int `json:"crf,omitempty" validate:"omitempty,min=0,max=51"`
	// Preset is the x264 speed preset (default veryfast).
	Preset string `json:"preset,omitempty"`
}

// ToPlan converts the DTO into a fully-defaulted planner request.
func (r ClipRequest) ToPlan() plan.ClipRequest {
	req := plan.ClipRequest{
		VideoURL:  r.VideoURL,
		StartMS:   r.StartMS,
		EndMS:     r.EndMS,
		OutWidth:  plan.DefaultOutWidth,
		OutHeight: plan.DefaultOutHeight,
		Crop:      plan.CropCoverCenter,
		CRF:       plan.DefaultCRF,
		Preset:    plan.DefaultPreset,
	}
	if r.OutWidth != nil {
		req.OutWidth = *r.OutWidth
	}
	if r.OutHeight != nil {
		req.OutHeight = *r.OutHeight
	}
	if r.CropMode != "" {
		req.Crop = plan.CropMode(r.CropMode)
	}
	if r.CRF != nil {
		req.CRF = *r.CRF
	}
	if r.Preset != "" {
		req.Preset = r.Preset
	}
	return req
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
	// Service is the service name.
	Service string `json:"service"`
}
