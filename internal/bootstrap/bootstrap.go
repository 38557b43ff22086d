// Package bootstrap provides dependency initialization for the ffmix API.
package bootstrap

import (
	"log/slog"
	"time"

	"github.com/ffmix/ffmix-api/internal/config"
	"github.com/ffmix/ffmix-api/internal/encoder"
	"github.com/ffmix/ffmix-api/internal/fetch"
	"github.com/ffmix/ffmix-api/internal/pipeline"
	"github.com/ffmix/ffmix-api/internal/probe"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Pipeline *pipeline.Orchestrator
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) *Dependencies {
	fetcher := fetch.New(
		cfg.MaxDownloadBytes(),
		time.Duration(cfg.HTTPTimeoutSec)*time.Second,
	)
	prober := probe.New(cfg.FFprobeBin)
	runner := encoder.New(cfg.FFmpegBin)

	orch := pipeline.New(fetcher, prober, runner, cfg.TmpDir, cfg.TmpPrefix, logger)

	return &Dependencies{
		Pipeline: orch,
	}
}
