// Package pipeline orchestrates the media-assembly flow: open a workspace,
// fetch the remote assets, probe them, plan the ffmpeg invocations, and run
// them in order. Every run gets its own workspace and shares nothing with
// other runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ffmix/ffmix-api/internal/encoder"
	"github.com/ffmix/ffmix-api/internal/fetch"
	"github.com/ffmix/ffmix-api/internal/metrics"
	"github.com/ffmix/ffmix-api/internal/plan"
	"github.com/ffmix/ffmix-api/internal/probe"
	"github.com/ffmix/ffmix-api/internal/workspace"
)

// stage names a pipeline state for logging and failure context.
type stage string

const (
	stageFetching stage = "fetching"
	stageProbing  stage = "probing"
	stagePlanned  stage = "planned"
	stageEncoding stage = "encoding"
)

// Fetcher downloads one URL into the workspace.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, kind fetch.Kind) (*fetch.Asset, error)
}

// Prober inspects a local media file.
type Prober interface {
	Probe(ctx context.Context, path string) (*probe.Result, error)
}

// Runner executes one planned ffmpeg invocation.
type Runner interface {
	Run(ctx context.Context, inv plan.Invocation) error
}

// Result is a completed pipeline run. It owns the workspace holding the
// output file; the caller must call Release exactly when the output has
// been fully delivered (or abandoned).
type Result struct {
	// OutputPath is the finished file inside the workspace.
	OutputPath string

	ws *workspace.Workspace
}

// NewResult wraps an output file and the workspace that owns it.
func NewResult(outputPath string, ws *workspace.Workspace) *Result {
	return &Result{OutputPath: outputPath, ws: ws}
}

// Release deletes the workspace and every file in it. Idempotent.
func (r *Result) Release() {
	r.ws.Release()
}

// Orchestrator sequences fetch, probe, plan and encode for one request.
type Orchestrator struct {
	fetcher   Fetcher
	prober    Prober
	runner    Runner
	tmpRoot   string
	tmpPrefix string
	logger    *slog.Logger
}

// New creates an Orchestrator. Workspaces are created under tmpRoot with
// the given prefix.
func New(fetcher Fetcher, prober Prober, runner Runner, tmpRoot, tmpPrefix string, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		prober:    prober,
		runner:    runner,
		tmpRoot:   tmpRoot,
		tmpPrefix: tmpPrefix,
		logger:    logger,
	}
}

// Mix runs the audio-mix pipeline. On success the returned Result owns the
// workspace; on any failure the workspace is already released.
func (o *Orchestrator) Mix(ctx context.Context, req plan.MixRequest) (*Result, error) {
	return o.run(ctx, "mix", func(ctx context.Context, ws *workspace.Workspace) ([]plan.Invocation, error) {
		fetches := []fetchSpec{
			{url: req.VideoURL, name: plan.VideoFile, kind: fetch.KindVideo},
			{url: req.MusicURL, name: plan.MusicFile, kind: fetch.KindAudio},
		}
		if req.HasVoice() {
			fetches = append(fetches, fetchSpec{url: req.VoiceURL, name: plan.VoiceFile, kind: fetch.KindAudio})
		}
		if err := o.fetchAll(ctx, ws, fetches); err != nil {
			return nil, err
		}

		o.logState(ctx, "mix", stageProbing)
		video, err := o.prober.Probe(ctx, ws.Path(plan.VideoFile))
		if err != nil {
			return nil, err
		}

		invs, err := plan.Mix(req, video, ws.Dir())
		if err != nil {
			return nil, err
		}
		o.logState(ctx, "mix", stagePlanned, slog.Int("invocations", len(invs)))
		return invs, nil
	})
}

// Clip runs the timed-clip pipeline with the same lifecycle as Mix.
func (o *Orchestrator) Clip(ctx context.Context, req plan.ClipRequest) (*Result, error) {
	return o.run(ctx, "clip", func(ctx context.Context, ws *workspace.Workspace) ([]plan.Invocation, error) {
		if err := o.fetchAll(ctx, ws, []fetchSpec{
			{url: req.VideoURL, name: plan.VideoFile, kind: fetch.KindVideo},
		}); err != nil {
			return nil, err
		}

		o.logState(ctx, "clip", stageProbing)
		source, err := o.prober.Probe(ctx, ws.Path(plan.VideoFile))
		if err != nil {
			return nil, err
		}

		invs, err := plan.Clip(req, source, ws.Dir())
		if err != nil {
			return nil, err
		}
		o.logState(ctx, "clip", stagePlanned, slog.Int("invocations", len(invs)))
		return invs, nil
	})
}

// run owns the workspace lifecycle around a per-operation planning func and
// the shared encoding loop. The workspace is released on every failure path;
// on success its ownership moves into the Result.
func (o *Orchestrator) run(ctx context.Context, op string, planFn func(context.Context, *workspace.Workspace) ([]plan.Invocation, error)) (res *Result, err error) {
	start := time.Now()
	defer func() {
		status := "completed"
		if err != nil {
			status = "failed"
		}
		metrics.PipelineRunsTotal.WithLabelValues(op, status).Inc()
		metrics.PipelineDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	ws, err := workspace.New(o.tmpRoot, o.tmpPrefix)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	defer func() {
		if err != nil {
			ws.Release()
		}
	}()

	invs, err := planFn(ctx, ws)
	if err != nil {
		o.logger.Warn("pipeline failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	o.logState(ctx, op, stageEncoding)
	for i, inv := range invs {
		encStart := time.Now()
		if err = o.runner.Run(ctx, inv); err != nil {
			metrics.EncodeFailuresTotal.Inc()
			o.logger.Error("encoder invocation failed",
				slog.String("operation", op),
				slog.Int("invocation", i),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		metrics.EncodeDuration.Observe(time.Since(encStart).Seconds())
	}

	out := ws.Path(plan.OutputFile)
	if len(invs) > 0 {
		out = invs[len(invs)-1].OutputPath
	}

	o.logger.Info("pipeline completed",
		slog.String("operation", op),
		slog.String("output", out),
		slog.Duration("duration", time.Since(start)),
	)

	return &Result{OutputPath: out, ws: ws}, nil
}

// fetchSpec names one asset to download into the workspace.
type fetchSpec struct {
	url  string
	name string
	kind fetch.Kind
}

// fetchAll downloads the given assets concurrently. The first failure
// cancels the sibling downloads and is returned.
func (o *Orchestrator) fetchAll(ctx context.Context, ws *workspace.Workspace, specs []fetchSpec) error {
	o.logState(ctx, "", stageFetching, slog.Int("assets", len(specs)))

	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range specs {
		spec := spec
		g.Go(func() error {
			asset, err := o.fetcher.Fetch(gctx, spec.url, ws.Path(spec.name), spec.kind)
			if err != nil {
				// Siblings cancelled by another fetch's failure are not
				// failures of their own.
				if !errors.Is(err, context.Canceled) {
					metrics.FetchFailuresTotal.WithLabelValues(fetchReason(err)).Inc()
				}
				return err
			}
			metrics.FetchBytesTotal.Add(float64(asset.Size))
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) logState(ctx context.Context, op string, s stage, attrs ...slog.Attr) {
	args := []any{slog.String("state", string(s))}
	if op != "" {
		args = append(args, slog.String("operation", op))
	}
	for _, a := range attrs {
		args = append(args, a)
	}
	o.logger.Log(ctx, slog.LevelDebug, "pipeline state", args...)
}

// fetchReason maps a fetch error onto a bounded metric label.
func fetchReason(err error) string {
	switch {
	case errors.Is(err, fetch.ErrTimeout):
		return "timeout"
	case errors.Is(err, fetch.ErrTooLarge):
		return "too_large"
	case errors.Is(err, fetch.ErrNotFound):
		return "not_found"
	default:
		return "transport"
	}
}

// IsInputError reports whether err stems from the request itself rather
// than from an external tool or upstream failure. The HTTP layer uses this
// to keep bad input distinct from internal failures.
func IsInputError(err error) bool {
	return errors.Is(err, plan.ErrInvalidRange) ||
		errors.Is(err, plan.ErrInvalidGeometry) ||
		errors.Is(err, plan.ErrUnsupportedMode)
}

// IsProcessError reports whether err is a failed encoder invocation.
func IsProcessError(err error) bool {
	var perr *encoder.ProcessError
	return errors.As(err, &perr)
}
