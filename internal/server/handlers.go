package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/ffmix/ffmix-api/internal/encoder"
	"github.com/ffmix/ffmix-api/internal/fetch"
	"github.com/ffmix/ffmix-api/internal/pipeline"
	"github.com/ffmix/ffmix-api/internal/plan"
	"github.com/ffmix/ffmix-api/internal/probe"
)

// serviceName is reported by the health endpoint.
const serviceName = "ffmix-api"

// Service runs a pipeline operation to completion, returning a result
// that owns the workspace holding the output file.
type Service interface {
	Mix(ctx context.Context, req plan.MixRequest) (*pipeline.Result, error)
	Clip(ctx context.Context, req plan.ClipRequest) (*pipeline.Result, error)
}

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service   Service
	validator *validator.Validate
	logger    *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service Service, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:   service,
		validator: validator.New(),
		logger:    logger,
	}
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Service: serviceName})
}

// Mix handles POST /mix requests.
func (h *Handlers) Mix(w http.ResponseWriter, r *http.Request) {
	var req MixRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Mix(r.Context(), req.ToPlan())
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	h.streamFile(w, r, res)
}

// Clip handles POST /clip requests.
func (h *Handlers) Clip(w http.ResponseWriter, r *http.Request) {
	var req ClipRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.service.Clip(r.Context(), req.ToPlan())
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	h.streamFile(w, r, res)
}

// decode parses and validates a JSON request body, writing the error
// response itself when the body is unusable.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return false
	}

	return true
}

// streamFile sends the finished output as the response body. The workspace
// release is deferred so it runs strictly after the copy to the client
// returns, whether the transfer succeeded, failed, or the client went away.
func (h *Handlers) streamFile(w http.ResponseWriter, r *http.Request, res *pipeline.Result) {
	defer res.Release()

	f, err := os.Open(res.OutputPath) // #nosec G304 - path comes from our own workspace
	if err != nil {
		h.logger.Error("failed to open output file",
			slog.String("path", res.OutputPath),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "output file was not produced", "OUTPUT_MISSING")
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "output file was not produced", "OUTPUT_MISSING")
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.Header().Set("Content-Disposition", `attachment; filename="out.mp4"`)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, f); err != nil {
		// The client is gone or the transport broke; nothing to send back.
		h.logger.Warn("response stream aborted",
			slog.String("path", res.OutputPath),
			slog.String("error", err.Error()),
		)
	}
}

// writePipelineError maps a pipeline failure onto a distinct client-facing
// status. Bad input, upstream fetch problems and encoder failures are never
// conflated.
func (h *Handlers) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *encoder.ProcessError

	switch {
	case errors.Is(err, context.Canceled) || errors.Is(r.Context().Err(), context.Canceled):
		// Client disconnected; there is nobody to answer.
		h.logger.Info("request cancelled by client")
		return

	case pipeline.IsInputError(err):
		writeError(w, http.StatusBadRequest, err.Error(), "INVALID_REQUEST")

	case errors.Is(err, fetch.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error(), "DOWNLOAD_TOO_LARGE")

	case errors.Is(err, fetch.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, err.Error(), "DOWNLOAD_TIMEOUT")

	case errors.Is(err, fetch.ErrNotFound), errors.Is(err, fetch.ErrTransport):
		writeError(w, http.StatusBadGateway, err.Error(), "UPSTREAM_FETCH_FAILED")

	case errors.Is(err, probe.ErrUnreadable), errors.Is(err, probe.ErrToolFailure), errors.Is(err, probe.ErrParse):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), "PROBE_FAILED")

	case errors.As(err, &perr):
		h.logger.Error("encoding failed",
			slog.Int("exit_code", perr.ExitCode),
			slog.String("stderr_tail", perr.Stderr),
		)
		msg := fmt.Sprintf("ffmpeg failed with exit code %d: %s", perr.ExitCode, perr.Stderr)
		writeError(w, http.StatusInternalServerError, msg, "ENCODING_FAILED")

	default:
		h.logger.Error("pipeline failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
