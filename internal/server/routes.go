package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config contains server configuration options.
type Config struct {
	// APIKey protects the processing endpoints when non-empty.
	APIKey string
}

// NewRouter creates a new HTTP router with all routes configured.
// It uses Go 1.22+ ServeMux with method-based routing.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	mux := http.NewServeMux()

	// Register routes with method-based patterns (Go 1.22+)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /mix", h.Mix)
	mux.HandleFunc("POST /clip", h.Clip)

	// Apply middleware chain
	chain := ChainMiddleware(
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		MetricsMiddleware(),
		APIKeyMiddleware(cfg.APIKey),
	)

	return chain(mux)
}
