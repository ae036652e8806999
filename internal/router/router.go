package router

import (
	"net/http"

	"orderdesk/internal/database"
	"orderdesk/internal/handler"
	"orderdesk/internal/metrics"
	"orderdesk/internal/middleware"

	"github.com/rs/zerolog"
)

// Config carries the credentials the middleware chain checks.
type Config struct {
	APIKey      string
	TokenSecret string
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	db database.Pinger,
	cfg Config,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := database.Healthy(r.Context(), db); err != nil {
			logger.Warn().Err(err).Msg("health check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status": "unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("POST /api/orders", orderHandler.Create)
	mux.HandleFunc("GET /api/orders", orderHandler.List)
	mux.HandleFunc("GET /api/orders/stats", orderHandler.Stats)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.Get)
	mux.HandleFunc("PUT /api/orders/{id}/status", orderHandler.UpdateStatus)

	// Recovery -> RequestID -> Logging -> CORS -> APIKeyAuth -> Identity
	return middleware.Chain(mux,
		middleware.Recovery(logger),
		middleware.RequestID,
		middleware.Logging(logger),
		middleware.CORS,
		middleware.APIKeyAuth(cfg.APIKey, logger),
		middleware.Identity([]byte(cfg.TokenSecret), logger),
	)
}
