package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"greenhouse-dashboard/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Handler wraps mux with panic recovery, compression and request logging.
func Handler(mux http.Handler, logger *slog.Logger) http.Handler {
	h := middleware.Recoverer(mux)
	h = middleware.Compress(5, "text/html", "application/json")(h)
	return requestLogger(logger, h)
}
