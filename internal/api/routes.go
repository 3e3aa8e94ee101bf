package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes регистрирует служебные маршруты и API компоновщика.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	RegisterOps(mux, h.logger)

	route := func(pattern string, fn http.HandlerFunc) {
		chain := Chain(
			Recovery(h.logger),
			Instrument(pattern),
			Logging(h.logger),
		)
		mux.Handle(pattern, chain(fn))
	}

	route("GET /api/v1/raster.png", h.GetRaster)
	route("GET /api/v1/stats", h.GetStats)
	route("POST /api/v1/export", h.Export)
}

// RegisterOps регистрирует /healthz и /metrics. Их не логируем:
// пробы и скрейпы идут постоянно.
func RegisterOps(mux *http.ServeMux, logger *slog.Logger) {
	started := time.Now()
	recovery := Recovery(logger)

	mux.Handle("GET /healthz", recovery(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, HealthResponse{
			Status: "ok",
			Uptime: time.Since(started).Round(time.Second).String(),
		})
	})))
	mux.Handle("GET /metrics", promhttp.Handler())
}
