package api

import (
	"net/http"
)

// GetRaster отдаёт текущий снимок холста в PNG.
// GET /api/v1/raster.png
func (h *Handler) GetRaster(w http.ResponseWriter, r *http.Request) {
	PNG(w, h.logger, h.collector.Raster().EncodePNG)
}

// GetStats возвращает счётчики компоновщика.
// GET /api/v1/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	Success(w, h.collector.Stats())
}

// Export сохраняет холст в PNG по пути из конфигурации.
// POST /api/v1/export
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil {
		ServiceUnavailable(w, "export is not configured")
		return
	}

	if err := h.exporter.Export(""); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Success(w, ExportResponse{
		Path:    h.exporter.Path(),
		Regions: h.collector.Raster().Painted(),
	})
}
