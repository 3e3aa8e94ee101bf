package api

import (
	"log/slog"

	"github.com/shaiso/Mosaic/internal/collector"
)

// Handler — обработчики HTTP API компоновщика.
type Handler struct {
	collector *collector.Collector
	exporter  *collector.Exporter
	logger    *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Collector *collector.Collector

	// Exporter (опционально; без него POST /api/v1/export отвечает 503).
	Exporter *collector.Exporter

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		collector: cfg.Collector,
		exporter:  cfg.Exporter,
		logger:    logger,
	}
}
