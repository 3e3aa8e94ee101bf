package collector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/shaiso/Mosaic/internal/telemetry"
)

// Exporter сохраняет снимок холста в PNG.
type Exporter struct {
	raster *Raster
	path   string
	logger *slog.Logger
}

// NewExporter создаёт Exporter, пишущий в path.
func NewExporter(raster *Raster, path string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{raster: raster, path: path, logger: logger}
}

// Path возвращает путь по умолчанию.
func (e *Exporter) Path() string {
	return e.path
}

// Export пишет PNG атомарно: временный файл рядом с path, затем rename.
// Пустой path — путь по умолчанию.
func (e *Exporter) Export(path string) error {
	if path == "" {
		path = e.path
	}
	if path == "" {
		return ErrNoExportPath
	}

	if err := e.write(path); err != nil {
		telemetry.Exports.WithLabelValues("failed").Inc()
		return err
	}

	telemetry.Exports.WithLabelValues("ok").Inc()
	e.logger.Info("raster exported", "path", path, "regions", e.raster.Painted())
	return nil
}

// Job возвращает задачу для scheduler: экспорт в путь по умолчанию.
func (e *Exporter) Job() func(ctx context.Context) error {
	return func(context.Context) error {
		return e.Export("")
	}
}

func (e *Exporter) write(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := e.raster.EncodePNG(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
