package telemetry

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shaiso/Mosaic/internal/domain"
)

// ParseLevel переводит строку уровня в slog.Level: DEBUG, INFO, WARN
// (или WARNING), ERROR, регистр не важен. Пустая строка — INFO.
// ok=false для неизвестного значения, уровень тогда INFO.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "", "INFO":
		return slog.LevelInfo, true
	case "WARN", "WARNING":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

// LogConfig — параметры логгера.
type LogConfig struct {
	Level  string    // DEBUG, INFO, WARN, ERROR
	Format string    // "json" (по умолчанию) или "text"
	Writer io.Writer // default: os.Stdout
}

// NewLogger создаёт логгер. На уровне DEBUG в записи попадает
// файл и строка вызова.
func NewLogger(cfg LogConfig) *slog.Logger {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}

	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// SetupLogger создаёт логгер и делает его slog.Default.
func SetupLogger(cfg LogConfig) *slog.Logger {
	logger := NewLogger(cfg)
	slog.SetDefault(logger)
	return logger
}

// Discard возвращает логгер, который ничего не пишет. Для тестов.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// WithWorkerID добавляет worker_id.
func WithWorkerID(logger *slog.Logger, workerID string) *slog.Logger {
	return logger.With("worker_id", workerID)
}

// WithComponent добавляет component (coordinator, worker, collector, ...).
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With("component", component)
}

// WithRegion добавляет группу region с меткой четверти и прямоугольником.
func WithRegion(logger *slog.Logger, r domain.Region) *slog.Logger {
	return logger.With(slog.Group("region",
		"quarter", r.Quarter,
		"rect", r.String(),
	))
}
