// Mosaic Collector — собирает изображение из потока результатов.
//
// Collector:
//   - Читает поток результатов с начала и рисует области на холсте
//   - Показывает холст в терминале (display.enabled и stdout — терминал)
//   - Отдаёт HTTP API: /healthz, /metrics, /api/v1/raster.png, /api/v1/stats, /api/v1/export
//   - Периодически сохраняет PNG (collector.export_schedule)
//   - Сохраняет PNG при остановке (collector.export_on_exit)
//
// Останавливается по SIGINT/SIGTERM или по q/esc в окне отображения.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Mosaic/internal/api"
	"github.com/shaiso/Mosaic/internal/collector"
	"github.com/shaiso/Mosaic/internal/config"
	"github.com/shaiso/Mosaic/internal/display"
	"github.com/shaiso/Mosaic/internal/scheduler"
	"github.com/shaiso/Mosaic/internal/telemetry"
	"github.com/shaiso/Mosaic/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mosaic-collector: %v\n", err)
		os.Exit(1)
	}

	// Пока терминал занят отображением, логи уходят в файл
	showDisplay := cfg.Display.Enabled && display.IsTerminal(os.Stdout)
	var logWriter io.Writer = os.Stdout
	if showDisplay {
		f, err := os.OpenFile(cfg.Display.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mosaic-collector: open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logWriter = f
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(telemetry.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: logWriter,
	})
	logger = telemetry.WithComponent(logger, "collector")
	logger.Info("starting mosaic-collector",
		"broker", cfg.Broker.Kind,
		"canvas_width", cfg.Canvas.Width,
		"canvas_height", cfg.Canvas.Height,
		"display", showDisplay,
	)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	broker, err := transport.Open(ctx, cfg.Broker, logger)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	c, err := collector.New(collector.Config{
		Broker:       broker,
		ResultStream: cfg.Streams.Results,
		CanvasWidth:  cfg.Canvas.Width,
		CanvasHeight: cfg.Canvas.Height,
		BatchSize:    cfg.Collector.BatchSize,
		Block:        cfg.Collector.Block,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("invalid collector config", "error", err)
		os.Exit(1)
	}
	exporter := collector.NewExporter(c.Raster(), cfg.Collector.OutputPath, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return c.Run(gctx)
	})

	if addr := cfg.HTTP.CollectorAddr; addr != "" {
		handler := api.NewHandler(api.Config{
			Collector: c,
			Exporter:  exporter,
			Logger:    logger,
		})
		mux := http.NewServeMux()
		handler.RegisterRoutes(mux)

		g.Go(func() error {
			return api.Serve(gctx, addr, mux, logger)
		})
	}

	if spec := cfg.Collector.ExportSchedule; spec != "" {
		sched, err := scheduler.New(scheduler.Config{
			Name:   "export",
			Spec:   spec,
			Job:    exporter.Job(),
			Logger: logger,
		})
		if err != nil {
			logger.Error("invalid export schedule", "error", err)
			os.Exit(1)
		}
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	if showDisplay {
		g.Go(func() error {
			// выход из окна останавливает весь процесс
			defer cancel()
			return display.Run(gctx, c.Raster(), display.Options{
				Title: cfg.Streams.Results,
				FPS:   cfg.Display.FPS,
			})
		})
	}

	runErr := g.Wait()
	if runErr != nil {
		logger.Error("mosaic-collector failed", "error", runErr)
	}

	if cfg.Collector.ExportOnExit {
		if err := exporter.Export(""); err != nil {
			logger.Error("final export failed", "error", err)
		}
	}

	stats := c.Stats()
	logger.Info("mosaic-collector stopped",
		"applied", stats.Applied,
		"malformed", stats.Malformed,
		"cursor", stats.Cursor,
	)

	if runErr != nil {
		broker.Close()
		os.Exit(1)
	}
}
