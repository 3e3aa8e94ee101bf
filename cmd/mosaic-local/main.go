// Mosaic Local — весь конвейер в одном процессе.
//
// Local:
//   - Поднимает брокер в памяти
//   - Засевает очередь четырьмя четвертями холста
//   - Запускает пул воркеров с перезапуском и Collector
//   - Когда очередь опустела и Collector дочитал результаты, пишет PNG
//
// Брокер и сервисы настраиваются так же, как у отдельных бинарников;
// broker.kind игнорируется.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Mosaic/internal/collector"
	"github.com/shaiso/Mosaic/internal/config"
	"github.com/shaiso/Mosaic/internal/coordinator"
	"github.com/shaiso/Mosaic/internal/display"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/telemetry"
	"github.com/shaiso/Mosaic/internal/worker"
)

// catchUpPoll — период проверки, дочитал ли Collector поток.
const catchUpPoll = 50 * time.Millisecond

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mosaic-local: %v\n", err)
		os.Exit(1)
	}

	showDisplay := cfg.Display.Enabled && display.IsTerminal(os.Stdout)
	var logWriter io.Writer = os.Stdout
	if showDisplay {
		f, err := os.OpenFile(cfg.Display.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "mosaic-local: open log file: %v\n", err)
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
	logger = telemetry.WithComponent(logger, "local")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	broker := stream.NewMemory(stream.MemoryOptions{Visibility: cfg.Broker.Visibility})
	defer broker.Close()

	if err := run(ctx, cfg, broker, logger, showDisplay); err != nil {
		logger.Error("mosaic-local failed", "error", err)
		broker.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, broker *stream.Memory, logger *slog.Logger, showDisplay bool) error {
	coord, err := coordinator.New(coordinator.Config{
		Broker:       broker,
		WorkStream:   cfg.Streams.Work,
		ResultStream: cfg.Streams.Results,
		Group:        cfg.Streams.Group,
		CanvasWidth:  cfg.Canvas.Width,
		CanvasHeight: cfg.Canvas.Height,
		Logger:       telemetry.WithComponent(logger, "coordinator"),
	})
	if err != nil {
		return err
	}

	col, err := collector.New(collector.Config{
		Broker:       broker,
		ResultStream: cfg.Streams.Results,
		CanvasWidth:  cfg.Canvas.Width,
		CanvasHeight: cfg.Canvas.Height,
		BatchSize:    cfg.Collector.BatchSize,
		Block:        cfg.Collector.Block,
		Logger:       telemetry.WithComponent(logger, "collector"),
	})
	if err != nil {
		return err
	}
	exporter := collector.NewExporter(col.Raster(), cfg.Collector.OutputPath, logger)

	pool, err := worker.NewPool(worker.PoolConfig{
		Worker: worker.Config{
			Broker:       broker,
			WorkStream:   cfg.Streams.Work,
			ResultStream: cfg.Streams.Results,
			Group:        cfg.Streams.Group,
			PollTimeout:  cfg.Worker.PollTimeout,
			Logger:       logger,
		},
		Concurrency: cfg.Worker.Concurrency,
		Restart:     true,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	if _, err := coord.Run(ctx); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return col.Run(gctx)
	})

	g.Go(func() error {
		sum, err := pool.Run(gctx)
		if err != nil {
			return err
		}
		logger.Info("pool finished",
			"workers", len(sum.Workers),
			"dequeued", sum.Dequeued,
			"results", sum.Results,
			"enqueued", sum.Enqueued,
		)

		if err := waitCollector(gctx, broker, col, cfg.Streams.Results); err != nil {
			return err
		}
		if err := exporter.Export(""); err != nil {
			return err
		}

		// без окна работа закончена; окно закрывает пользователь
		if !showDisplay {
			cancel()
		}
		return nil
	})

	if showDisplay {
		g.Go(func() error {
			defer cancel()
			return display.Run(gctx, col.Raster(), display.Options{
				Title: "mosaic-local",
				FPS:   cfg.Display.FPS,
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	stats := col.Stats()
	logger.Info("mosaic-local done",
		"applied", stats.Applied,
		"painted", stats.Painted,
		"output", exporter.Path(),
	)
	return nil
}

// waitCollector ждёт, пока Collector обработает все записи потока результатов.
func waitCollector(ctx context.Context, broker stream.Admin, col *collector.Collector, results string) error {
	ticker := time.NewTicker(catchUpPoll)
	defer ticker.Stop()

	for {
		info, err := broker.Info(ctx, results)
		if err != nil {
			return fmt.Errorf("results info: %w", err)
		}
		stats := col.Stats()
		if int64(stats.Applied+stats.Malformed) >= int64(info.Length) {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
