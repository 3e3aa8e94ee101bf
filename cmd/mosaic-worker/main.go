// Mosaic Worker — вычисляет области из очереди работ.
//
// Worker:
//   - Запускает пул воркеров (worker.concurrency)
//   - Каждый воркер читает очередь через consumer group
//   - Публикует цвета в поток результатов и возвращает подобласти в очередь
//   - Отдаёт /healthz и /metrics
//
// Процесс завершается, когда пул закончил работу, или по SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Mosaic/internal/api"
	"github.com/shaiso/Mosaic/internal/config"
	"github.com/shaiso/Mosaic/internal/telemetry"
	"github.com/shaiso/Mosaic/internal/transport"
	"github.com/shaiso/Mosaic/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mosaic-worker: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(telemetry.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger = telemetry.WithComponent(logger, "worker")
	logger.Info("starting mosaic-worker",
		"broker", cfg.Broker.Kind,
		"concurrency", cfg.Worker.Concurrency,
		"restart", cfg.Worker.Restart,
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

	pool, err := worker.NewPool(worker.PoolConfig{
		Worker: worker.Config{
			Broker:       broker,
			WorkStream:   cfg.Streams.Work,
			ResultStream: cfg.Streams.Results,
			Group:        cfg.Streams.Group,
			ID:           cfg.Worker.ID,
			PollTimeout:  cfg.Worker.PollTimeout,
			Logger:       logger,
		},
		Concurrency: cfg.Worker.Concurrency,
		Restart:     cfg.Worker.Restart,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("invalid worker config", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	api.RegisterOps(mux, logger)

	g, gctx := errgroup.WithContext(ctx)
	httpCtx, stopHTTP := context.WithCancel(gctx)
	defer stopHTTP()

	g.Go(func() error {
		// HTTP живёт, пока работает пул
		defer stopHTTP()

		sum, err := pool.Run(gctx)
		if sum != nil {
			logger.Info("pool summary",
				"workers", len(sum.Workers),
				"dequeued", sum.Dequeued,
				"results", sum.Results,
				"enqueued", sum.Enqueued,
				"decode_failures", sum.DecodeFailures,
			)
		}
		return err
	})

	if addr := cfg.HTTP.WorkerAddr; addr != "" {
		g.Go(func() error {
			return api.Serve(httpCtx, addr, mux, logger)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("mosaic-worker failed", "error", err)
		broker.Close()
		os.Exit(1)
	}
	logger.Info("mosaic-worker stopped")
}
