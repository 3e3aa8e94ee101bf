// Mosaic Coordinator — засевает очередь работ.
//
// Coordinator:
//   - Очищает потоки работ и результатов (coordinator.clear)
//   - Создаёт consumer group воркеров
//   - Кладёт в очередь четыре четверти холста
//   - Пишет в лог сводку по обоим потокам
//
// Запускается один раз перед воркерами и завершается.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shaiso/Mosaic/internal/config"
	"github.com/shaiso/Mosaic/internal/coordinator"
	"github.com/shaiso/Mosaic/internal/mq"
	"github.com/shaiso/Mosaic/internal/telemetry"
	"github.com/shaiso/Mosaic/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "mosaic-coordinator: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(telemetry.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	logger = telemetry.WithComponent(logger, "coordinator")
	logger.Info("starting mosaic-coordinator", "broker", cfg.Broker.Kind)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	broker, err := transport.Open(ctx, cfg.Broker, logger)
	if err != nil {
		logger.Error("failed to connect to broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()

	if cfg.Broker.Kind == config.BrokerAMQP {
		logger.Debug("rabbitmq topology", "topology", mq.TopologyInfo(cfg.Streams.Work, cfg.Streams.Results))
	}

	c, err := coordinator.New(coordinator.Config{
		Broker:       broker,
		WorkStream:   cfg.Streams.Work,
		ResultStream: cfg.Streams.Results,
		Group:        cfg.Streams.Group,
		CanvasWidth:  cfg.Canvas.Width,
		CanvasHeight: cfg.Canvas.Height,
		Clear:        cfg.Coordinator.Clear,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("invalid coordinator config", "error", err)
		os.Exit(1)
	}

	report, err := c.Run(ctx)
	if err != nil {
		logger.Error("seeding failed", "error", err)
		broker.Close()
		os.Exit(1)
	}

	coordinator.LogInfo(logger, report.Work)
	coordinator.LogInfo(logger, report.Results)
	logger.Info("mosaic-coordinator done", "seeded", len(report.Seeded))
}
