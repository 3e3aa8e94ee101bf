// Package transport выбирает реализацию stream.Broker по конфигурации.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shaiso/Mosaic/internal/config"
	"github.com/shaiso/Mosaic/internal/mq"
	"github.com/shaiso/Mosaic/internal/repo"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/stream/redisstream"
)

// ErrUnknownBroker — в конфигурации указан неизвестный вид брокера.
var ErrUnknownBroker = errors.New("unknown broker kind")

// Open подключается к брокеру, указанному в cfg.Kind.
//
// Брокер memory живёт только внутри процесса: несколько сервисов
// через него не связать.
func Open(ctx context.Context, cfg config.BrokerConfig, logger *slog.Logger) (stream.Broker, error) {
	logger = logger.With("broker", cfg.Kind)

	switch cfg.Kind {
	case config.BrokerRedis:
		return redisstream.New(ctx, redisstream.Options{
			URL:        cfg.RedisURL,
			Visibility: cfg.Visibility,
			Logger:     logger,
		})

	case config.BrokerAMQP:
		return mq.New(ctx, mq.Options{
			URL:          cfg.AMQPURL,
			Visibility:   cfg.Visibility,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		})

	case config.BrokerPostgres:
		pool, err := repo.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("connected to PostgreSQL")
		return repo.NewBroker(pool, repo.BrokerOptions{
			Visibility:   cfg.Visibility,
			PollInterval: cfg.PollInterval,
			Logger:       logger,
		}), nil

	case config.BrokerMemory:
		logger.Warn("using in-process broker; other processes cannot see these streams")
		return stream.NewMemory(stream.MemoryOptions{Visibility: cfg.Visibility}), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBroker, cfg.Kind)
	}
}
