package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Mosaic/internal/domain"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultResultStream = "mandelbrot:results"
	DefaultBatchSize    = 10
	DefaultBlock        = time.Second
)

// Collector читает поток результатов и рисует их на Raster.
//
// Поток читается с начала по собственному курсору, без consumer group:
// каждый Collector видит все результаты.
type Collector struct {
	tailer  stream.Tailer
	stream  string
	raster  *Raster
	batch   int
	block   time.Duration
	backoff stream.Backoff
	logger  *slog.Logger

	mu        sync.RWMutex
	cursor    string
	applied   int
	malformed int
}

// Config — конфигурация Collector.
type Config struct {
	Broker stream.Tailer

	ResultStream string // default: mandelbrot:results

	// Raster — холст. Если nil, создаётся CanvasWidth × CanvasHeight.
	Raster       *Raster
	CanvasWidth  int
	CanvasHeight int

	BatchSize int           // записей за одно чтение (default: 10)
	Block     time.Duration // ожидание новых записей (default: 1s)

	Backoff stream.Backoff

	Logger *slog.Logger
}

// Stats — счётчики Collector.
type Stats struct {
	Cursor    string `json:"cursor"`
	Applied   int    `json:"applied"`
	Malformed int    `json:"malformed"`
	Painted   int    `json:"painted"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// New создаёт Collector.
func New(cfg Config) (*Collector, error) {
	if cfg.Broker == nil {
		return nil, ErrNoBroker
	}

	raster := cfg.Raster
	if raster == nil {
		var err error
		if raster, err = NewRaster(cfg.CanvasWidth, cfg.CanvasHeight); err != nil {
			return nil, err
		}
	}

	c := &Collector{
		tailer:  cfg.Broker,
		stream:  cfg.ResultStream,
		raster:  raster,
		batch:   cfg.BatchSize,
		block:   cfg.Block,
		backoff: cfg.Backoff,
		logger:  cfg.Logger,
		cursor:  stream.Start,
	}
	if c.stream == "" {
		c.stream = DefaultResultStream
	}
	if c.batch <= 0 {
		c.batch = DefaultBatchSize
	}
	if c.block <= 0 {
		c.block = DefaultBlock
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Raster возвращает холст.
func (c *Collector) Raster() *Raster {
	return c.raster
}

// Run читает поток результатов, пока не отменён ctx.
//
// Ошибки транспорта не фатальны: лог, backoff, повтор с того же курсора.
// Ошибка возвращается, только если брокер закрыт.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Info("collector started",
		"stream", c.stream,
		"batch", c.batch,
		"block", c.block,
	)

	for {
		if ctx.Err() != nil {
			c.logger.Info("collector stopped", "applied", c.Stats().Applied)
			return nil
		}

		entries, err := c.tailer.Read(ctx, c.stream, c.Cursor(), c.batch, c.block)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, stream.ErrClosed) {
				return err
			}

			telemetry.TransportErrors.WithLabelValues("collector").Inc()
			c.logger.Error("read results failed",
				"attempt", c.backoff.Attempt()+1,
				"error", err,
			)
			// отмена ctx проверяется в начале цикла
			_ = c.backoff.Wait(ctx)
			continue
		}
		c.backoff.Reset()

		for _, entry := range entries {
			if err := c.Apply(entry); err != nil {
				c.logger.Warn("malformed result skipped", "entry_id", entry.ID, "error", err)
			}
			c.advance(entry.ID)
		}
	}
}

// Apply декодирует запись и рисует область. Повторное применение
// той же записи даёт тот же холст.
func (c *Collector) Apply(entry stream.Entry) error {
	msg, err := domain.ParseResultMessage(entry.Fields)
	if err != nil {
		c.mu.Lock()
		c.malformed++
		c.mu.Unlock()
		telemetry.ResultsMalformed.Inc()
		return fmt.Errorf("apply %s: %w", entry.ID, err)
	}

	c.raster.Paint(msg.Region.Rect(), msg.Color)

	c.mu.Lock()
	c.applied++
	c.mu.Unlock()
	telemetry.ResultsApplied.Inc()
	telemetry.RegionsPainted.Set(float64(c.raster.Painted()))

	telemetry.WithRegion(c.logger, msg.Region).Debug("region rendered",
		"entry_id", entry.ID,
		"worker_id", msg.WorkerID,
		"color", msg.Color.Hex(),
		"pixels", msg.Region.Pixels(),
	)
	return nil
}

// Cursor возвращает ID последней обработанной записи.
func (c *Collector) Cursor() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cursor
}

// Stats возвращает текущие счётчики.
func (c *Collector) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bounds := c.raster.Bounds()
	return Stats{
		Cursor:    c.cursor,
		Applied:   c.applied,
		Malformed: c.malformed,
		Painted:   c.raster.Painted(),
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
	}
}

func (c *Collector) advance(id string) {
	c.mu.Lock()
	c.cursor = id
	c.mu.Unlock()
}
