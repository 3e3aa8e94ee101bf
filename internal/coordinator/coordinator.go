package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Mosaic/internal/domain"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultWorkStream   = "mandelbrot:work"
	DefaultResultStream = "mandelbrot:results"
	DefaultGroup        = "workers"
)

// Coordinator засевает очередь работ четвертями холста.
type Coordinator struct {
	broker       stream.Broker
	workStream   string
	resultStream string
	group        string
	width        int
	height       int
	clear        bool
	logger       *slog.Logger
	now          func() time.Time
}

// Config — конфигурация Coordinator.
type Config struct {
	Broker stream.Broker

	WorkStream   string // default: mandelbrot:work
	ResultStream string // default: mandelbrot:results
	Group        string // default: workers

	CanvasWidth  int
	CanvasHeight int

	// Clear — удалить оба потока и группу перед засевом.
	Clear bool

	Logger *slog.Logger
}

// Report — итог засева.
type Report struct {
	// Seeded — ID записей, добавленных в очередь работ.
	Seeded []string

	Work    *stream.Info
	Results *stream.Info
}

// New создаёт Coordinator. Холст меньше 2×2 — ошибка.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Broker == nil {
		return nil, ErrNoBroker
	}
	if cfg.CanvasWidth < 2 || cfg.CanvasHeight < 2 {
		return nil, fmt.Errorf("%w: %dx%d", domain.ErrCanvasTooSmall, cfg.CanvasWidth, cfg.CanvasHeight)
	}

	c := &Coordinator{
		broker:       cfg.Broker,
		workStream:   cfg.WorkStream,
		resultStream: cfg.ResultStream,
		group:        cfg.Group,
		width:        cfg.CanvasWidth,
		height:       cfg.CanvasHeight,
		clear:        cfg.Clear,
		logger:       cfg.Logger,
		now:          time.Now,
	}
	if c.workStream == "" {
		c.workStream = DefaultWorkStream
	}
	if c.resultStream == "" {
		c.resultStream = DefaultResultStream
	}
	if c.group == "" {
		c.group = DefaultGroup
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

// Quadrants возвращает четыре области глубины 0.
func (c *Coordinator) Quadrants() []domain.Region {
	quadrants, _ := domain.CanvasQuadrants(c.width, c.height)
	return quadrants
}

// Clear удаляет оба потока вместе с группой.
func (c *Coordinator) Clear(ctx context.Context) error {
	if err := c.broker.Delete(ctx, c.workStream, c.resultStream); err != nil {
		return fmt.Errorf("clear streams: %w", err)
	}
	c.logger.Info("streams cleared", "work", c.workStream, "results", c.resultStream)
	return nil
}

// EnsureGroup создаёт группу воркеров в начале очереди работ.
// Существующая группа — не ошибка.
func (c *Coordinator) EnsureGroup(ctx context.Context) error {
	if err := c.broker.CreateGroup(ctx, c.workStream, c.group); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	c.logger.Info("consumer group ready", "stream", c.workStream, "group", c.group)
	return nil
}

// Seed публикует по одному WorkMessage на четверть.
func (c *Coordinator) Seed(ctx context.Context) ([]string, error) {
	c.logger.Info("seeding work stream",
		"stream", c.workStream,
		"canvas_width", c.width,
		"canvas_height", c.height,
	)

	now := c.now()
	ids := make([]string, 0, 4)
	for _, region := range c.Quadrants() {
		msg := domain.WorkMessage{Region: region, Timestamp: now}

		id, err := c.broker.Append(ctx, c.workStream, msg.Fields())
		if err != nil {
			return ids, fmt.Errorf("seed %s: %w", region.Quarter, err)
		}
		ids = append(ids, id)
		telemetry.RegionsSeeded.Inc()

		c.logger.Info("quadrant posted",
			"id", id,
			"quarter", region.Quarter,
			"top_left", region.TopLeft,
			"bottom_right", region.BottomRight,
		)
	}
	return ids, nil
}

// Run выполняет полный засев: очистка (если включена) → группа → четверти → сводка.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	if c.clear {
		if err := c.Clear(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.EnsureGroup(ctx); err != nil {
		return nil, err
	}

	ids, err := c.Seed(ctx)
	if err != nil {
		return nil, err
	}

	work, results, err := c.Info(ctx)
	if err != nil {
		return nil, err
	}

	return &Report{Seeded: ids, Work: work, Results: results}, nil
}

// Info возвращает сведения об очереди работ и потоке результатов.
func (c *Coordinator) Info(ctx context.Context) (work, results *stream.Info, err error) {
	work, err = c.broker.Info(ctx, c.workStream)
	if err != nil {
		return nil, nil, fmt.Errorf("work stream info: %w", err)
	}
	results, err = c.broker.Info(ctx, c.resultStream)
	if err != nil {
		return nil, nil, fmt.Errorf("result stream info: %w", err)
	}
	return work, results, nil
}

// LogInfo пишет сводку по потоку в лог.
func LogInfo(logger *slog.Logger, info *stream.Info) {
	if !info.Exists {
		logger.Info("stream does not exist yet", "stream", info.Name)
		return
	}

	logger.Info("stream info",
		"stream", info.Name,
		"length", info.Length,
		"first_id", info.FirstID,
		"last_id", info.LastID,
	)
	for _, g := range info.Groups {
		logger.Info("consumer group",
			"stream", info.Name,
			"group", g.Name,
			"consumers", g.Consumers,
			"pending", g.Pending,
			"last_delivered_id", g.LastDeliveredID,
		)
	}
}
