package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/shaiso/Mosaic/internal/domain"
)

// Pool запускает несколько воркеров в одном процессе.
//
// Воркер, завершившийся с resolved, при Restart заменяется новым с
// новым ID. Первый drained останавливает замены: оставшиеся воркеры
// дорабатывают и завершаются сами.
type Pool struct {
	template    Config
	concurrency int
	restart     bool
	logger      *slog.Logger

	drained atomic.Bool
}

// PoolConfig — конфигурация Pool.
type PoolConfig struct {
	// Worker — шаблон конфигурации. ID используется, только если воркер
	// в пуле один и без перезапусков; иначе у каждого воркера свой.
	Worker Config

	// Concurrency — число одновременно работающих воркеров (default: 1).
	Concurrency int

	// Restart — заменять воркеры, завершившиеся с resolved.
	Restart bool

	Logger *slog.Logger
}

// PoolSummary — итог работы пула.
type PoolSummary struct {
	Workers []*Summary

	Dequeued       int
	Results        int
	Enqueued       int
	DecodeFailures int
}

// NewPool создаёт Pool.
func NewPool(cfg PoolConfig) (*Pool, error) {
	if cfg.Worker.Broker == nil {
		return nil, ErrNoBroker
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = cfg.Worker.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Pool{
		template:    cfg.Worker,
		concurrency: concurrency,
		restart:     cfg.Restart,
		logger:      logger,
	}, nil
}

// Run запускает воркеры и ждёт, пока все они завершатся.
func (p *Pool) Run(ctx context.Context) (*PoolSummary, error) {
	p.logger.Info("starting worker pool",
		"concurrency", p.concurrency,
		"restart", p.restart,
	)

	var (
		mu  sync.Mutex
		out = &PoolSummary{}
	)

	g, ctx := errgroup.WithContext(ctx)
	for slot := range p.concurrency {
		g.Go(func() error {
			for {
				sum, err := p.runOne(ctx)
				if sum != nil {
					mu.Lock()
					out.add(sum)
					mu.Unlock()
				}
				if err != nil {
					return fmt.Errorf("slot %d: %w", slot, err)
				}
				if !p.replace(sum) || ctx.Err() != nil {
					return nil
				}
				p.logger.Info("restarting resolved worker", "slot", slot, "previous", sum.WorkerID)
			}
		})
	}

	err := g.Wait()
	p.logger.Info("worker pool stopped",
		"workers", len(out.Workers),
		"dequeued", out.Dequeued,
		"enqueued", out.Enqueued,
	)
	return out, err
}

func (p *Pool) runOne(ctx context.Context) (*Summary, error) {
	cfg := p.template
	if p.concurrency > 1 || p.restart {
		cfg.ID = ""
	}
	w, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return w.Run(ctx)
}

// replace решает, нужен ли новый воркер на место завершившегося.
func (p *Pool) replace(sum *Summary) bool {
	if sum.Reason == domain.ReasonDrained {
		p.drained.Store(true)
	}
	return p.restart && sum.Reason == domain.ReasonResolved && !p.drained.Load()
}

func (s *PoolSummary) add(sum *Summary) {
	s.Workers = append(s.Workers, sum)
	s.Dequeued += sum.Dequeued
	s.Results += sum.Results
	s.Enqueued += sum.Enqueued
	s.DecodeFailures += sum.DecodeFailures
}
