package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Mosaic/internal/domain"
	"github.com/shaiso/Mosaic/internal/stream"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultWorkStream   = "mandelbrot:work"
	DefaultResultStream = "mandelbrot:results"
	DefaultGroup        = "workers"
	DefaultPollTimeout  = 5 * time.Second
)

// Worker вычисляет области из очереди работ.
//
// Worker читает очередь через consumer group по одному сообщению,
// публикует цвет области в поток результатов, возвращает в очередь
// подобласти, которые ещё можно делить, и подтверждает сообщение.
//
// Worker одноразовый: после Run он в состоянии TERMINATED.
// Для долгоживущего пула используйте Pool.
type Worker struct {
	broker       stream.Broker
	workStream   string
	resultStream string
	group        string
	id           string
	pollTimeout  time.Duration
	evaluator    Evaluator
	backoff      stream.Backoff
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.RWMutex
	state   domain.WorkerState
	started bool
}

// Config — конфигурация Worker.
type Config struct {
	Broker stream.Broker

	WorkStream   string // default: mandelbrot:work
	ResultStream string // default: mandelbrot:results
	Group        string // default: workers

	// ID — имя воркера в группе (default: worker-<8 hex>).
	ID string

	// PollTimeout — сколько ждать сообщение, прежде чем считать
	// очередь пустой (default: 5s).
	PollTimeout time.Duration

	// Evaluator (default: Mandelbrot).
	Evaluator Evaluator

	// Backoff — задержки после ошибок транспорта.
	Backoff stream.Backoff

	Logger *slog.Logger
}

// Summary — итог работы Worker.
type Summary struct {
	WorkerID string

	Dequeued        int
	Results         int
	Enqueued        int
	DecodeFailures  int
	TransportErrors int

	Reason   domain.TerminationReason
	Duration time.Duration
}

// NewID возвращает ID вида worker-1a2b3c4d.
func NewID() string {
	u := uuid.New()
	return fmt.Sprintf("worker-%x", u[:4])
}

// New создаёт Worker.
func New(cfg Config) (*Worker, error) {
	if cfg.Broker == nil {
		return nil, ErrNoBroker
	}

	w := &Worker{
		broker:       cfg.Broker,
		workStream:   cfg.WorkStream,
		resultStream: cfg.ResultStream,
		group:        cfg.Group,
		id:           cfg.ID,
		pollTimeout:  cfg.PollTimeout,
		evaluator:    cfg.Evaluator,
		backoff:      cfg.Backoff,
		now:          time.Now,
		state:        domain.WorkerStatePolling,
	}
	if w.workStream == "" {
		w.workStream = DefaultWorkStream
	}
	if w.resultStream == "" {
		w.resultStream = DefaultResultStream
	}
	if w.group == "" {
		w.group = DefaultGroup
	}
	if w.id == "" {
		w.id = NewID()
	}
	if w.pollTimeout <= 0 {
		w.pollTimeout = DefaultPollTimeout
	}
	if w.evaluator == nil {
		w.evaluator = Mandelbrot
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w.logger = telemetry.WithWorkerID(logger, w.id)

	return w, nil
}

// ID возвращает имя воркера в группе.
func (w *Worker) ID() string {
	return w.id
}

// State возвращает текущее состояние.
func (w *Worker) State() domain.WorkerState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Run читает очередь, пока воркер не завершится.
//
// Завершение не ошибка: причина лежит в Summary.Reason.
// Ошибка возвращается, только если брокер закрыт и продолжать нельзя.
func (w *Worker) Run(ctx context.Context) (*Summary, error) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	w.started = true
	w.mu.Unlock()

	telemetry.WorkersRunning.Inc()
	defer telemetry.WorkersRunning.Dec()

	w.logger.Info("worker starting",
		"stream", w.workStream,
		"group", w.group,
		"poll_timeout", w.pollTimeout,
	)

	start := time.Now()
	sum := &Summary{WorkerID: w.id}
	backoff := w.backoff

	reason, err := w.loop(ctx, sum, &backoff)

	sum.Reason = reason
	sum.Duration = time.Since(start)

	w.mu.Lock()
	w.state = domain.WorkerStateTerminated
	w.mu.Unlock()

	w.logger.Info("worker terminated",
		"reason", reason,
		"dequeued", sum.Dequeued,
		"results", sum.Results,
		"enqueued", sum.Enqueued,
		"decode_failures", sum.DecodeFailures,
		"duration", sum.Duration,
	)
	return sum, err
}

// loop — POLLING до первой причины завершения.
func (w *Worker) loop(ctx context.Context, sum *Summary, backoff *stream.Backoff) (domain.TerminationReason, error) {
	for {
		err := w.broker.CreateGroup(ctx, w.workStream, w.group)
		if err == nil {
			break
		}
		if reason, fatal, stop := w.failure(ctx, sum, backoff, "create group", err); stop {
			return reason, fatal
		}
	}
	backoff.Reset()

	for {
		if ctx.Err() != nil {
			return domain.ReasonCancelled, nil
		}

		entries, err := w.broker.ReadGroup(ctx, w.workStream, w.group, w.id, 1, w.pollTimeout)
		if err != nil {
			if errors.Is(err, stream.ErrNoGroup) {
				// поток очищен координатором, группа пропала вместе с ним
				w.recreateGroup(ctx)
			}
			if reason, fatal, stop := w.failure(ctx, sum, backoff, "read", err); stop {
				return reason, fatal
			}
			continue
		}
		backoff.Reset()

		if len(entries) == 0 {
			return domain.ReasonDrained, nil
		}

		for _, entry := range entries {
			sum.Dequeued++
			telemetry.RegionsDequeued.Inc()

			enqueued, err := w.process(ctx, entry, sum)
			switch {
			case err == nil:
				if enqueued == 0 {
					return domain.ReasonResolved, nil
				}
			case errors.Is(err, domain.ErrDecode), errors.Is(err, ErrEvaluate):
				sum.DecodeFailures++
				telemetry.DecodeFailures.Inc()
				w.logger.Warn("work message skipped, left pending",
					"entry_id", entry.ID,
					"error", err,
				)
			default:
				if reason, fatal, stop := w.failure(ctx, sum, backoff, "process", err); stop {
					return reason, fatal
				}
			}
		}
	}
}

// failure учитывает ошибку транспорта и ждёт backoff.
// stop=true — цикл надо завершить с reason и ошибкой fatal.
func (w *Worker) failure(ctx context.Context, sum *Summary, backoff *stream.Backoff, op string, err error) (reason domain.TerminationReason, fatal error, stop bool) {
	if ctx.Err() != nil {
		return domain.ReasonCancelled, nil, true
	}
	if errors.Is(err, stream.ErrClosed) {
		return domain.ReasonCancelled, err, true
	}

	sum.TransportErrors++
	telemetry.TransportErrors.WithLabelValues("worker").Inc()

	w.logger.Error("broker operation failed",
		"op", op,
		"attempt", backoff.Attempt()+1,
		"error", err,
	)

	if err := backoff.Wait(ctx); err != nil {
		return domain.ReasonCancelled, nil, true
	}
	return "", nil, false
}

// recreateGroup заново создаёт пропавшую группу. Ошибка не прерывает
// цикл: следующий ReadGroup снова вернёт ErrNoGroup и попытка повторится.
func (w *Worker) recreateGroup(ctx context.Context) {
	if err := w.broker.CreateGroup(ctx, w.workStream, w.group); err != nil {
		w.logger.Warn("recreate consumer group failed",
			"stream", w.workStream,
			"group", w.group,
			"error", err,
		)
		return
	}
	w.logger.Info("consumer group recreated", "stream", w.workStream, "group", w.group)
}

// process обрабатывает одно сообщение: decode → evaluate → результат →
// подобласти → ack. Возвращает число опубликованных подобластей.
//
// Между публикацией и ack нет транзакции: падение в этом промежутке
// даёт повторную выдачу и дубликаты, которые рисуются одинаково.
func (w *Worker) process(ctx context.Context, entry stream.Entry, sum *Summary) (int, error) {
	msg, err := domain.ParseWorkMessage(entry.Fields)
	if err != nil {
		return 0, err
	}
	region := msg.Region

	logger := telemetry.WithRegion(w.logger, region).With("entry_id", entry.ID)
	logger.Debug("processing region")

	color, err := w.evaluate(region)
	if err != nil {
		return 0, err
	}

	now := w.now()
	result := domain.ResultMessage{
		Region:    region,
		Color:     color,
		WorkerID:  w.id,
		Timestamp: now,
	}
	resultID, err := w.broker.Append(ctx, w.resultStream, result.Fields())
	if err != nil {
		return 0, fmt.Errorf("%w: publish result: %w", ErrTransport, err)
	}
	sum.Results++
	telemetry.ResultsPublished.Inc()
	logger.Debug("result published", "id", resultID, "color", color.Hex())

	enqueued := 0
	for _, sub := range region.Subdivide() {
		if !sub.Splittable() {
			continue
		}

		sub.Quarter = domain.SubdivisionLabel(sub.Quarter)
		work := domain.WorkMessage{Region: sub, Timestamp: now, SubdividedBy: w.id}
		if _, err := w.broker.Append(ctx, w.workStream, work.Fields()); err != nil {
			return enqueued, fmt.Errorf("%w: publish subdivision: %w", ErrTransport, err)
		}
		enqueued++
		sum.Enqueued++
		telemetry.RegionsEnqueued.Inc()
	}

	if err := w.broker.Ack(ctx, w.workStream, w.group, entry.ID); err != nil {
		return enqueued, fmt.Errorf("%w: ack: %w", ErrTransport, err)
	}

	if enqueued == 0 {
		logger.Info("branch resolved, no splittable subdivisions")
	}
	return enqueued, nil
}
