package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrNoJob — в конфигурации не задана функция задания.
var ErrNoJob = errors.New("scheduler job is nil")

// Job — периодическое задание. Ошибка логируется и не останавливает Scheduler.
type Job func(ctx context.Context) error

// Scheduler запускает Job по расписанию, пока жив context.
// Запуски не перекрываются: следующий считается от конца предыдущего.
type Scheduler struct {
	name     string
	schedule cron.Schedule
	job      Job
	logger   *slog.Logger
	now      func() time.Time

	runs     int
	failures int
}

// Config — конфигурация Scheduler.
type Config struct {
	// Name — имя задания для логов.
	Name string

	// Spec — cron-выражение. Игнорируется, если задан Schedule.
	Spec string

	// Schedule — готовое расписание (для тестов и нестандартных интервалов).
	Schedule cron.Schedule

	Job    Job
	Logger *slog.Logger
}

// New создаёт Scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Job == nil {
		return nil, ErrNoJob
	}

	schedule := cfg.Schedule
	if schedule == nil {
		var err error
		schedule, err = ParseSpec(cfg.Spec)
		if err != nil {
			return nil, err
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = "job"
	}

	return &Scheduler{
		name:     name,
		schedule: schedule,
		job:      cfg.Job,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run ждёт срабатываний и выполняет задание. Возвращает nil при отмене context.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "job", s.name, "next_run", s.schedule.Next(s.now()))

	for {
		next := s.schedule.Next(s.now())
		if next.IsZero() {
			return fmt.Errorf("schedule for %s never fires", s.name)
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopped", "job", s.name, "runs", s.runs, "failures", s.failures)
			return nil
		case <-timer.C:
		}

		s.Tick(ctx)
	}
}

// Tick выполняет задание один раз.
func (s *Scheduler) Tick(ctx context.Context) {
	start := s.now()
	s.runs++

	if err := s.job(ctx); err != nil {
		s.failures++
		s.logger.Error("scheduled job failed", "job", s.name, "error", err)
		return
	}

	s.logger.Debug("scheduled job done", "job", s.name, "duration", time.Since(start))
}

// Runs возвращает число запусков. Не потокобезопасен относительно Run.
func (s *Scheduler) Runs() int {
	return s.runs
}
