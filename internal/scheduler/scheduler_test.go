package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// everySchedule срабатывает через фиксированный интервал (cron.Every
// округляет до секунды, для тестов это слишком долго).
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time {
	return t.Add(time.Duration(e))
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValidateSpec(t *testing.T) {
	valid := []string{"*/5 * * * *", "0 3 * * 1", "@hourly", "@every 30s"}
	for _, spec := range valid {
		assert.NoError(t, ValidateSpec(spec), spec)
	}

	invalid := []string{"", "every minute", "* * *", "61 * * * *"}
	for _, spec := range invalid {
		assert.Error(t, ValidateSpec(spec), spec)
	}
}

func TestNextRun(t *testing.T) {
	from := time.Date(2026, 1, 1, 10, 7, 0, 0, time.UTC)

	next, err := NextRun("*/15 * * * *", from)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 1, 10, 15, 0, 0, time.UTC), next)

	next, err = NextRun("@every 30s", from)
	require.NoError(t, err)
	assert.Equal(t, from.Add(30*time.Second), next)

	_, err = NextRun("bogus", from)
	assert.Error(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Spec: "@hourly"})
	assert.ErrorIs(t, err, ErrNoJob)

	_, err = New(Config{Spec: "nope", Job: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_RunsUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	s, err := New(Config{
		Name:     "export",
		Schedule: everySchedule(10 * time.Millisecond),
		Job: func(context.Context) error {
			if calls.Add(1) == 2 {
				return errors.New("disk full")
			}
			return nil
		},
		Logger: discard(),
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond,
		"a failing run must not stop the scheduler")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_Tick(t *testing.T) {
	var calls int
	s, err := New(Config{
		Spec:   "@every 1h",
		Job:    func(context.Context) error { calls++; return nil },
		Logger: discard(),
	})
	require.NoError(t, err)

	s.Tick(context.Background())
	s.Tick(context.Background())
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, s.Runs())
}
