package stream

import (
	"context"
	"time"
)

// Значения по умолчанию для Backoff.
const (
	defaultBackoffInitial = 200 * time.Millisecond
	defaultBackoffMax     = 5 * time.Second
)

// Backoff — экспоненциальная задержка между повторами после ошибок
// транспорта: initial * 2^(attempt-1), но не больше max.
//
// Не потокобезопасен, у каждого цикла свой экземпляр.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration

	attempt int
}

// Next возвращает следующую задержку и увеличивает счётчик попыток.
func (b *Backoff) Next() time.Duration {
	initial := b.Initial
	if initial <= 0 {
		initial = defaultBackoffInitial
	}
	maxDelay := b.Max
	if maxDelay <= 0 {
		maxDelay = defaultBackoffMax
	}

	b.attempt++
	delay := initial
	for i := 1; i < b.attempt; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

// Attempt возвращает число неудачных попыток подряд.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Reset сбрасывает счётчик после успешной операции.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Wait ждёт следующую задержку с учётом context.
// Возвращает ctx.Err(), если context отменён раньше.
func (b *Backoff) Wait(ctx context.Context) error {
	timer := time.NewTimer(b.Next())
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
