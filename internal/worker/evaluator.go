package worker

import (
	"fmt"
	"time"

	"github.com/shaiso/Mosaic/internal/domain"
	"github.com/shaiso/Mosaic/internal/fractal"
	"github.com/shaiso/Mosaic/internal/telemetry"
)

// Evaluator вычисляет цвет области.
//
// Реализация должна быть чистой функцией: повторная выдача сообщения
// обязана дать тот же цвет, иначе дубликаты результата разойдутся.
type Evaluator interface {
	Evaluate(r domain.Region) domain.Color
}

// EvaluatorFunc позволяет использовать функцию как Evaluator.
type EvaluatorFunc func(r domain.Region) domain.Color

// Evaluate вызывает f(r).
func (f EvaluatorFunc) Evaluate(r domain.Region) domain.Color {
	return f(r)
}

// Mandelbrot — Evaluator по умолчанию: цвет центрального пикселя
// в множестве Мандельброта.
var Mandelbrot Evaluator = EvaluatorFunc(func(r domain.Region) domain.Color {
	return fractal.Evaluate(r, r.CanvasWidth, r.CanvasHeight)
})

// evaluate вызывает Evaluator и превращает панику в ErrEvaluate.
func (w *Worker) evaluate(r domain.Region) (color domain.Color, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %s: %v", ErrEvaluate, r, p)
		}
	}()

	start := time.Now()
	color = w.evaluator.Evaluate(r)
	telemetry.EvaluateDuration.Observe(time.Since(start).Seconds())
	return color, nil
}
