package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoBroker — Worker создан без брокера.
	ErrNoBroker = errors.New("worker: broker is nil")

	// ErrEvaluate — Evaluator запаниковал на области.
	ErrEvaluate = errors.New("evaluation failed")

	// ErrTransport — операция брокера не удалась. Сообщение остаётся
	// неподтверждённым и будет выдано повторно.
	ErrTransport = errors.New("transport failure")

	// ErrAlreadyRunning — Run вызван повторно на том же Worker.
	ErrAlreadyRunning = errors.New("worker already running")
)
