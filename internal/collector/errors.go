package collector

import "errors"

// Ошибки компоновщика.
var (
	// ErrNoBroker — Collector создан без брокера.
	ErrNoBroker = errors.New("collector: broker is nil")

	// ErrNoExportPath — не задан путь для экспорта.
	ErrNoExportPath = errors.New("export path is empty")
)
