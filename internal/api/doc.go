// Package api содержит HTTP API компоновщика и служебные маршруты.
//
// Структура:
//   - handler.go        — Handler с DI (collector, exporter, logger)
//   - routes.go         — регистрация маршрутов
//   - raster_handler.go — снимок холста, счётчики, экспорт
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы
//   - server.go         — http.Server с graceful shutdown
//
// Маршруты:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /api/v1/raster.png
//	GET  /api/v1/stats
//	POST /api/v1/export
//
// Воркер регистрирует только /healthz и /metrics (RegisterOps).
package api
