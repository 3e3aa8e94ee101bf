// Package telemetry — логи и метрики всех сервисов Mosaic.
//
// Логи: log/slog, JSON или текст, уровень из logging.level. Атрибуты
// добавляются хелперами WithComponent, WithWorkerID, WithRegion, чтобы
// ключи совпадали во всех сервисах.
//
// Метрики: глобальные promauto-коллекторы с префиксом mosaic_.
// Их отдаёт /metrics воркера и компоновщика.
package telemetry
