// Package config загружает конфигурацию сервисов Mosaic.
//
// Источники (по возрастанию приоритета):
//   - значения по умолчанию (Default)
//   - YAML-файл: $MOSAIC_CONFIG, ./mosaic.yaml или ~/.config/mosaic/mosaic.yaml
//   - переменные окружения с префиксом MOSAIC_ (точка заменяется на "_"),
//     например MOSAIC_BROKER_KIND=memory, MOSAIC_WORKER_CONCURRENCY=4
//
// Пример файла:
//
//	broker:
//	  kind: redis
//	  redis_url: redis://localhost:6379/0
//	canvas:
//	  width: 800
//	  height: 600
//	collector:
//	  export_schedule: "@every 30s"
package config
