// Package mq — реализация stream.Broker поверх RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и открытие каналов
//   - topology.go   — обменник mosaic.streams и объявление очередей
//   - publisher.go  — публикация записей с publisher confirms
//   - consumer.go   — выдача группе через basic.get, ack, возврат просроченных
//   - tail.go       — чтение stream queue по x-stream-offset
//   - broker.go     — сборка всего в stream.Broker
//
// Соответствие потокам:
//   - поток работ (с группой)   → quorum queue
//   - поток результатов (хвост) → stream queue
//
// Тело сообщения — JSON-объект с полями записи.
package mq
