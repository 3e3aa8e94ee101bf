// Package stream описывает транспорт, на котором держится рендер:
// два durable-потока с at-least-once доставкой.
//
// Структура:
//   - stream.go  — интерфейсы Appender, Tailer, GroupConsumer, Admin, Broker
//   - memory.go  — брокер в памяти процесса (тесты, mosaic-local)
//   - backoff.go — задержка между повторами после ошибок транспорта
//
// Ядру нужны ровно пять примитивов брокера:
//   - append с монотонным ID, назначенным брокером
//   - чтение хвоста потока по курсору
//   - регистрация consumer group
//   - конкурирующая выдача с pending-списком
//   - подтверждение (ack)
//
// Реализации:
//   - redisstream — Redis Streams (XADD / XREADGROUP / XAUTOCLAIM / XACK)
//   - mq          — RabbitMQ (quorum queue + stream queue)
//   - repo        — PostgreSQL (SKIP LOCKED)
//   - Memory      — в памяти
//
// Таймаут ожидания — не ошибка: по нему воркер понимает, что очередь
// пуста, а компоновщик отдаёт управление другим событиям.
package stream
