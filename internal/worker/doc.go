// Package worker вычисляет области из очереди работ.
//
// # Обзор
//
// Worker — stateless компонент системы Mosaic. Воркеров может быть
// сколько угодно, между собой они не координируются: очередь делит
// общая consumer group. Worker отвечает за:
//
//   - Получение одной области за раз (ReadGroup, count=1)
//   - Вычисление цвета центрального пикселя (Evaluator)
//   - Публикацию ResultMessage в поток результатов
//   - Возврат в очередь подобластей шире и выше одного пикселя
//   - Подтверждение исходного сообщения
//
// # Состояния
//
//	POLLING → TERMINATED
//
// Причины завершения:
//   - drained   — ожидание истекло, сообщений нет
//   - resolved  — обработанная область не дала ни одной подобласти
//   - cancelled — отменён context или закрыт брокер
//
// resolved означает, что исчерпана ветка, а не вся очередь. Поддерживать
// нужное число воркеров — задача Pool (Restart) или внешнего супервизора.
//
// # Ошибки
//
// Пакет различает три уровня:
//   - Транспорт (брокер недоступен) — лог, stream.Backoff, цикл продолжается.
//     Сообщение остаётся неподтверждённым.
//   - Декодирование и паника Evaluator — лог, счётчик, сообщение не
//     подтверждается и будет выдано повторно после окна видимости.
//   - Завершение — не ошибка, причина в Summary.Reason.
//
// # Pool
//
//	pool, _ := worker.NewPool(worker.PoolConfig{
//	    Worker:      worker.Config{Broker: broker, Logger: logger},
//	    Concurrency: 4,
//	    Restart:     true,
//	})
//	summary, err := pool.Run(ctx)
package worker
