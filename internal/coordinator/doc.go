// Package coordinator засевает очередь работ.
//
// Coordinator делит холст на четыре четверти по целочисленным серединам
// и публикует по одному WorkMessage на каждую. Дальше разбиение идёт
// без него: воркеры сами возвращают подобласти в очередь.
//
// Повторный запуск безопасен, если включена очистка: оба потока и
// группа удаляются до засева, поэтому работа не удваивается.
//
// Порядок Run:
//  1. Clear       — удалить потоки (если Config.Clear)
//  2. EnsureGroup — группа воркеров в начале очереди
//  3. Seed        — четыре четверти
//  4. Info        — сводка по обоим потокам
package coordinator
