// Package collector собирает итоговую картинку из потока результатов.
//
// Collector читает поток результатов с начала по своему курсору и
// закрашивает каждую область её цветом. Закраска идемпотентна:
// дубликаты после повторной выдачи рисуют то же самое, порядок
// результатов от разных воркеров не важен.
//
// Raster защищён RWMutex. Писатель один (Collector.Run), читатели
// (дисплей, HTTP, Exporter) работают со снимком из Snapshot.
//
// Exporter пишет PNG атомарно через временный файл и rename, поэтому
// периодический экспорт и экспорт при выходе не оставляют битых файлов.
package collector
