// Package domain содержит модель данных рендера.
//
// Типы:
//   - Region        — прямоугольная область холста + размеры холста
//   - Color         — цвет области
//   - WorkMessage   — область в очереди работ
//   - ResultMessage — вычисленный цвет области в потоке результатов
//
// Сообщения в потоках — плоские карты строковых полей. Имена полей
// (quarter_name, top_left_x, ...) фиксированы: по ним совместимы все
// продюсеры и консьюмеры, написанные под этот формат.
package domain
