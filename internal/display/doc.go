// Package display показывает холст компоновщика в терминале.
//
// Модель bubbletea перерисовывает кадр с фиксированной частотой
// (по умолчанию 30 FPS): берёт снимок холста, масштабирует его до
// размера терминала и рисует по два пикселя на ячейку символом ▀.
// Нижняя строка — статус "Regions: N".
//
// Выход — q, esc или ctrl+c. Используется, только если stdout —
// терминал (IsTerminal).
package display
