package domain

import "errors"

// Ошибки доменной модели.
var (
	// ErrInvalidRegion — координаты области нарушают инвариант холста.
	ErrInvalidRegion = errors.New("invalid region")

	// ErrCanvasTooSmall — холст меньше 2x2 нельзя разбить на четверти.
	ErrCanvasTooSmall = errors.New("canvas too small")

	// ErrDecode — запись потока не удалось разобрать в сообщение.
	ErrDecode = errors.New("decode message")

	// ErrMissingField — в записи нет обязательного поля.
	ErrMissingField = errors.New("missing field")

	// ErrInvalidField — поле есть, но значение не число или вне диапазона.
	ErrInvalidField = errors.New("invalid field")
)
