package stream

import "errors"

// Ошибки транспорта.
var (
	// ErrNoGroup — consumer group не существует (её не создал Coordinator
	// или поток был очищен).
	ErrNoGroup = errors.New("consumer group does not exist")

	// ErrClosed — брокер закрыт.
	ErrClosed = errors.New("broker closed")

	// ErrInvalidID — ID записи не разобран.
	ErrInvalidID = errors.New("invalid entry id")
)
