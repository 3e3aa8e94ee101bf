package mq

import (
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrNotConnected — соединение с брокером сейчас не установлено.
	ErrNotConnected = errors.New("amqp not connected")

	// ErrConnectionClosed — соединение закрыто вызовом Close.
	ErrConnectionClosed = errors.New("amqp connection closed")

	// ErrNacked — брокер отказался принять публикацию.
	ErrNacked = errors.New("publish not confirmed")
)

// isNotFound сообщает, что брокер ответил 404 (очередь не существует).
func isNotFound(err error) bool {
	var amqpErr *amqp.Error
	return errors.As(err, &amqpErr) && amqpErr.Code == amqp.NotFound
}
