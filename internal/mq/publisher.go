package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует записи потоков с publisher confirms.
//
// ID записи — UUIDv7 в MessageId: упорядочен по времени в пределах
// процесса, но назначается клиентом, а не брокером.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish отправляет поля записи в поток и ждёт подтверждения брокера.
func (p *Publisher) Publish(ctx context.Context, stream string, fields map[string]string) (string, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate message id: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		return "", err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(
		ctx,
		string(ExchangeStreams), // exchange
		stream,                  // routing key
		false,                   // mandatory
		false,                   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    id.String(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.reset()
		return "", fmt.Errorf("publish to %s: %w", stream, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("wait confirm %s: %w", stream, err)
	}
	if !acked {
		return "", fmt.Errorf("%w: %s", ErrNacked, stream)
	}

	p.logger.Debug("published entry",
		"stream", stream,
		"message_id", id.String(),
	)

	return id.String(), nil
}

// Close закрывает канал публикации.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// channel возвращает канал в режиме confirm, открывая его при необходимости.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.conn.OpenChannel()
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}

	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil && !p.ch.IsClosed() {
		p.ch.Close()
	}
	p.ch = nil
}

// decodeFields разбирает тело сообщения в карту полей.
func decodeFields(body []byte) (map[string]string, error) {
	fields := make(map[string]string)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}
