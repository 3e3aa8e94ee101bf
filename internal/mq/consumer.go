package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Mosaic/internal/stream"
)

// outstanding — выданная, но не подтверждённая доставка.
type outstanding struct {
	queue       string
	consumer    string
	tag         uint64
	deliveredAt time.Time
}

// Consumer выдаёт записи quorum-очереди членам группы через basic.get.
//
// Delivery tag привязан к каналу, поэтому все выдачи процесса идут
// через один канал. Если канал умер, брокер сам вернёт
// неподтверждённые сообщения в очередь, а локальный список сбрасывается.
type Consumer struct {
	conn       *Connection
	logger     *slog.Logger
	visibility time.Duration
	poll       time.Duration
	now        func() time.Time

	mu      sync.Mutex
	ch      *amqp.Channel
	pending map[string]outstanding
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, visibility, poll time.Duration) *Consumer {
	return &Consumer{
		conn:       conn,
		logger:     logger,
		visibility: visibility,
		poll:       poll,
		now:        time.Now,
		pending:    make(map[string]outstanding),
	}
}

// Get выдаёт до count записей, ожидая не дольше block.
func (c *Consumer) Get(ctx context.Context, queue, consumer string, count int, block time.Duration) ([]stream.Entry, error) {
	if count <= 0 {
		count = 1
	}

	deadline := time.Now().Add(block)
	for {
		entries, err := c.getBatch(queue, consumer, count)
		if err != nil || len(entries) > 0 {
			return entries, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(min(c.poll, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Consumer) getBatch(queue, consumer string, count int) ([]stream.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch, err := c.channel()
	if err != nil {
		return nil, err
	}

	c.requeueStaleLocked(ch)

	var entries []stream.Entry
	for len(entries) < count {
		d, ok, err := ch.Get(queue, false)
		if err != nil {
			c.resetLocked()
			if isNotFound(err) {
				return nil, fmt.Errorf("%w: %s", stream.ErrNoGroup, queue)
			}
			return nil, fmt.Errorf("basic.get %s: %w", queue, err)
		}
		if !ok {
			break
		}

		id := d.MessageId
		if id == "" {
			id = fmt.Sprintf("tag-%d", d.DeliveryTag)
		}

		fields, err := decodeFields(d.Body)
		if err != nil {
			// Запись остаётся неподтверждённой: потребитель сам решит,
			// что делать с полями, которые не разобрать.
			c.logger.Warn("undecodable message body", "queue", queue, "message_id", id, "error", err)
			fields = map[string]string{}
		}

		c.pending[id] = outstanding{
			queue:       queue,
			consumer:    consumer,
			tag:         d.DeliveryTag,
			deliveredAt: c.now(),
		}
		entries = append(entries, stream.Entry{ID: id, Fields: fields})
	}
	return entries, nil
}

// requeueStaleLocked возвращает в очередь доставки старше окна видимости.
func (c *Consumer) requeueStaleLocked(ch *amqp.Channel) {
	now := c.now()
	for id, p := range c.pending {
		if now.Sub(p.deliveredAt) < c.visibility {
			continue
		}
		if err := ch.Nack(p.tag, false, true); err != nil {
			c.logger.Warn("requeue stale delivery failed", "queue", p.queue, "message_id", id, "error", err)
		} else {
			c.logger.Info("requeued stale delivery",
				"queue", p.queue,
				"message_id", id,
				"consumer", p.consumer,
			)
		}
		delete(c.pending, id)
	}
}

// Ack подтверждает доставки. Неизвестный ID — не ошибка.
func (c *Consumer) Ack(queue string, ids ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, id := range ids {
		p, ok := c.pending[id]
		if !ok || p.queue != queue {
			continue
		}
		delete(c.pending, id)

		if c.ch == nil || c.ch.IsClosed() {
			continue
		}
		if err := c.ch.Ack(p.tag, false); err != nil {
			c.resetLocked()
			return fmt.Errorf("ack %s/%s: %w", queue, id, err)
		}
	}
	return nil
}

// Outstanding возвращает число неподтверждённых доставок очереди.
func (c *Consumer) Outstanding(queue string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var n int64
	for _, p := range c.pending {
		if p.queue == queue {
			n++
		}
	}
	return n
}

// Forget удаляет доставки очереди из локального списка.
func (c *Consumer) Forget(queue string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, p := range c.pending {
		if p.queue == queue {
			delete(c.pending, id)
		}
	}
}

// Close закрывает канал выдачи.
func (c *Consumer) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

func (c *Consumer) channel() (*amqp.Channel, error) {
	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}

	// Канал умер вместе с тегами доставок.
	clear(c.pending)

	ch, err := c.conn.OpenChannel()
	if err != nil {
		return nil, err
	}
	c.ch = ch
	return ch, nil
}

func (c *Consumer) resetLocked() {
	if c.ch != nil && !c.ch.IsClosed() {
		c.ch.Close()
	}
	c.ch = nil
	clear(c.pending)
}
