package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Mosaic/internal/stream"
)

// DefaultPollInterval — пауза между пустыми basic.get внутри ReadGroup.
const DefaultPollInterval = 100 * time.Millisecond

// Options — настройки брокера.
type Options struct {
	URL string

	// Visibility — через сколько неподтверждённая доставка этого процесса
	// возвращается в очередь (default: stream.DefaultVisibility).
	Visibility time.Duration

	// PollInterval — пауза между пустыми basic.get (default: DefaultPollInterval).
	PollInterval time.Duration

	Logger *slog.Logger
}

// Broker реализует stream.Broker поверх RabbitMQ.
//
// Поток, для которого создана группа, живёт в quorum queue и
// раздаётся через basic.get. Поток, который только дописывают и
// читают хвостом, живёт в stream queue.
//
// Группа у очереди одна: её имя хранится локально и нужно только для Info.
type Broker struct {
	conn     *Connection
	pub      *Publisher
	consumer *Consumer
	logger   *slog.Logger

	mu       sync.Mutex
	declared map[string]struct{}
	groups   map[string]string
}

var _ stream.Broker = (*Broker)(nil)

// New подключается к RabbitMQ и объявляет обменник.
func New(ctx context.Context, opts Options) (*Broker, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	visibility := opts.Visibility
	if visibility <= 0 {
		visibility = stream.DefaultVisibility
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	conn, err := NewConnection(opts.URL, logger)
	if err != nil {
		return nil, err
	}

	if err := SetupTopology(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setup topology: %w", err)
	}

	return &Broker{
		conn:     conn,
		pub:      NewPublisher(conn, logger),
		consumer: NewConsumer(conn, logger, visibility, poll),
		logger:   logger,
		declared: make(map[string]struct{}),
		groups:   make(map[string]string),
	}, nil
}

// Append публикует запись. Если очереди ещё нет, поток объявляется
// как stream queue.
func (b *Broker) Append(ctx context.Context, name string, fields map[string]string) (string, error) {
	if err := b.ensureExists(name); err != nil {
		return "", err
	}
	return b.pub.Publish(ctx, name, fields)
}

// Read читает хвост stream queue.
func (b *Broker) Read(ctx context.Context, name, after string, count int, block time.Duration) ([]stream.Entry, error) {
	if err := b.ensureDeclared(name, kindLog); err != nil {
		return nil, err
	}
	return tail(ctx, b.conn, name, after, count, block)
}

// CreateGroup объявляет поток как quorum queue.
func (b *Broker) CreateGroup(_ context.Context, name, group string) error {
	if err := b.ensureDeclared(name, kindWork); err != nil {
		return err
	}

	b.mu.Lock()
	b.groups[name] = group
	b.mu.Unlock()
	return nil
}

// ReadGroup выдаёт записи через basic.get.
func (b *Broker) ReadGroup(ctx context.Context, name, _, consumer string, count int, block time.Duration) ([]stream.Entry, error) {
	return b.consumer.Get(ctx, name, consumer, count, block)
}

// Ack подтверждает доставки этого процесса.
func (b *Broker) Ack(_ context.Context, name, _ string, ids ...string) error {
	return b.consumer.Ack(name, ids...)
}

// Delete удаляет очереди. Отсутствующая очередь — не ошибка.
func (b *Broker) Delete(_ context.Context, names ...string) error {
	for _, name := range names {
		ch, err := b.conn.OpenChannel()
		if err != nil {
			return err
		}

		_, err = ch.QueueDelete(name, false, false, false)
		if err != nil && !isNotFound(err) {
			ch.Close()
			return fmt.Errorf("delete queue %s: %w", name, err)
		}
		if !ch.IsClosed() {
			ch.Close()
		}

		b.consumer.Forget(name)

		b.mu.Lock()
		delete(b.declared, name)
		delete(b.groups, name)
		b.mu.Unlock()
	}
	return nil
}

// Info возвращает сведения об очереди через passive declare.
func (b *Broker) Info(_ context.Context, name string) (*stream.Info, error) {
	info := &stream.Info{Name: name}

	ch, err := b.conn.OpenChannel()
	if err != nil {
		return nil, err
	}
	defer func() {
		if !ch.IsClosed() {
			ch.Close()
		}
	}()

	q, err := ch.QueueDeclarePassive(name, true, false, false, false, nil)
	if err != nil {
		if isNotFound(err) {
			return info, nil
		}
		return nil, fmt.Errorf("inspect queue %s: %w", name, err)
	}

	info.Exists = true
	info.Length = int64(q.Messages)

	b.mu.Lock()
	group, ok := b.groups[name]
	b.mu.Unlock()
	if ok {
		info.Groups = append(info.Groups, stream.GroupInfo{
			Name:      group,
			Consumers: int64(q.Consumers),
			Pending:   b.consumer.Outstanding(name),
		})
	}
	return info, nil
}

// Close закрывает каналы и соединение.
func (b *Broker) Close() error {
	b.pub.Close()
	b.consumer.Close()
	return b.conn.Close()
}

// ensureDeclared объявляет очередь нужного типа один раз за процесс.
func (b *Broker) ensureDeclared(name string, kind queueKind) error {
	b.mu.Lock()
	_, ok := b.declared[name]
	b.mu.Unlock()
	if ok {
		return nil
	}

	ch, err := b.conn.OpenChannel()
	if err != nil {
		return err
	}
	defer func() {
		if !ch.IsClosed() {
			ch.Close()
		}
	}()

	if err := declareQueue(ch, name, kind); err != nil {
		return err
	}

	b.logger.Debug("declared queue", "queue", name, "type", kind)
	b.remember(name)
	return nil
}

// ensureExists проверяет, что очередь есть; иначе объявляет stream queue.
func (b *Broker) ensureExists(name string) error {
	b.mu.Lock()
	_, ok := b.declared[name]
	b.mu.Unlock()
	if ok {
		return nil
	}

	ch, err := b.conn.OpenChannel()
	if err != nil {
		return err
	}
	_, err = ch.QueueDeclarePassive(name, true, false, false, false, nil)
	if !ch.IsClosed() {
		ch.Close()
	}

	switch {
	case err == nil:
		b.remember(name)
		return nil
	case isNotFound(err):
		return b.ensureDeclared(name, kindLog)
	default:
		return fmt.Errorf("inspect queue %s: %w", name, err)
	}
}

func (b *Broker) remember(name string) {
	b.mu.Lock()
	b.declared[name] = struct{}{}
	b.mu.Unlock()
}
