package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// ExchangeStreams — direct-обменник, через который пишутся все потоки.
// Routing key совпадает с именем потока и с именем очереди.
const ExchangeStreams Exchange = "mosaic.streams"

// queueKind — как поток хранится в RabbitMQ.
type queueKind int

const (
	// kindWork — quorum queue: конкурирующие потребители, ack/requeue.
	kindWork queueKind = iota + 1

	// kindLog — stream queue: неразрушающее чтение по offset.
	kindLog
)

func (k queueKind) String() string {
	switch k {
	case kindWork:
		return "quorum"
	case kindLog:
		return "stream"
	default:
		return "unknown"
	}
}

// unlimitedDeliveries снимает лимит повторных доставок quorum queue.
// С RabbitMQ 4.0 лимит по умолчанию 20, и после него сообщение без
// dead-letter обменника выбрасывается: область пропала бы с холста.
const unlimitedDeliveries = -1

// queueArgs возвращает аргументы объявления очереди.
func queueArgs(kind queueKind) amqp.Table {
	switch kind {
	case kindWork:
		return amqp.Table{
			"x-queue-type":     "quorum",
			"x-delivery-limit": unlimitedDeliveries,
		}
	case kindLog:
		return amqp.Table{"x-queue-type": "stream"}
	default:
		return nil
	}
}

// SetupTopology объявляет обменник потоков.
// Очереди объявляются лениво: тип зависит от того, как поток используется.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeStreams), // name
			"direct",                // type
			true,                    // durable
			false,                   // auto-deleted
			false,                   // internal
			false,                   // no-wait
			nil,                     // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeStreams, err)
		}
		return nil
	})
}

// declareQueue объявляет durable-очередь потока и привязывает её к обменнику.
func declareQueue(ch *amqp.Channel, name string, kind queueKind) error {
	_, err := ch.QueueDeclare(
		name,            // name
		true,            // durable
		false,           // delete when unused
		false,           // exclusive
		false,           // no-wait
		queueArgs(kind), // arguments
	)
	if err != nil {
		return fmt.Errorf("declare %s queue %s: %w", kind, name, err)
	}

	err = ch.QueueBind(
		name,                    // queue name
		name,                    // routing key
		string(ExchangeStreams), // exchange
		false,                   // no-wait
		nil,                     // arguments
	)
	if err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", name, ExchangeStreams, err)
	}
	return nil
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo(workStream, resultStream string) string {
	return fmt.Sprintf(`
  Mosaic RabbitMQ Topology:

    %s (direct)
    ├── %s [quorum, routing: %s]
    │       Consumers: workers (basic.get, manual ack)
    └── %s [stream, routing: %s]
            Consumers: collectors (x-stream-offset)
`, ExchangeStreams, workStream, workStream, resultStream, resultStream)
}
