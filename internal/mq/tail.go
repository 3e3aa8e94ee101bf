package mq

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Mosaic/internal/stream"
)

const (
	// minTailWindow — минимальное ожидание первой доставки:
	// basic.consume асинхронен, мгновенной проверки у stream queue нет.
	minTailWindow = 50 * time.Millisecond

	// tailLinger — сколько ждать добора пачки после первой доставки.
	tailLinger = 20 * time.Millisecond
)

// tail читает stream queue начиная с offset курсора.
//
// ID записи = offset + 1, поэтому курсор stream.Start ("0") читает с начала.
func tail(ctx context.Context, conn *Connection, queue, after string, count int, block time.Duration) ([]stream.Entry, error) {
	from, err := parseOffsetID(after)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 10
	}

	ch, err := conn.OpenChannel()
	if err != nil {
		return nil, err
	}
	defer ch.Close()

	if err := ch.Qos(count, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	args := amqp.Table{"x-stream-offset": from}
	deliveries, err := ch.Consume(
		queue,                    // queue
		"tail-"+uuid.NewString(), // consumer tag
		false,                    // auto-ack: stream queue требует ручной ack
		false,                    // exclusive
		false,                    // no-local
		false,                    // no-wait
		args,                     // args
	)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("consume %s: %w", queue, err)
	}

	window := max(block, minTailWindow)
	timer := time.NewTimer(window)
	defer timer.Stop()

	var linger <-chan time.Time
	var entries []stream.Entry
	for len(entries) < count {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return entries, nil
		case <-linger:
			return entries, nil
		case d, ok := <-deliveries:
			if !ok {
				return entries, nil
			}
			_ = d.Ack(false)

			off, ok := deliveryOffset(d)
			if !ok || off < from {
				// Брокер отдаёт чанк целиком, начало может быть до курсора.
				continue
			}

			fields, err := decodeFields(d.Body)
			if err != nil {
				fields = map[string]string{}
			}
			entries = append(entries, stream.Entry{ID: formatOffsetID(off), Fields: fields})

			if linger == nil {
				linger = time.After(tailLinger)
			}
		}
	}
	return entries, nil
}

// deliveryOffset достаёт offset сообщения из заголовка x-stream-offset.
func deliveryOffset(d amqp.Delivery) (int64, bool) {
	switch v := d.Headers["x-stream-offset"].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case uint64:
		return int64(v), true
	default:
		return 0, false
	}
}

func formatOffsetID(offset int64) string {
	return strconv.FormatInt(offset+1, 10)
}

// parseOffsetID переводит курсор в первый offset, который нужно прочитать.
func parseOffsetID(id string) (int64, error) {
	if id == "" || id == stream.Start {
		return 0, nil
	}
	head, _, _ := strings.Cut(id, "-")
	n, err := strconv.ParseInt(head, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", stream.ErrInvalidID, id)
	}
	return n, nil
}
