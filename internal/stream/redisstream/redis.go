// Package redisstream — реализация stream.Broker поверх Redis Streams.
//
// Соответствие примитивов:
//   - Append      → XADD
//   - Read        → XREAD BLOCK
//   - CreateGroup → XGROUP CREATE <stream> <group> 0 MKSTREAM (BUSYGROUP игнорируется)
//   - ReadGroup   → XAUTOCLAIM (просроченные pending) + XREADGROUP >
//   - Ack         → XACK
//   - Delete      → DEL (группы удаляются вместе с ключом)
//   - Info        → XINFO STREAM + XINFO GROUPS
//
// Формат записей совместим с существующими продюсерами и консьюмерами,
// которые пишут в те же потоки (mandelbrot:work, mandelbrot:results).
package redisstream

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shaiso/Mosaic/internal/stream"
)

// DefaultURL — адрес по умолчанию для локальной разработки.
const DefaultURL = "redis://localhost:6379/0"

// Options — настройки брокера.
type Options struct {
	// URL — redis://[user:password@]host:port/db.
	URL string

	// Visibility — через сколько простоя pending-запись перехватывается
	// другим членом группы (default: stream.DefaultVisibility).
	Visibility time.Duration

	Logger *slog.Logger
}

// Broker — клиент Redis Streams.
type Broker struct {
	client     *redis.Client
	visibility time.Duration
	logger     *slog.Logger
}

var _ stream.Broker = (*Broker)(nil)

// New подключается к Redis и проверяет соединение.
func New(ctx context.Context, opts Options) (*Broker, error) {
	url := opts.URL
	if url == "" {
		url = DefaultURL
	}

	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(redisOpts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	b := NewWithClient(client, opts.Visibility, opts.Logger)
	b.logger.Info("connected to Redis", "addr", redisOpts.Addr, "db", redisOpts.DB)
	return b, nil
}

// NewWithClient оборачивает готовый клиент.
func NewWithClient(client *redis.Client, visibility time.Duration, logger *slog.Logger) *Broker {
	if visibility <= 0 {
		visibility = stream.DefaultVisibility
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Broker{
		client:     client,
		visibility: visibility,
		logger:     logger,
	}
}

// Append добавляет запись через XADD.
func (b *Broker) Append(ctx context.Context, name string, fields map[string]string) (string, error) {
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}

	id, err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: name,
		Values: values,
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", name, err)
	}
	return id, nil
}

// Read читает хвост потока через XREAD.
func (b *Broker) Read(ctx context.Context, name, after string, count int, block time.Duration) ([]stream.Entry, error) {
	if after == "" {
		after = stream.Start
	}

	res, err := b.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{name, after},
		Count:   int64(count),
		Block:   blockArg(block),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xread %s: %w", name, err)
	}

	return flatten(res), nil
}

// CreateGroup создаёт группу в начале потока.
func (b *Broker) CreateGroup(ctx context.Context, name, group string) error {
	err := b.client.XGroupCreateMkStream(ctx, name, group, stream.Start).Err()
	if err != nil {
		if isBusyGroup(err) {
			b.logger.Debug("consumer group already exists", "stream", name, "group", group)
			return nil
		}
		return fmt.Errorf("xgroup create %s/%s: %w", name, group, err)
	}
	return nil
}

// ReadGroup сначала перехватывает просроченные pending-записи (XAUTOCLAIM),
// затем читает новые (XREADGROUP >).
func (b *Broker) ReadGroup(ctx context.Context, name, group, consumer string, count int, block time.Duration) ([]stream.Entry, error) {
	if count <= 0 {
		count = 1
	}

	claimed, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   name,
		Group:    group,
		Consumer: consumer,
		MinIdle:  b.visibility,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, b.groupErr("xautoclaim", name, group, err)
	}
	if len(claimed) > 0 {
		b.logger.Debug("claimed idle pending entries",
			"stream", name,
			"group", group,
			"consumer", consumer,
			"count", len(claimed),
		)
		return toEntries(claimed), nil
	}

	res, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{name, ">"},
		Count:    int64(count),
		Block:    blockArg(block),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, b.groupErr("xreadgroup", name, group, err)
	}

	return flatten(res), nil
}

// Ack подтверждает записи через XACK.
func (b *Broker) Ack(ctx context.Context, name, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := b.client.XAck(ctx, name, group, ids...).Err(); err != nil {
		return b.groupErr("xack", name, group, err)
	}
	return nil
}

// Delete удаляет ключи потоков.
func (b *Broker) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if err := b.client.Del(ctx, names...).Err(); err != nil {
		return fmt.Errorf("del %s: %w", strings.Join(names, ","), err)
	}
	return nil
}

// Info собирает XINFO STREAM и XINFO GROUPS.
func (b *Broker) Info(ctx context.Context, name string) (*stream.Info, error) {
	info := &stream.Info{Name: name}

	si, err := b.client.XInfoStream(ctx, name).Result()
	if err != nil {
		if isNoSuchKey(err) {
			return info, nil
		}
		return nil, fmt.Errorf("xinfo stream %s: %w", name, err)
	}

	info.Exists = true
	info.Length = si.Length
	info.FirstID = si.FirstEntry.ID
	info.LastID = si.LastEntry.ID

	groups, err := b.client.XInfoGroups(ctx, name).Result()
	if err != nil {
		return nil, fmt.Errorf("xinfo groups %s: %w", name, err)
	}
	for _, g := range groups {
		info.Groups = append(info.Groups, stream.GroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
		})
	}
	return info, nil
}

// Close закрывает клиент.
func (b *Broker) Close() error {
	return b.client.Close()
}

func (b *Broker) groupErr(op, name, group string, err error) error {
	if strings.HasPrefix(err.Error(), "NOGROUP") {
		return fmt.Errorf("%s %s/%s: %w", op, name, group, stream.ErrNoGroup)
	}
	return fmt.Errorf("%s %s/%s: %w", op, name, group, err)
}

// blockArg переводит ожидание в аргумент go-redis:
// 0 там означает "ждать бесконечно", а нам нужно "не ждать".
func blockArg(block time.Duration) time.Duration {
	if block <= 0 {
		return -1
	}
	if block < time.Millisecond {
		return time.Millisecond
	}
	return block
}

func flatten(streams []redis.XStream) []stream.Entry {
	var entries []stream.Entry
	for _, s := range streams {
		entries = append(entries, toEntries(s.Messages)...)
	}
	return entries
}

func toEntries(messages []redis.XMessage) []stream.Entry {
	entries := make([]stream.Entry, 0, len(messages))
	for _, m := range messages {
		fields := make(map[string]string, len(m.Values))
		for k, v := range m.Values {
			fields[k] = fmt.Sprint(v)
		}
		entries = append(entries, stream.Entry{ID: m.ID, Fields: fields})
	}
	return entries
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNoSuchKey(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no such key")
}
