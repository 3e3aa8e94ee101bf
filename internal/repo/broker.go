package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shaiso/Mosaic/internal/stream"
)

// DefaultPollInterval — пауза между пустыми опросами таблиц.
const DefaultPollInterval = 200 * time.Millisecond

// BrokerOptions — настройки брокера на PostgreSQL.
type BrokerOptions struct {
	// Visibility — окно видимости pending-записей (default: stream.DefaultVisibility).
	Visibility time.Duration

	// PollInterval — пауза между пустыми опросами (default: DefaultPollInterval).
	PollInterval time.Duration

	Logger *slog.Logger
}

// Broker реализует stream.Broker поверх таблиц журнала.
// Ожидание новых записей — опрос с паузой PollInterval.
type Broker struct {
	pool       *pgxpool.Pool
	streams    *StreamRepo
	groups     *GroupRepo
	visibility time.Duration
	interval   time.Duration
	logger     *slog.Logger
}

var _ stream.Broker = (*Broker)(nil)

// NewBroker создаёт брокер. Схема должна быть создана через EnsureSchema.
func NewBroker(pool *pgxpool.Pool, opts BrokerOptions) *Broker {
	visibility := opts.Visibility
	if visibility <= 0 {
		visibility = stream.DefaultVisibility
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Broker{
		pool:       pool,
		streams:    NewStreamRepo(pool),
		groups:     NewGroupRepo(pool),
		visibility: visibility,
		interval:   poll,
		logger:     logger,
	}
}

// Append добавляет запись.
func (b *Broker) Append(ctx context.Context, name string, fields map[string]string) (string, error) {
	id, err := b.streams.Append(ctx, name, fields)
	if err != nil {
		return "", err
	}
	return formatID(id), nil
}

// Read читает записи после курсора.
func (b *Broker) Read(ctx context.Context, name, after string, count int, block time.Duration) ([]stream.Entry, error) {
	afterID, err := parseID(after)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = 100
	}

	return b.poll(ctx, block, func() ([]EntryRow, error) {
		return b.streams.After(ctx, name, afterID, count)
	})
}

// CreateGroup создаёт группу.
func (b *Broker) CreateGroup(ctx context.Context, name, group string) error {
	return b.groups.Create(ctx, name, group)
}

// ReadGroup выдаёт записи члену группы.
func (b *Broker) ReadGroup(ctx context.Context, name, group, consumer string, count int, block time.Duration) ([]stream.Entry, error) {
	if count <= 0 {
		count = 1
	}

	entries, err := b.poll(ctx, block, func() ([]EntryRow, error) {
		return b.groups.Claim(ctx, name, group, consumer, count, b.visibility)
	})
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", stream.ErrNoGroup, name, group)
	}
	return entries, err
}

// Ack подтверждает записи.
func (b *Broker) Ack(ctx context.Context, name, group string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	seqs := make([]int64, 0, len(ids))
	for _, id := range ids {
		seq, err := parseID(id)
		if err != nil {
			return err
		}
		seqs = append(seqs, seq)
	}
	return b.groups.Ack(ctx, name, group, seqs)
}

// Delete удаляет потоки.
func (b *Broker) Delete(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	return b.streams.Delete(ctx, names)
}

// Info собирает сводку по потоку и его группам.
func (b *Broker) Info(ctx context.Context, name string) (*stream.Info, error) {
	info := &stream.Info{Name: name}

	stats, err := b.streams.Stats(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return info, nil
	}
	if err != nil {
		return nil, err
	}

	info.Exists = true
	info.Length = stats.Length
	if stats.Length > 0 {
		info.FirstID = formatID(stats.FirstID)
		info.LastID = formatID(stats.LastID)
	}

	groups, err := b.groups.List(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		info.Groups = append(info.Groups, stream.GroupInfo{
			Name:            g.Name,
			Consumers:       g.Consumers,
			Pending:         g.Pending,
			LastDeliveredID: formatID(g.LastID),
		})
	}
	return info, nil
}

// Close закрывает пул.
func (b *Broker) Close() error {
	b.pool.Close()
	return nil
}

// poll повторяет fetch, пока он пуст и не истекло block.
func (b *Broker) poll(ctx context.Context, block time.Duration, fetch func() ([]EntryRow, error)) ([]stream.Entry, error) {
	deadline := time.Now().Add(block)
	for {
		rows, err := fetch()
		if err != nil {
			return nil, err
		}
		if len(rows) > 0 {
			return toEntries(rows), nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, nil
		}

		timer := time.NewTimer(min(b.interval, remaining))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func toEntries(rows []EntryRow) []stream.Entry {
	entries := make([]stream.Entry, len(rows))
	for i, r := range rows {
		entries[i] = stream.Entry{ID: formatID(r.ID), Fields: r.Fields}
	}
	return entries
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(id string) (int64, error) {
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
