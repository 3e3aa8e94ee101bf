package repo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GroupRow — сводка по consumer group.
type GroupRow struct {
	Name      string
	LastID    int64
	Pending   int64
	Consumers int64
}

// GroupRepo — consumer groups и их pending-списки.
type GroupRepo struct {
	pool *pgxpool.Pool
}

// NewGroupRepo создаёт новый GroupRepo.
func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

// Create создаёт группу (и поток, если его нет). Существующая группа — не ошибка.
func (r *GroupRepo) Create(ctx context.Context, stream, group string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO stream_heads (stream) VALUES ($1)
		ON CONFLICT (stream) DO NOTHING
	`, stream)
	if err != nil {
		return fmt.Errorf("insert stream head %s: %w", stream, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stream_groups (stream, name) VALUES ($1, $2)
		ON CONFLICT (stream, name) DO NOTHING
	`, stream, group)
	if err != nil {
		return fmt.Errorf("insert group %s/%s: %w", stream, group, err)
	}

	return tx.Commit(ctx)
}

// Claim выдаёт до count записей члену группы.
//
// Сначала перехватываются pending-записи старше visibility, затем
// выдаются новые после last_id. Строка группы блокируется на время
// транзакции, так что одна запись не уйдёт двум членам сразу.
// Если группы нет — ErrNotFound.
func (r *GroupRepo) Claim(ctx context.Context, stream, group, consumer string, count int, visibility time.Duration) ([]EntryRow, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var lastID int64
	err = tx.QueryRow(ctx, `
		SELECT last_id FROM stream_groups
		WHERE stream = $1 AND name = $2
		FOR UPDATE
	`, stream, group).Scan(&lastID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock group %s/%s: %w", stream, group, err)
	}

	entries, err := r.reclaim(ctx, tx, stream, group, consumer, count, visibility)
	if err != nil {
		return nil, err
	}

	if len(entries) == 0 {
		entries, err = r.deliver(ctx, tx, stream, group, consumer, lastID, count)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return entries, nil
}

func (r *GroupRepo) reclaim(ctx context.Context, tx pgx.Tx, stream, group, consumer string, count int, visibility time.Duration) ([]EntryRow, error) {
	query := `
		UPDATE stream_pending p
		SET consumer = $3, delivered_at = now(), deliveries = p.deliveries + 1
		FROM stream_entries e
		WHERE p.stream = $1 AND p.group_name = $2
		  AND e.stream = p.stream AND e.id = p.entry_id
		  AND p.entry_id IN (
		      SELECT entry_id FROM stream_pending
		      WHERE stream = $1 AND group_name = $2
		        AND delivered_at <= now() - $5::float8 * interval '1 millisecond'
		      ORDER BY entry_id
		      LIMIT $4
		      FOR UPDATE SKIP LOCKED
		  )
		RETURNING p.entry_id, e.fields
	`
	rows, err := tx.Query(ctx, query, stream, group, consumer, count, float64(visibility.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("reclaim pending %s/%s: %w", stream, group, err)
	}
	defer rows.Close()

	var entries []EntryRow
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	slices.SortFunc(entries, func(a, b EntryRow) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return entries, nil
}

func (r *GroupRepo) deliver(ctx context.Context, tx pgx.Tx, stream, group, consumer string, lastID int64, count int) ([]EntryRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, fields
		FROM stream_entries
		WHERE stream = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`, stream, lastID, count)
	if err != nil {
		return nil, fmt.Errorf("select new entries %s: %w", stream, err)
	}

	var entries []EntryRow
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stream_pending (stream, group_name, entry_id, consumer)
		SELECT $1, $2, unnest($3::bigint[]), $4
	`, stream, group, ids, consumer)
	if err != nil {
		return nil, fmt.Errorf("insert pending %s/%s: %w", stream, group, err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE stream_groups SET last_id = $3
		WHERE stream = $1 AND name = $2
	`, stream, group, ids[len(ids)-1])
	if err != nil {
		return nil, fmt.Errorf("advance group %s/%s: %w", stream, group, err)
	}

	return entries, nil
}

// Ack удаляет записи из pending-списка группы.
func (r *GroupRepo) Ack(ctx context.Context, stream, group string, ids []int64) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM stream_pending
		WHERE stream = $1 AND group_name = $2 AND entry_id = ANY($3)
	`, stream, group, ids)
	if err != nil {
		return fmt.Errorf("ack %s/%s: %w", stream, group, err)
	}
	return nil
}

// List возвращает группы потока.
// Consumers — число членов, у которых сейчас есть pending-записи.
func (r *GroupRepo) List(ctx context.Context, stream string) ([]GroupRow, error) {
	query := `
		SELECT g.name, g.last_id, count(p.entry_id), count(DISTINCT p.consumer)
		FROM stream_groups g
		LEFT JOIN stream_pending p ON p.stream = g.stream AND p.group_name = g.name
		WHERE g.stream = $1
		GROUP BY g.name, g.last_id
		ORDER BY g.name
	`
	rows, err := r.pool.Query(ctx, query, stream)
	if err != nil {
		return nil, fmt.Errorf("list groups %s: %w", stream, err)
	}
	defer rows.Close()

	var groups []GroupRow
	for rows.Next() {
		var g GroupRow
		if err := rows.Scan(&g.Name, &g.LastID, &g.Pending, &g.Consumers); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
