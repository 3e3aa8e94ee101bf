package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EntryRow — запись потока в БД.
type EntryRow struct {
	ID     int64
	Fields map[string]string
}

// StreamStats — сводка по потоку.
type StreamStats struct {
	Length  int64
	FirstID int64
	LastID  int64
}

// StreamRepo — журнал записей потоков.
type StreamRepo struct {
	pool *pgxpool.Pool
}

// NewStreamRepo создаёт новый StreamRepo.
func NewStreamRepo(pool *pgxpool.Pool) *StreamRepo {
	return &StreamRepo{pool: pool}
}

// Append добавляет запись и возвращает её ID.
func (r *StreamRepo) Append(ctx context.Context, stream string, fields map[string]string) (int64, error) {
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return 0, fmt.Errorf("marshal fields: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var seq int64
	err = tx.QueryRow(ctx, `
		INSERT INTO stream_heads (stream, seq)
		VALUES ($1, 1)
		ON CONFLICT (stream) DO UPDATE SET seq = stream_heads.seq + 1
		RETURNING seq
	`, stream).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next seq %s: %w", stream, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stream_entries (stream, id, fields)
		VALUES ($1, $2, $3)
	`, stream, seq, fieldsJSON)
	if err != nil {
		return 0, fmt.Errorf("insert entry %s: %w", stream, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return seq, nil
}

// After возвращает до count записей с ID больше after.
func (r *StreamRepo) After(ctx context.Context, stream string, after int64, count int) ([]EntryRow, error) {
	query := `
		SELECT id, fields
		FROM stream_entries
		WHERE stream = $1 AND id > $2
		ORDER BY id ASC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, stream, after, count)
	if err != nil {
		return nil, fmt.Errorf("list entries %s: %w", stream, err)
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
	return entries, rows.Err()
}

// Stats возвращает сводку по потоку или ErrNotFound.
func (r *StreamRepo) Stats(ctx context.Context, stream string) (*StreamStats, error) {
	query := `
		SELECT count(e.id), coalesce(min(e.id), 0), coalesce(max(e.id), 0)
		FROM stream_heads h
		LEFT JOIN stream_entries e ON e.stream = h.stream
		WHERE h.stream = $1
		GROUP BY h.stream
	`
	var stats StreamStats
	err := r.pool.QueryRow(ctx, query, stream).Scan(&stats.Length, &stats.FirstID, &stats.LastID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stream stats %s: %w", stream, err)
	}
	return &stats, nil
}

// Delete удаляет потоки вместе с записями, группами и pending-списками.
func (r *StreamRepo) Delete(ctx context.Context, streams []string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM stream_heads WHERE stream = ANY($1)`, streams)
	if err != nil {
		return fmt.Errorf("delete streams: %w", err)
	}
	return nil
}

func scanEntry(row pgx.Row) (EntryRow, error) {
	var (
		entry      EntryRow
		fieldsJSON []byte
	)
	if err := row.Scan(&entry.ID, &fieldsJSON); err != nil {
		return EntryRow{}, fmt.Errorf("scan entry: %w", err)
	}
	if err := json.Unmarshal(fieldsJSON, &entry.Fields); err != nil {
		return EntryRow{}, fmt.Errorf("%w: entry %d: %v", ErrInvalidFields, entry.ID, err)
	}
	return entry, nil
}
