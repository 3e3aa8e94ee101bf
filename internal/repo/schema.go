package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema — таблицы журнала потоков.
//
// stream_heads держит счётчик ID: строка блокируется на время вставки,
// поэтому записи одного потока коммитятся строго в порядке ID.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS stream_heads (
		stream     TEXT PRIMARY KEY,
		seq        BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS stream_entries (
		stream     TEXT NOT NULL REFERENCES stream_heads(stream) ON DELETE CASCADE,
		id         BIGINT NOT NULL,
		fields     JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (stream, id)
	)`,
	`CREATE TABLE IF NOT EXISTS stream_groups (
		stream     TEXT NOT NULL REFERENCES stream_heads(stream) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		last_id    BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (stream, name)
	)`,
	`CREATE TABLE IF NOT EXISTS stream_pending (
		stream       TEXT NOT NULL,
		group_name   TEXT NOT NULL,
		entry_id     BIGINT NOT NULL,
		consumer     TEXT NOT NULL,
		delivered_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		deliveries   INT NOT NULL DEFAULT 1,
		PRIMARY KEY (stream, group_name, entry_id),
		FOREIGN KEY (stream, group_name) REFERENCES stream_groups(stream, name) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS stream_pending_delivered_at_idx
		ON stream_pending (stream, group_name, delivered_at)`,
}

// EnsureSchema создаёт таблицы, если их ещё нет.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
