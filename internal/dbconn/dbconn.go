// Package dbconn is the per-worker Postgres connection facade. Each worker
// owns exactly one *pgx.Conn (spec.md §5: no pooling, no sharing across
// workers), grounded on
// sandrolain-events-bridge/src/connectors/pgsql/connect/connect.go's use of
// the pgx driver and fmt.Errorf("...: %w", err) wrapping, adapted from a
// pooled pgxpool.Pool down to a single pgx.Conn per the spec's resource model.
package dbconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
)

// DB wraps one live Postgres connection owned exclusively by one worker.
type DB struct {
	conn *pgx.Conn
	log  *slog.Logger
}

// Connect opens the connection and, if timeZone is non-empty, applies
// original_source's startup `SET timezone TO ...` step (src/app/db.rs),
// returning a wrapped connect error (log error code 350/351 territory).
func Connect(ctx context.Context, dsn, timeZone string, log *slog.Logger) (*DB, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbconn: connect: %w", err)
	}
	if timeZone != "" {
		if _, err := conn.Exec(ctx, fmt.Sprintf("SET timezone TO %s", Escape(timeZone))); err != nil {
			_ = conn.Close(ctx)
			return nil, fmt.Errorf("dbconn: set timezone: %w", err)
		}
	}
	return &DB{conn: conn, log: log}, nil
}

// Close releases the underlying connection.
func (d *DB) Close(ctx context.Context) error {
	return d.conn.Close(ctx)
}

// Query runs sql and returns the result rows. Per spec.md §7, a failing
// query never aborts the request: the error is logged and an empty result
// is returned, exactly as original_source's callers treat `res.len() == 0`
// as "nothing found" rather than distinguishing it from a query error.
func (d *DB) Query(ctx context.Context, sql string) [][]any {
	rows, err := d.conn.Query(ctx, sql)
	if err != nil {
		d.log.Error("db query failed", "error", err, "sql", sql)
		return nil
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			d.log.Error("db row decode failed", "error", err, "sql", sql)
			return out
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		d.log.Error("db row iteration failed", "error", err, "sql", sql)
	}
	return out
}

// Exec runs a statement with no result rows expected (session save, access
// cache warm, etc.), also swallowing errors into the log per spec.md §7.
func (d *DB) Exec(ctx context.Context, sql string) {
	if _, err := d.conn.Exec(ctx, sql); err != nil {
		d.log.Error("db exec failed", "error", err, "sql", sql)
	}
}

// Escape quotes a string literal for inline SQL construction, matching
// original_source's db.escape(text) used throughout app/*.rs to build raw
// SQL rather than parameterized queries (this codebase keeps that idiom for
// the hand-built CTEs in internal/session and internal/pipeline).
func Escape(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
