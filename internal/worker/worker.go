// Package worker owns one Postgres connection and serves FastCGI
// connections handed to it by the dispatcher, grounded on
// original_source/src/sys/go/worker.rs's Worker::run: connect, set
// timezone, lazily join the shared i18n/template load, then loop serving
// accepted sockets until told to stop.
package worker

import (
	"context"
	"log/slog"
	"net"

	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/fastcgi"
	"github.com/tryteex/fcgiapp/internal/pipeline"
)

// Worker serves one connection at a time off its own DB connection and
// pipeline, matching the original's one-connection-per-DB-handle model
// (spec.md §5: no pooling, no sharing across workers).
type Worker struct {
	ID       int
	Pipeline *pipeline.Pipeline
	MaxConns int
	Log      *slog.Logger
}

// New builds a worker around an already-opened DB connection and the
// shared, already-loaded stores.
func New(id int, db *dbconn.DB, p *pipeline.Pipeline, maxConns int, log *slog.Logger) *Worker {
	pCopy := *p
	pCopy.DB = db
	return &Worker{ID: id, Pipeline: &pCopy, MaxConns: maxConns, Log: log}
}

// Serve drives one accepted connection to completion. Any protocol-level
// error is logged and the connection closed; a single bad client never
// brings the worker down (spec.md §7).
func (w *Worker) Serve(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	fc := fastcgi.NewConn(conn, w.MaxConns)
	if err := fc.Serve(ctx, w.Pipeline.Handle); err != nil {
		w.Log.Warn("worker: connection ended", "worker", w.ID, "error", err)
	}
}

// Close releases the worker's DB connection (spec.md §4.5 shutdown path).
func (w *Worker) Close(ctx context.Context) error {
	return w.Pipeline.DB.Close(ctx)
}
