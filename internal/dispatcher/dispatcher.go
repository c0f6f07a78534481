// Package dispatcher drains internal/queue and hands each connection to an
// idle worker, enforcing spec.md §4.4's in_flight_count <= max_workers
// invariant via a fixed-capacity channel of idle workers: there are never
// more in-flight Serve calls than there are workers to run them, because a
// connection cannot be dispatched until a worker token is available.
package dispatcher

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/tryteex/fcgiapp/internal/queue"
	"github.com/tryteex/fcgiapp/internal/worker"
)

// pollInterval bounds how long the dispatcher sleeps between empty-queue
// checks; short enough that accepted connections don't sit idle, long
// enough not to spin a core.
const pollInterval = 2 * time.Millisecond

// Dispatcher pairs a bounded queue of accepted connections with a fixed
// pool of workers.
type Dispatcher struct {
	q       *queue.Queue
	workers []*worker.Worker
	idle    chan *worker.Worker
	log     *slog.Logger
}

// New builds a dispatcher over workers, all of which start idle.
func New(q *queue.Queue, workers []*worker.Worker, log *slog.Logger) *Dispatcher {
	idle := make(chan *worker.Worker, len(workers))
	for _, w := range workers {
		idle <- w
	}
	return &Dispatcher{q: q, workers: workers, idle: idle, log: log}
}

// Run dispatches connections until ctx is canceled.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		conn, ok := d.q.Take()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollInterval):
			}
			continue
		}

		var w *worker.Worker
		select {
		case w = <-d.idle:
		case <-ctx.Done():
			_ = conn.Close()
			return
		}

		go func(w *worker.Worker, conn net.Conn) {
			defer func() { d.idle <- w }()
			w.Serve(ctx, conn)
		}(w, conn)
	}
}

// Close releases every worker's DB connection, used during graceful
// shutdown once Run has returned and no Serve call can still be in flight.
func (d *Dispatcher) Close(ctx context.Context) {
	for _, w := range d.workers {
		if err := w.Close(ctx); err != nil {
			d.log.Warn("dispatcher: closing worker db connection", "worker", w.ID, "error", err)
		}
	}
}
