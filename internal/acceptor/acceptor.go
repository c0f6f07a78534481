// Package acceptor runs one accept loop per configured listen socket,
// pushing every accepted connection onto the shared queue for the
// dispatcher to hand to a worker, per spec.md §4.4. Grounded on
// sandrolain-events-bridge/src/server/server.go's per-listener accept loop
// shape, adapted from an HTTP server's *http.Server to a raw net.Listener
// loop since FastCGI framing is handled downstream by internal/fastcgi.
package acceptor

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/tryteex/fcgiapp/internal/queue"
)

// pushRetryDelay is how long the accept loop waits before retrying Push
// against a full queue.
const pushRetryDelay = 10 * time.Millisecond

// Acceptor owns one net.Listener and feeds accepted connections into q.
type Acceptor struct {
	ln  net.Listener
	q   *queue.Queue
	log *slog.Logger
}

// Listen opens a TCP listener on addr.
func Listen(addr *net.TCPAddr, q *queue.Queue, log *slog.Logger) (*Acceptor, error) {
	ln, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Acceptor{ln: ln, q: q, log: log}, nil
}

// Run accepts connections until ctx is canceled or the listener is closed.
// A full queue never loses a connection: the acceptor retries the push on
// the same connection after a short delay until it succeeds or ctx is
// canceled (spec.md §4.3/§4.4 — the queue backs up, it doesn't drop).
func (a *Acceptor) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = a.ln.Close()
	}()
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			a.log.Warn("acceptor: accept failed", "error", err)
			continue
		}
		a.push(ctx, conn)
	}
}

// push retries conn onto the queue until it fits or ctx is canceled, in
// which case the connection is closed since no worker will ever drain it.
func (a *Acceptor) push(ctx context.Context, conn net.Conn) {
	for {
		if _, ok := a.q.Push(conn); ok {
			return
		}
		a.log.Warn("acceptor: queue full, retrying", "remote", conn.RemoteAddr())
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-time.After(pushRetryDelay):
		}
	}
}

// Addr reports the bound address, used for logging at startup.
func (a *Acceptor) Addr() net.Addr {
	return a.ln.Addr()
}

// Close stops accepting new connections.
func (a *Acceptor) Close() error {
	return a.ln.Close()
}
