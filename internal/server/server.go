// Package server wires the independently-built pieces (config, DB, the
// shared translation/template stores, the controller registry, the worker
// pool, the acceptors, the dispatcher and the control listener) into the
// running process, matching the shape original_source's sys/go/go.rs's
// Go::open lays out: connect, load shared state once, spawn listeners,
// spawn workers, run until stopped.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tryteex/fcgiapp/internal/acceptor"
	"github.com/tryteex/fcgiapp/internal/config"
	"github.com/tryteex/fcgiapp/internal/control"
	"github.com/tryteex/fcgiapp/internal/controllers"
	"github.com/tryteex/fcgiapp/internal/dbconn"
	"github.com/tryteex/fcgiapp/internal/dispatcher"
	"github.com/tryteex/fcgiapp/internal/cache"
	"github.com/tryteex/fcgiapp/internal/pipeline"
	"github.com/tryteex/fcgiapp/internal/queue"
	"github.com/tryteex/fcgiapp/internal/registry"
	"github.com/tryteex/fcgiapp/internal/startup"
	"github.com/tryteex/fcgiapp/internal/worker"
)

// Server is one running instance: every goroutine it owns is reachable
// from Run and shut down when ctx is canceled or Stop is called.
type Server struct {
	cfg *config.Config
	log *slog.Logger

	acceptors  []*acceptor.Acceptor
	dispatcher *dispatcher.Dispatcher
	control    *control.Listener

	cancel context.CancelFunc
}

// New connects the first worker's DB handle, loads the shared language and
// template stores (spec.md §4.2), then builds the full worker pool, the
// acceptors for every configured socket, and the control listener.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Server, error) {
	reg := registry.New()
	controllers.Register(reg)
	sharedCache := cache.New()

	bootstrapDB, err := dbconn.Connect(ctx, cfg.DSN(), cfg.TimeZone, log)
	if err != nil {
		return nil, fmt.Errorf("server: connect bootstrap db: %w", err)
	}
	stores, err := startup.Load(ctx, bootstrapDB, cfg.Dir)
	if err != nil {
		_ = bootstrapDB.Close(ctx)
		return nil, fmt.Errorf("server: load shared stores: %w", err)
	}

	basePipeline := &pipeline.Pipeline{
		Cache:        sharedCache,
		Translations: stores.Translations,
		Templates:    stores.Templates,
		Registry:     reg,
		Salt:         cfg.Salt,
		DefaultDir:   cfg.Dir,
		Log:          log,
	}

	workers := make([]*worker.Worker, 0, cfg.MaxConnection)
	workers = append(workers, worker.New(0, bootstrapDB, basePipeline, int(cfg.MaxConnection), log))
	for i := 1; i < int(cfg.MaxConnection); i++ {
		db, err := dbconn.Connect(ctx, cfg.DSN(), cfg.TimeZone, log)
		if err != nil {
			closeAll(ctx, workers)
			return nil, fmt.Errorf("server: connect worker %d db: %w", i, err)
		}
		workers = append(workers, worker.New(i, db, basePipeline, int(cfg.MaxConnection), log))
	}

	q := queue.New(queue.DefaultCapacity)
	disp := dispatcher.New(q, workers, log)

	var accs []*acceptor.Acceptor
	for _, addr := range cfg.Sockets {
		a, err := acceptor.Listen(addr, q, log)
		if err != nil {
			closeAll(ctx, workers)
			return nil, fmt.Errorf("server: listen %s: %w", addr, err)
		}
		accs = append(accs, a)
	}

	s := &Server{cfg: cfg, log: log, acceptors: accs, dispatcher: disp}
	ctrl, err := control.Listen(cfg.Control, func() { s.Stop() })
	if err != nil {
		closeAll(ctx, workers)
		for _, a := range accs {
			_ = a.Close()
		}
		return nil, fmt.Errorf("server: listen control: %w", err)
	}
	s.control = ctrl
	return s, nil
}

// Run starts every acceptor, the dispatcher, and the control listener, and
// blocks until ctx is canceled or Stop is invoked (directly or via the
// control channel).
func (s *Server) Run(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	var wg sync.WaitGroup
	for _, a := range s.acceptors {
		wg.Add(1)
		go func(a *acceptor.Acceptor) {
			defer wg.Done()
			s.log.Info("server: listening", "addr", a.Addr())
			a.Run(runCtx)
		}(a)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.dispatcher.Run(runCtx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.control.Run(runCtx)
	}()

	<-runCtx.Done()
	for _, a := range s.acceptors {
		_ = a.Close()
	}
	_ = s.control.Close()
	wg.Wait()
	s.dispatcher.Close(context.Background())
}

// Stop triggers a graceful shutdown, matching Go::stop in go.rs.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func closeAll(ctx context.Context, workers []*worker.Worker) {
	for _, w := range workers {
		_ = w.Close(ctx)
	}
}
