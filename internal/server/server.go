package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snapsync/snapsync/internal/core/interp"
	"github.com/snapsync/snapsync/internal/core/observability/log"
)

// Server is the snapshot ingest host: producers stream entity snapshots
// in over WebSocket, consumers read interpolated states back out over
// HTTP. The engine itself stays transport-agnostic; this package owns the
// JSON wire.
type Server struct {
	cfg    Config
	logger log.Log
	engine *interp.ShardedEngine

	httpServer *http.Server

	// Session management
	sessions     sync.Map // map[string]*session
	sessionCount int64    // atomic

	running atomic.Bool
	closed  atomic.Bool
}

// Config holds server configuration.
type Config struct {
	ListenAddr     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     "0.0.0.0:8080",
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxMessageSize: 64 * 1024,
	}
}

// New creates a server around an engine. A nil engine is a configuration
// error; a nil logger disables logging.
func New(cfg Config, engine *interp.ShardedEngine, logger log.Log) (*Server, error) {
	if engine == nil {
		return nil, ErrInvalidConfig
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultConfig().ListenAddr
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultConfig().MaxMessageSize
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		engine: engine,
	}, nil
}

// Run serves until the context is canceled or the listener fails, then
// shuts down gracefully and closes every live session.
func (s *Server) Run(ctx context.Context) error {
	if s.closed.Load() {
		return ErrServerClosed
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrServerAlreadyRunning
	}
	defer s.running.Store(false)

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	if s.logger != nil {
		s.logger.Info("server listening", log.String("addr", s.cfg.ListenAddr))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.closed.Store(true)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := s.httpServer.Shutdown(shutdownCtx)

		// Shutdown does not touch hijacked connections; close the
		// WebSocket sessions ourselves.
		s.sessions.Range(func(_, value any) bool {
			value.(*session).close()
			return true
		})
		return err
	})

	return g.Wait()
}

// SessionCount reports the number of live WebSocket sessions.
func (s *Server) SessionCount() int64 {
	return atomic.LoadInt64(&s.sessionCount)
}
