package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	app "github.com/lumenlabs/chainflow"
	"github.com/lumenlabs/chainflow/internal/config"
	"github.com/lumenlabs/chainflow/internal/engine"
	"github.com/lumenlabs/chainflow/internal/probe"
	"github.com/lumenlabs/chainflow/internal/server"
	"github.com/lumenlabs/chainflow/internal/store"
	"github.com/lumenlabs/chainflow/pkg/log"
)

type chainflow struct {
	cfg         *config.Config
	hub         *engine.Hub
	tracker     *engine.Tracker
	supervisor  *engine.Supervisor
	snapshotter store.Snapshotter
	apiServer   *server.Server
	httpServer  *http.Server
	cancelRun   context.CancelFunc
	quit        chan os.Signal
}

var (
	ErrCreateSnapshotter = errors.New("failed to create snapshotter")
	ErrRestoreFlows      = errors.New("failed to restore flows")
)

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

func main() {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", log.Error(err))
		os.Exit(1)
	}

	s := &chainflow{
		cfg:  cfg,
		quit: make(chan os.Signal, 1),
	}
	s.setupLogging()

	if err := s.run(); err != nil {
		slog.Error("Failed to start application", log.Error(err))
		os.Exit(1)
	}
}

func (s *chainflow) run() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelRun = cancel
	defer cancel()

	if err := s.initializeTracker(ctx); err != nil {
		return err
	}
	s.startSupervisor(ctx)
	s.startServer()

	signal.Notify(s.quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(s.quit)
	<-s.quit

	s.shutdown()
	return nil
}

func (s *chainflow) setupLogging() {
	level, ok := logLevels[s.cfg.LogLevel]
	if !ok {
		level = slog.LevelInfo
	}

	env := os.Getenv("ENV")
	logger := log.NewWithLevel(app.Name, env, app.Version, level)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)

	slog.Info("Chainflow starting",
		slog.String("log_level", s.cfg.LogLevel))

	slog.Info("Configuration loaded",
		slog.String("api_host", s.cfg.APIHost),
		slog.Int("api_port", s.cfg.APIPort),
		slog.Duration("tick_interval", s.cfg.TickInterval),
		slog.Duration("staleness_window", s.cfg.StalenessWindow),
		slog.Int("workers", s.cfg.Workers),
		slog.Int("chains", len(s.cfg.Chains)),
		slog.String("snapshot_backend", s.cfg.Snapshot.Backend))
}

func (s *chainflow) initializeTracker(ctx context.Context) error {
	if err := s.initializeSnapshotter(ctx); err != nil {
		return err
	}

	s.hub = engine.NewHub()
	opts := []engine.TrackerOption{}
	if s.snapshotter != nil {
		opts = append(opts, engine.WithSnapshotter(s.snapshotter))
	}
	s.tracker = engine.NewTracker(
		s.hub, s.cfg.DefaultToleranceBps, opts...,
	)

	if err := s.tracker.Restore(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrRestoreFlows, err)
	}
	return nil
}

func (s *chainflow) initializeSnapshotter(ctx context.Context) error {
	switch s.cfg.Snapshot.Backend {
	case config.SnapshotBackendNone:
		return nil
	case config.SnapshotBackendRedis:
		s.snapshotter = store.NewRedisSnapshotter(
			s.cfg.Snapshot.RedisAddr,
			s.cfg.Snapshot.RedisPassword,
			s.cfg.Snapshot.RedisDB,
			s.cfg.Snapshot.RedisPrefix,
		)
		return nil
	case config.SnapshotBackendBlob:
		snap, err := store.NewBlobSnapshotter(
			ctx, s.cfg.Snapshot.BlobBucketURL, s.cfg.Snapshot.BlobPrefix,
		)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCreateSnapshotter, err)
		}
		s.snapshotter = snap
		return nil
	default:
		return fmt.Errorf("%w: unknown backend %q",
			ErrCreateSnapshotter, s.cfg.Snapshot.Backend)
	}
}

func (s *chainflow) startSupervisor(ctx context.Context) {
	registry := probe.NewRegistry()
	for chain, cc := range s.cfg.Chains {
		registry.Register(chain, probe.NewHTTPProbe(
			cc.NodeURL, cc.IndexerURL, s.cfg.ProbeTimeout,
		))
	}

	s.supervisor = engine.NewSupervisor(s.tracker, registry,
		engine.SupervisorConfig{
			TickInterval:    s.cfg.TickInterval,
			StalenessWindow: s.cfg.StalenessWindow,
			Workers:         s.cfg.Workers,
		})
	s.supervisor.Start(ctx)
}

func (s *chainflow) startServer() {
	s.apiServer = server.NewServer(s.tracker, s.hub)
	mux := s.apiServer.SetupRoutes()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.APIHost, s.cfg.APIPort),
		Handler: mux,
	}

	go func() {
		slog.Info("HTTP server starting",
			slog.String("addr", s.httpServer.Addr))
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", log.Error(err))
		}
	}()
}

func (s *chainflow) shutdown() {
	slog.Info("Shutting down")

	ctx, cancel := context.WithTimeout(
		context.Background(), s.cfg.ShutdownTimeout,
	)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("Shutdown failed", log.Error(err))
	}

	s.apiServer.CloseWebSockets()
	s.supervisor.Stop()
	s.cancelRun()

	if s.snapshotter != nil {
		if err := s.snapshotter.Close(); err != nil {
			slog.Error("Snapshotter close failed", log.Error(err))
		}
	}

	slog.Info("Shutdown complete")
}
