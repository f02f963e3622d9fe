package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/peerlink/internal/auth"
	"github.com/rickgao/peerlink/internal/config"
	"github.com/rickgao/peerlink/internal/httpapi"
	"github.com/rickgao/peerlink/internal/pairing"
	"github.com/rickgao/peerlink/internal/scoring"
	"github.com/rickgao/peerlink/internal/session"
	"github.com/rickgao/peerlink/internal/store"
)

// App is an assembled broker.
type App struct {
	cfg    *config.BrokerConfig
	logger *slog.Logger

	Store       store.Store
	Coordinator *pairing.Coordinator
	Binder      *session.Binder
	Monitor     *session.Monitor
	Recorder    *scoring.Recorder
	Server      *http.Server
}

// New builds every component. The caller owns the returned App and must
// call Run, or Close if Run is never reached.
func New(ctx context.Context, cfg *config.BrokerConfig, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	tokens, err := auth.NewTokens(auth.Config{
		Secret:         cfg.Auth.JWTSecret,
		PrivateKeyPath: cfg.Auth.PrivateKeyPath,
		TTL:            cfg.Auth.TokenTTL,
		Issuer:         cfg.Auth.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}

	st, err := OpenStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	coord := pairing.NewCoordinator(pairing.NewQueue(), pairing.NewTable(),
		pairing.WithLogger(logger.With("component", "pairing")),
	)

	recorder := scoring.NewRecorder(scoring.Config{
		WinPoints:  cfg.Scoring.WinPoints,
		BufferSize: cfg.Scoring.BufferSize,
		Timeout:    cfg.Scoring.Timeout,
	}, st, logger.With("component", "scoring"))

	binder := session.NewBinder(coord, recorder, logger.With("component", "session"))

	monitor := session.NewMonitor(session.MonitorConfig{
		SweepInterval: cfg.Liveness.SweepInterval,
	}, binder, logger.With("component", "liveness"))

	sessionCfg := session.DefaultConfig()
	sessionCfg.WriteTimeout = cfg.Session.WriteTimeout
	sessionCfg.ReadLimit = cfg.Session.ReadLimit

	api := httpapi.New(httpapi.Config{
		WSPath:           cfg.Server.WSPath,
		APIPrefix:        cfg.Server.APIPrefix,
		RequireKnownTask: cfg.Server.RequireKnownTask,
		CheckOrigin:      cfg.Session.CheckOrigin,
		Session:          sessionCfg,
	}, httpapi.Deps{
		Store:   st,
		Tokens:  tokens,
		Binder:  binder,
		Pairing: coord,
	}, logger.With("component", "http"))

	return &App{
		cfg:         cfg,
		logger:      logger,
		Store:       st,
		Coordinator: coord,
		Binder:      binder,
		Monitor:     monitor,
		Recorder:    recorder,
		Server: &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		},
	}, nil
}

// Run listens on the configured address and serves until ctx ends.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.Addr)
	if err != nil {
		a.Close()
		return fmt.Errorf("listen %s: %w", a.cfg.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the broker on ln until ctx ends or the server fails, then
// shuts everything down.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	// The recorder outlives ctx so Stop can drain queued outcomes.
	if err := a.Recorder.Start(context.WithoutCancel(ctx)); err != nil {
		a.Close()
		return err
	}
	if err := a.Monitor.Start(ctx); err != nil {
		a.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("broker listening",
			"instance_id", a.cfg.Instance.ID,
			"addr", ln.Addr().String(),
			"storage", a.cfg.Storage.Backend,
		)
		if err := a.Server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown stops intake first, then drains downstream consumers.
func (a *App) shutdown() error {
	a.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := a.Binder.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("session shutdown: %w", err))
	}
	if err := a.Monitor.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("liveness stop: %w", err))
	}
	if err := a.Recorder.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scoring stop: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}

	a.logger.Info("broker stopped")
	return errors.Join(errs...)
}

// Close releases the store without running the broker.
func (a *App) Close() error {
	return a.Store.Close()
}
