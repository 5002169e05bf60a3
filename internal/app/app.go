package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/navrelay/internal/http"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clock    clock.Clock
	Metrics  *observability.Metrics
	Clients  Clients
	Services Services
	Server   *http.Server

	shutdownOtel func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	clk := clock.New()
	metrics := observability.New(clk)
	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = shutdownOtel(ctx)
		log.Sync()
		return nil, err
	}

	serviceset := wireServices(log, clk, metrics, cfg, clients)
	handlerset := wireHandlers(log, clk, metrics, cfg, serviceset)
	server := wireServer(log, metrics, cfg, handlerset)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clock:        clk,
		Metrics:      metrics,
		Clients:      clients,
		Services:     serviceset,
		Server:       server,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Run serves HTTP and runs the background loops until ctx is cancelled or one
// of them fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}

	g, gctx := errgroup.WithContext(ctx)

	if err := a.Services.Relay.StartForwarding(gctx); err != nil {
		return fmt.Errorf("start bus forwarder: %w", err)
	}
	// Hijacked sockets are invisible to http.Server.Shutdown.
	a.Server.RegisterOnShutdown(a.Services.Hub.Shutdown)

	g.Go(func() error { return a.Server.Run(gctx) })
	g.Go(func() error { return a.Services.Hub.RunHeartbeat(gctx) })
	g.Go(func() error { return a.Services.Sweeper.Run(gctx) })

	a.Log.Info("navrelay listening",
		"addr", a.Server.Addr(),
		"mode", a.Cfg.Mode,
		"inactivity_ttl", a.Cfg.InactivityTTL,
		"cleanup_interval", a.Cfg.CleanupInterval,
		"heartbeat_interval", a.Cfg.HeartbeatInterval,
		"peer_bus", a.Cfg.BusEnabled(),
	)
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Services.Hub != nil {
		a.Services.Hub.Shutdown()
	}
	a.Clients.Close(a.Log)
	if a.shutdownOtel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
