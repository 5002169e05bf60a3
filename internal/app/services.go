package app

import (
	"github.com/benbjohnson/clock"

	"github.com/yungbote/navrelay/internal/jobs/sweeper"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
	"github.com/yungbote/navrelay/internal/realtime"
	"github.com/yungbote/navrelay/internal/services"
)

type Services struct {
	Hub     *realtime.Hub
	Relay   *services.RelayService
	Sweeper *sweeper.Sweeper
}

func wireServices(log *logger.Logger, clk clock.Clock, metrics *observability.Metrics, cfg Config, clients Clients) Services {
	log.Info("Wiring services...")

	hub := realtime.NewHub(log, clk, metrics, realtime.HubConfig{
		HeartbeatInterval: cfg.HeartbeatInterval,
		AllowedOrigins:    cfg.CORSOrigins,
	})
	relay := services.NewRelayService(log, clk, metrics, hub, services.RelayConfig{
		MultiTenant: cfg.MultiTenant(),
		Bus:         clients.Bus,
	})
	sw := sweeper.New(log, clk, metrics, relay, sweeper.Config{
		Interval: cfg.CleanupInterval,
		TTL:      cfg.InactivityTTL,
	})

	return Services{Hub: hub, Relay: relay, Sweeper: sw}
}
