package app

import (
	"github.com/benbjohnson/clock"

	"github.com/yungbote/navrelay/internal/http"
	httpH "github.com/yungbote/navrelay/internal/http/handlers"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

type Handlers struct {
	Health   *httpH.HealthHandler
	Metrics  *httpH.MetricsHandler
	Relay    *httpH.RelayHandler
	Realtime *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, clk clock.Clock, metrics *observability.Metrics, cfg Config, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:   httpH.NewHealthHandler(clk),
		Metrics:  httpH.NewMetricsHandler(clk, metrics),
		Relay:    httpH.NewRelayHandler(log, svc.Relay, svc.Sweeper, metrics, cfg.MaxBodyBytes),
		Realtime: httpH.NewRealtimeHandler(log, svc.Hub, svc.Relay),
	}
}

func wireServer(log *logger.Logger, metrics *observability.Metrics, cfg Config, handlers Handlers) *http.Server {
	tracing := ""
	if cfg.Otel.Enabled {
		tracing = cfg.Otel.ServiceName
	}
	return http.NewServer(cfg.Addr(), http.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		CORSOrigins:     cfg.CORSOrigins,
		TracingService:  tracing,
		HealthHandler:   handlers.Health,
		MetricsHandler:  handlers.Metrics,
		RelayHandler:    handlers.Relay,
		RealtimeHandler: handlers.Realtime,
	})
}
