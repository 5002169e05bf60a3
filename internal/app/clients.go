package app

import (
	"fmt"

	"github.com/yungbote/navrelay/internal/platform/logger"
	"github.com/yungbote/navrelay/internal/realtime/bus"
)

type Clients struct {
	// Bus is nil unless REDIS_ADDR is set.
	Bus bus.Bus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var b bus.Bus
	if cfg.BusEnabled() {
		rb, err := bus.NewRedisBus(log, bus.RedisOptions{
			Addr:    cfg.RedisAddr,
			Channel: cfg.RedisChannel,
			NodeID:  cfg.NodeID,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis bus: %w", err)
		}
		b = rb
		log.Info("peer bus enabled", "channel", cfg.RedisChannel, "node_id", cfg.NodeID)
	}

	return Clients{Bus: b}, nil
}

func (c Clients) Close(log *logger.Logger) {
	if c.Bus != nil {
		if err := c.Bus.Close(); err != nil {
			log.Warn("bus close failed", "error", err)
		}
	}
}
