package sweeper

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

const (
	ReasonTTLExpired = "ttl_expired"

	defaultInterval = 5 * time.Minute
	defaultTTL      = 24 * time.Hour
)

// Expirer drops tenant and device records that have been idle longer than ttl.
type Expirer interface {
	ExpireIdle(now time.Time, ttl time.Duration, reason string) (tenants, clients int)
}

type Config struct {
	Interval time.Duration
	TTL      time.Duration
}

type SweepResult struct {
	Trigger        string
	TenantsExpired int
	ClientsExpired int
	Duration       time.Duration
}

// Sweeper is the relay's garbage collector. It never broadcasts.
type Sweeper struct {
	log      *logger.Logger
	clk      clock.Clock
	metrics  *observability.Metrics
	target   Expirer
	interval time.Duration
	ttl      time.Duration
}

func New(log *logger.Logger, clk clock.Clock, metrics *observability.Metrics, target Expirer, cfg Config) *Sweeper {
	if clk == nil {
		clk = clock.New()
	}
	if metrics == nil {
		metrics = observability.New(clk)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	return &Sweeper{
		log:      log.With("component", "Sweeper"),
		clk:      clk,
		metrics:  metrics,
		target:   target,
		interval: cfg.Interval,
		ttl:      cfg.TTL,
	}
}

// Sweep runs one collection pass. trigger only labels the log line
// ("interval", "state_read", ...).
func (s *Sweeper) Sweep(trigger string) SweepResult {
	start := s.clk.Now()
	tenants, clients := s.target.ExpireIdle(start, s.ttl, ReasonTTLExpired)
	s.metrics.GCSweeps.Inc()

	res := SweepResult{
		Trigger:        trigger,
		TenantsExpired: tenants,
		ClientsExpired: clients,
		Duration:       s.clk.Since(start),
	}
	if tenants > 0 || clients > 0 {
		s.log.Info("sweep expired idle records",
			"trigger", trigger,
			"tenants_expired", tenants,
			"clients_expired", clients,
		)
	} else {
		s.log.Debug("sweep found nothing idle", "trigger", trigger)
	}
	return res
}

// Run sweeps every interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := s.clk.Ticker(s.interval)
	defer ticker.Stop()
	s.log.Info("sweeper started", "interval", s.interval, "ttl", s.ttl)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
			s.safeSweep()
		}
	}
}

func (s *Sweeper) safeSweep() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sweep panic", "panic", r)
		}
	}()
	s.Sweep("interval")
}
