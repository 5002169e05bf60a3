package app

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	httpMW "github.com/yungbote/navrelay/internal/http/middleware"
	"github.com/yungbote/navrelay/internal/observability"
	"github.com/yungbote/navrelay/internal/platform/envutil"
	"github.com/yungbote/navrelay/internal/platform/logger"
)

const (
	ServiceName = "navrelay"

	ModeMulti  = "multi"
	ModeSingle = "single"

	defaultPort              = 9091
	defaultInactivityTTLMs   = 86_400_000
	defaultCleanupIntervalMs = 300_000
	defaultHeartbeatMs       = 30_000
	defaultMaxBodyBytes      = 1_000_000
	defaultRedisChannel      = "navrelay"
)

type Config struct {
	Port              int
	InactivityTTL     time.Duration
	CleanupInterval   time.Duration
	HeartbeatInterval time.Duration
	MaxBodyBytes      int64
	CORSOrigins       []string
	Mode              string

	RedisAddr    string
	RedisChannel string
	NodeID       string

	Otel observability.OtelConfig
}

func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }
func (c Config) MultiTenant() bool { return c.Mode != ModeSingle }
func (c Config) BusEnabled() bool { return c.RedisAddr != "" }

// LoadConfig reads the optional YAML file named by RELAY_CONFIG_YAML, then
// the environment. Unusable values fall back to their defaults with a
// warning; nothing here is fatal.
func LoadConfig(log *logger.Logger) Config {
	fc := loadFileConfig(log)

	corsDefault := []string{"*"}
	if len(fc.CORSOrigins) > 0 {
		corsDefault = fc.CORSOrigins
	}

	cfg := Config{
		Port:              positive(log, "PORT", intDefault(log, "port", fc.Port, defaultPort)),
		InactivityTTL:     millis(log, "INACTIVITY_TTL_MS", intDefault(log, "inactivity_ttl_ms", fc.InactivityTTLMs, defaultInactivityTTLMs)),
		CleanupInterval:   millis(log, "CLEANUP_INTERVAL_MS", intDefault(log, "cleanup_interval_ms", fc.CleanupIntervalMs, defaultCleanupIntervalMs)),
		HeartbeatInterval: millis(log, "HEARTBEAT_INTERVAL_MS", intDefault(log, "heartbeat_interval_ms", fc.HeartbeatIntervalMs, defaultHeartbeatMs)),
		MaxBodyBytes:      int64(positive(log, "MAX_BODY_BYTES", intDefault(log, "max_body_bytes", fc.MaxBodyBytes, defaultMaxBodyBytes))),
		CORSOrigins:       corsOrigins(log, envutil.List("CORS_ORIGINS", corsDefault)),
		Mode:              relayMode(log, stringDefault(fc.Mode, ModeMulti)),
		RedisAddr:         envutil.String("REDIS_ADDR", stringDefault(fc.Redis.Addr, "")),
		RedisChannel:      envutil.String("REDIS_CHANNEL", stringDefault(fc.Redis.Channel, defaultRedisChannel)),
		NodeID:            envutil.String("NODE_ID", stringDefault(fc.NodeID, "")),
	}
	if cfg.Port > 65535 {
		log.Warn("PORT out of range; using default", "value", cfg.Port, "default", defaultPort)
		cfg.Port = defaultPort
	}
	if cfg.NodeID == "" {
		cfg.NodeID = uuid.New().String()
	}

	cfg.Otel = observability.OtelConfig{
		Enabled:     envutil.Bool("OTEL_ENABLED", false),
		ServiceName: envutil.String("OTEL_SERVICE_NAME", ServiceName),
		Environment: envutil.String("APP_ENV", "development"),
		Version:     envutil.String("APP_VERSION", "dev"),
		Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		Headers:     observability.ParseOtelHeaders(envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "")),
		Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
		SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 1.0),
	}
	return cfg
}

func positive(log *logger.Logger, name string, def int) int {
	v, discarded := envutil.PositiveInt(name, def)
	if discarded {
		log.Warn("invalid env value; using default", "name", name, "default", def)
	}
	return v
}

func millis(log *logger.Logger, name string, def int) time.Duration {
	return time.Duration(positive(log, name, def)) * time.Millisecond
}

func relayMode(log *logger.Logger, def string) string {
	mode := strings.ToLower(envutil.String("RELAY_MODE", def))
	switch mode {
	case ModeMulti, ModeSingle:
		return mode
	default:
		log.Warn("unknown RELAY_MODE; using multi", "value", mode)
		return ModeMulti
	}
}

// corsOrigins drops entries the CORS layer cannot use and falls back to "*"
// when none are left.
func corsOrigins(log *logger.Logger, raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, o := range raw {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if !httpMW.ValidOrigin(o) {
			log.Warn("invalid CORS origin; ignoring", "value", o)
			continue
		}
		out = append(out, o)
	}
	if len(out) == 0 {
		if len(raw) > 0 {
			log.Warn("no usable CORS origins; allowing any origin")
		}
		return []string{"*"}
	}
	return out
}
