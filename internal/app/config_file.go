package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/navrelay/internal/platform/logger"
)

const configFileEnv = "RELAY_CONFIG_YAML"

// fileConfig is the optional YAML layer. Its values replace the built-in
// defaults; environment variables still win over both.
type fileConfig struct {
	Port                *int     `yaml:"port"`
	InactivityTTLMs     *int     `yaml:"inactivity_ttl_ms"`
	CleanupIntervalMs   *int     `yaml:"cleanup_interval_ms"`
	HeartbeatIntervalMs *int     `yaml:"heartbeat_interval_ms"`
	MaxBodyBytes        *int     `yaml:"max_body_bytes"`
	CORSOrigins         []string `yaml:"cors_origins"`
	Mode                string   `yaml:"mode"`
	NodeID              string   `yaml:"node_id"`
	Redis               struct {
		Addr    string `yaml:"addr"`
		Channel string `yaml:"channel"`
	} `yaml:"redis"`
}

func parseFileConfig(raw []byte) (fileConfig, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("decode relay config: %w", err)
	}
	return fc, nil
}

// loadFileConfig never fails hard: a missing or invalid file is logged and
// ignored.
func loadFileConfig(log *logger.Logger) fileConfig {
	path := strings.TrimSpace(os.Getenv(configFileEnv))
	if path == "" {
		return fileConfig{}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Warn("relay config file unreadable; using defaults", "path", path, "error", err)
		return fileConfig{}
	}
	fc, err := parseFileConfig(raw)
	if err != nil {
		log.Warn("relay config file invalid; using defaults", "path", path, "error", err)
		return fileConfig{}
	}
	log.Info("relay config file loaded", "path", path)
	return fc
}

// intDefault returns the file value when it is usable, else def.
func intDefault(log *logger.Logger, key string, v *int, def int) int {
	if v == nil {
		return def
	}
	if *v <= 0 {
		log.Warn("invalid relay config value; using default", "key", key, "value", *v, "default", def)
		return def
	}
	return *v
}

func stringDefault(v, def string) string {
	if s := strings.TrimSpace(v); s != "" {
		return s
	}
	return def
}
