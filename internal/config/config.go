// Package config loads and validates the YAML-backed configuration for a
// Chord ring: ring parameters, maintenance intervals, lookup cache, payload
// codec, bootstrap, logging, and tracing.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"chorddht/internal/logger"
)

type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

type TelemetryConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

type FileLoggerConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type LoggerConfig struct {
	Active   bool             `yaml:"active"`
	Level    string           `yaml:"level"`
	Encoding string           `yaml:"encoding"`
	Mode     string           `yaml:"mode"`
	File     FileLoggerConfig `yaml:"file"`
}

// MaintenanceConfig carries the periodic background task intervals used by
// the node's stabilization loop.
type MaintenanceConfig struct {
	StabilizeInterval  time.Duration `yaml:"stabilizeInterval"`
	FixFingersInterval time.Duration `yaml:"fixFingersInterval"`
	BackupInterval     time.Duration `yaml:"backupInterval"`
	FailureTimeout     time.Duration `yaml:"failureTimeout"`
}

// CacheConfig configures the optional lookup-hint cache each node keeps.
type CacheConfig struct {
	Enabled  bool `yaml:"enabled"`
	Capacity int  `yaml:"capacity"`
}

// CodecConfig selects the payload codec the network and its nodes use.
type CodecConfig struct {
	Kind string `yaml:"kind"` // "identity" or "chacha20poly1305"
	Key  string `yaml:"key"`  // hex-encoded 32-byte key, required for chacha20poly1305
}

// BootstrapConfig configures how a newly created network discovers existing
// ring members. Only the "static" source is implemented; "none" starts an
// empty ring.
type BootstrapConfig struct {
	Mode  string   `yaml:"mode"`
	Peers []string `yaml:"peers"`
}

type DHTConfig struct {
	IDBits      int               `yaml:"idBits"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Cache       CacheConfig       `yaml:"cache"`
	Codec       CodecConfig       `yaml:"codec"`
	Bootstrap   BootstrapConfig   `yaml:"bootstrap"`
}

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	DHT       DHTConfig       `yaml:"dht"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoadConfig reads and parses the YAML configuration file at path. It
// performs only syntactic parsing; call ValidateConfig to check semantic
// correctness.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyEnvOverrides overrides selected fields from environment variables,
// for deployment-time tuning without editing the YAML file.
//
//	LOGGER_ENABLED        -> cfg.Logger.Active
//	LOGGER_LEVEL          -> cfg.Logger.Level
//	LOGGER_ENCODING       -> cfg.Logger.Encoding
//	LOGGER_MODE           -> cfg.Logger.Mode
//	LOGGER_FILE_PATH      -> cfg.Logger.File.Path
//	DHT_ID_BITS           -> cfg.DHT.IDBits
//	DHT_BOOTSTRAP_MODE    -> cfg.DHT.Bootstrap.Mode
//	DHT_BOOTSTRAP_PEERS   -> cfg.DHT.Bootstrap.Peers (comma-separated)
//	TRACE_ENABLED         -> cfg.Telemetry.Tracing.Enabled
//	TRACE_EXPORTER        -> cfg.Telemetry.Tracing.Exporter
//	TRACE_ENDPOINT        -> cfg.Telemetry.Tracing.Endpoint
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("LOGGER_ENABLED"); v != "" {
		v = strings.ToLower(v)
		cfg.Logger.Active = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("LOGGER_ENCODING"); v != "" {
		cfg.Logger.Encoding = v
	}
	if v := os.Getenv("LOGGER_MODE"); v != "" {
		cfg.Logger.Mode = v
	}
	if v := os.Getenv("LOGGER_FILE_PATH"); v != "" {
		cfg.Logger.File.Path = v
	}
	if v := os.Getenv("DHT_ID_BITS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DHT.IDBits = n
		}
	}
	if v := os.Getenv("DHT_BOOTSTRAP_MODE"); v != "" {
		cfg.DHT.Bootstrap.Mode = v
	}
	if v := os.Getenv("DHT_BOOTSTRAP_PEERS"); v != "" {
		cfg.DHT.Bootstrap.Peers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRACE_ENABLED"); v != "" {
		v = strings.ToLower(v)
		cfg.Telemetry.Tracing.Enabled = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("TRACE_EXPORTER"); v != "" {
		cfg.Telemetry.Tracing.Exporter = v
	}
	if v := os.Getenv("TRACE_ENDPOINT"); v != "" {
		cfg.Telemetry.Tracing.Endpoint = v
	}
}

// ValidateConfig performs structural validation of the loaded configuration,
// accumulating every problem found into a single error.
func (cfg *Config) ValidateConfig() error {
	var errs []string

	switch cfg.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.level: %s", cfg.Logger.Level))
	}
	switch cfg.Logger.Encoding {
	case "console", "json":
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.encoding: %s", cfg.Logger.Encoding))
	}
	switch cfg.Logger.Mode {
	case "stdout":
	case "file":
		if cfg.Logger.File.Path == "" {
			errs = append(errs, "logger.file.path is required when mode=file")
		}
		if cfg.Logger.File.MaxSize < 0 || cfg.Logger.File.MaxBackups < 0 || cfg.Logger.File.MaxAge < 0 {
			errs = append(errs, "logger.file.* values must be non-negative")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid logger.mode: %s", cfg.Logger.Mode))
	}

	if cfg.DHT.IDBits <= 0 {
		errs = append(errs, "dht.idBits must be > 0")
	}
	if cfg.DHT.Maintenance.StabilizeInterval <= 0 {
		errs = append(errs, "dht.maintenance.stabilizeInterval must be > 0")
	}
	if cfg.DHT.Maintenance.FixFingersInterval <= 0 {
		errs = append(errs, "dht.maintenance.fixFingersInterval must be > 0")
	}
	if cfg.DHT.Maintenance.BackupInterval <= 0 {
		errs = append(errs, "dht.maintenance.backupInterval must be > 0")
	}
	if cfg.DHT.Maintenance.FailureTimeout <= 0 {
		errs = append(errs, "dht.maintenance.failureTimeout must be > 0")
	}
	if cfg.DHT.Cache.Enabled && cfg.DHT.Cache.Capacity <= 0 {
		errs = append(errs, "dht.cache.capacity must be > 0 when cache.enabled=true")
	}

	switch cfg.DHT.Codec.Kind {
	case "identity":
	case "chacha20poly1305":
		if cfg.DHT.Codec.Key == "" {
			errs = append(errs, "dht.codec.key is required when codec.kind=chacha20poly1305")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid dht.codec.kind: %s", cfg.DHT.Codec.Kind))
	}

	switch cfg.DHT.Bootstrap.Mode {
	case "none":
	case "static":
		if len(cfg.DHT.Bootstrap.Peers) == 0 {
			errs = append(errs, "dht.bootstrap.peers must be non-empty when bootstrap.mode=static")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid dht.bootstrap.mode: %s (must be none or static)", cfg.DHT.Bootstrap.Mode))
	}

	if cfg.Telemetry.Tracing.Enabled {
		switch cfg.Telemetry.Tracing.Exporter {
		case "stdout":
		default:
			errs = append(errs, fmt.Sprintf("invalid telemetry.tracing.exporter: %s", cfg.Telemetry.Tracing.Exporter))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LogConfig prints the loaded configuration at DEBUG level, useful for
// diagnosing startup issues.
func (cfg *Config) LogConfig(lgr logger.Logger) {
	lgr.Debug("loaded configuration",
		logger.F("logger.active", cfg.Logger.Active),
		logger.F("logger.level", cfg.Logger.Level),
		logger.F("logger.encoding", cfg.Logger.Encoding),
		logger.F("logger.mode", cfg.Logger.Mode),

		logger.F("dht.idBits", cfg.DHT.IDBits),
		logger.F("dht.maintenance.stabilizeInterval", cfg.DHT.Maintenance.StabilizeInterval.String()),
		logger.F("dht.maintenance.fixFingersInterval", cfg.DHT.Maintenance.FixFingersInterval.String()),
		logger.F("dht.maintenance.backupInterval", cfg.DHT.Maintenance.BackupInterval.String()),
		logger.F("dht.maintenance.failureTimeout", cfg.DHT.Maintenance.FailureTimeout.String()),
		logger.F("dht.cache.enabled", cfg.DHT.Cache.Enabled),
		logger.F("dht.cache.capacity", cfg.DHT.Cache.Capacity),
		logger.F("dht.codec.kind", cfg.DHT.Codec.Kind),
		logger.F("dht.bootstrap.mode", cfg.DHT.Bootstrap.Mode),
		logger.F("dht.bootstrap.peers", cfg.DHT.Bootstrap.Peers),

		logger.F("telemetry.tracing.enabled", cfg.Telemetry.Tracing.Enabled),
		logger.F("telemetry.tracing.exporter", cfg.Telemetry.Tracing.Exporter),
		logger.F("telemetry.tracing.endpoint", cfg.Telemetry.Tracing.Endpoint),
	)
}
