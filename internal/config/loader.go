package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "tiervault.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "TIERVAULT_PORT")
	setString(&cfg.Server.CORSOrigin, "TIERVAULT_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "TIERVAULT_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "TIERVAULT_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "TIERVAULT_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "TIERVAULT_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "TIERVAULT_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.NATS.KVBucket, "TIERVAULT_KV_BUCKET")
	setDuration(&cfg.NATS.KVTTL, "TIERVAULT_KV_TTL")
	setString(&cfg.NATS.ArchiveBucket, "TIERVAULT_ARCHIVE_BUCKET")
	setDuration(&cfg.Cache.DefaultTTL, "TIERVAULT_CACHE_DEFAULT_TTL")
	setFloat64(&cfg.Cache.PromoteL2Freq, "TIERVAULT_CACHE_PROMOTE_L2_FREQ")
	setFloat64(&cfg.Cache.PromoteL1Freq, "TIERVAULT_CACHE_PROMOTE_L1_FREQ")
	setDuration(&cfg.Lifecycle.Interval, "TIERVAULT_LIFECYCLE_INTERVAL")
	setDuration(&cfg.Lifecycle.Retention, "TIERVAULT_LIFECYCLE_RETENTION")
	setDuration(&cfg.Lifecycle.MigrationCutoff, "TIERVAULT_LIFECYCLE_MIGRATION_CUTOFF")
	setInt(&cfg.Lifecycle.BatchSize, "TIERVAULT_LIFECYCLE_BATCH_SIZE")
	setString(&cfg.Logging.Level, "TIERVAULT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "TIERVAULT_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "TIERVAULT_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "TIERVAULT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "TIERVAULT_BREAKER_TIMEOUT")
	setBool(&cfg.Otel.Enabled, "TIERVAULT_OTEL_ENABLED")
	setString(&cfg.Otel.Endpoint, "TIERVAULT_OTEL_ENDPOINT")
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if cfg.NATS.URL == "" {
		return errors.New("nats.url is required")
	}
	if cfg.Postgres.MaxConns < 1 {
		return errors.New("postgres.max_conns must be >= 1")
	}
	if cfg.Cache.DefaultTTL <= 0 {
		return errors.New("cache.default_ttl must be positive")
	}
	if cfg.Cache.PromoteL1Freq < cfg.Cache.PromoteL2Freq {
		return errors.New("cache.promote_l1_freq must be >= cache.promote_l2_freq")
	}
	if cfg.Lifecycle.BatchSize < 1 {
		return errors.New("lifecycle.batch_size must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
