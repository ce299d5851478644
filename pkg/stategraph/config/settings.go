package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Store kinds accepted by Settings.Store.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "STATEGRAPH_"

// Settings are the runtime options of the stategraph CLI.
//
// Example file:
//
//	store:
//	  kind: sqlite
//	  dsn: ./stategraph.db
//	  codec: msgpack
//	  compression: zstd
//	log:
//	  level: debug
//	run:
//	  max_iterations: 200
//	  timeout: 2m
//	metrics:
//	  addr: :9090
type Settings struct {
	Store         string
	DSN           string
	Codec         string
	Compression   string
	LogLevel      string
	MaxIterations int
	Timeout       time.Duration
	MetricsAddr   string
}

// DefaultSettings returns settings for an in-memory, single-process run.
func DefaultSettings() Settings {
	return Settings{
		Store:         StoreMemory,
		Codec:         "json",
		Compression:   "none",
		LogLevel:      "info",
		MaxIterations: 1000,
	}
}

// SettingsFrom reads settings from cfg, falling back to DefaultSettings.
func SettingsFrom(cfg Config) Settings {
	d := DefaultSettings()
	return Settings{
		Store:         cfg.String("store.kind", d.Store),
		DSN:           cfg.String("store.dsn", d.DSN),
		Codec:         cfg.String("store.codec", d.Codec),
		Compression:   cfg.String("store.compression", d.Compression),
		LogLevel:      cfg.String("log.level", d.LogLevel),
		MaxIterations: cfg.Int("run.max_iterations", d.MaxIterations),
		Timeout:       cfg.Duration("run.timeout", d.Timeout),
		MetricsAddr:   cfg.String("metrics.addr", d.MetricsAddr),
	}
}

// ApplyEnv overrides settings from environment variables such as
// STATEGRAPH_STORE and STATEGRAPH_DSN. lookup is usually os.LookupEnv.
func (s Settings) ApplyEnv(lookup func(string) (string, bool)) (Settings, error) {
	get := func(name string) (string, bool) {
		v, ok := lookup(EnvPrefix + name)
		return v, ok && v != ""
	}
	if v, ok := get("STORE"); ok {
		s.Store = v
	}
	if v, ok := get("DSN"); ok {
		s.DSN = v
	}
	if v, ok := get("CODEC"); ok {
		s.Codec = v
	}
	if v, ok := get("COMPRESSION"); ok {
		s.Compression = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		s.LogLevel = v
	}
	if v, ok := get("METRICS_ADDR"); ok {
		s.MetricsAddr = v
	}
	if v, ok := get("MAX_ITERATIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return s, fmt.Errorf("%sMAX_ITERATIONS: %w", EnvPrefix, err)
		}
		s.MaxIterations = n
	}
	if v, ok := get("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return s, fmt.Errorf("%sTIMEOUT: %w", EnvPrefix, err)
		}
		s.Timeout = d
	}
	return s, nil
}

// Validate reports every invalid field.
func (s Settings) Validate() error {
	var errs []error
	switch s.Store {
	case StoreMemory:
	case StoreSQLite, StorePostgres, StoreRedis:
		if s.DSN == "" {
			errs = append(errs, fmt.Errorf("store %q requires a dsn", s.Store))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", s.Store))
	}
	if _, err := s.Level(); err != nil {
		errs = append(errs, err)
	}
	if s.MaxIterations < 1 {
		errs = append(errs, fmt.Errorf("max iterations must be positive, got %d", s.MaxIterations))
	}
	if s.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (s Settings) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s.LogLevel)
	}
	return level, nil
}
