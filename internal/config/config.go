// Package config loads the hitserver configuration from YAML over built-in
// defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"

	hperrors "github.com/vnykmshr/hitpool/pkg/common/errors"
	"github.com/vnykmshr/hitpool/pkg/common/validation"
	"github.com/vnykmshr/hitpool/pkg/scheduling/periodic"
)

const moduleName = "config"

// Config mirrors config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Counter   CounterConfig   `yaml:"counter"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Report    ReportConfig    `yaml:"report"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the connection acceptor.
type ServerConfig struct {
	Name           string        `yaml:"name"`
	Addr           string        `yaml:"addr"`
	BodyPath       string        `yaml:"body_path"`
	ReadBufferSize int           `yaml:"read_buffer"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`

	// AdmissionRate caps accepted connections per second; 0 disables it.
	AdmissionRate  float64 `yaml:"admission_rate"`
	AdmissionBurst int     `yaml:"admission_burst"`
}

// SchedulerConfig sizes the worker pool.
type SchedulerConfig struct {
	// Workers = 0 sizes the pool to the available execution units.
	Workers int `yaml:"workers"`
}

// CounterConfig selects and configures the hit counter backend.
type CounterConfig struct {
	Backend      string        `yaml:"backend"` // memory | redis
	RedisAddr    string        `yaml:"redis_addr"`
	RedisKey     string        `yaml:"redis_key"`
	RedisTimeout time.Duration `yaml:"redis_timeout"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// ReportConfig schedules the periodic hit report.
type ReportConfig struct {
	// Schedule is a cron expression or descriptor; empty disables the report.
	Schedule string `yaml:"schedule"`
}

// TracingConfig controls per-connection spans.
type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"` // empty = stdout
}

// LogConfig selects the slog handler and level.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Name:           "hitserver",
			Addr:           "127.0.0.1:5000",
			BodyPath:       "hello.html",
			ReadBufferSize: 1024,
			AdmissionBurst: 64,
		},
		Counter: CounterConfig{
			Backend:      "memory",
			RedisAddr:    "127.0.0.1:6379",
			RedisKey:     "hitpool:hits",
			RedisTimeout: 500 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9090",
		},
		Report: ReportConfig{
			Schedule: "@every 30s",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads YAML from path and overrides defaults. An empty path or a
// missing file yields the defaults; malformed YAML or invalid values are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate returns the first invalid setting, or nil.
func (c Config) Validate() error {
	checks := []error{
		validation.ValidateNotEmpty(moduleName, "server.addr", c.Server.Addr),
		validation.ValidateNotEmpty(moduleName, "server.body_path", c.Server.BodyPath),
		validation.ValidatePositive(moduleName, "server.read_buffer", c.Server.ReadBufferSize),
		validation.ValidateNonNegativeDuration(moduleName, "server.read_timeout", c.Server.ReadTimeout),
		validation.ValidateOneOf(moduleName, "counter.backend", c.Counter.Backend, "memory", "redis"),
		validation.ValidateNonNegativeDuration(moduleName, "counter.redis_timeout", c.Counter.RedisTimeout),
		validation.ValidateOneOf(moduleName, "log.level", c.Log.Level, "debug", "info", "warn", "error"),
		validation.ValidateOneOf(moduleName, "log.format", c.Log.Format, "text", "json"),
	}
	if c.Scheduler.Workers < 0 {
		checks = append(checks, validation.ValidatePositive(moduleName, "scheduler.workers", c.Scheduler.Workers))
	}
	if c.Server.AdmissionRate < 0 {
		checks = append(checks, hperrors.NewValidationError(moduleName, "server.admission_rate", c.Server.AdmissionRate, "cannot be negative").
			WithHint("use 0 to accept connections without throttling"))
	}
	if c.Server.AdmissionRate > 0 {
		checks = append(checks, validation.ValidatePositive(moduleName, "server.admission_burst", c.Server.AdmissionBurst))
	}
	if c.Counter.Backend == "redis" {
		checks = append(checks, validation.ValidateNotEmpty(moduleName, "counter.redis_addr", c.Counter.RedisAddr))
	}
	if c.Metrics.Enabled {
		checks = append(checks, validation.ValidateNotEmpty(moduleName, "metrics.addr", c.Metrics.Addr))
	}
	if c.Report.Schedule != "" {
		checks = append(checks, periodic.ValidateSpec(c.Report.Schedule))
	}

	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// SlogLevel maps Log.Level onto slog.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
