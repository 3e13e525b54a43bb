// Package config implements the base-agent/monitor-overlay merge: a
// base struct loaded from the environment (caarlos0/env +
// joho/godotenv), overlaid with a monitor YAML file, with documented
// default-injection and DNS-resolution behavior for the alert master
// address.
package config

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/opsloop/probed/internal/logging"
)

// Error wraps a config load failure; it is always fatal to the
// supervisor.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("config: %s: %v", e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Base is infrastructure config pulled from the process environment,
// the host-agent side of the merge.
type Base struct {
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	MongoHost     string `env:"MONGO_HOST" envDefault:"salt"`
	MongoPort     string `env:"MONGO_PORT" envDefault:"27017"`
	MongoDB       string `env:"MONGO_DB" envDefault:"salt"`
	MongoUser     string `env:"MONGO_USER" envDefault:""`
	MongoPassword string `env:"MONGO_PASSWORD" envDefault:""`
	NatsURL       string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
}

// overlay mirrors the monitor YAML file's shape.
type overlay struct {
	Monitor struct {
		CatalogPath     string         `yaml:"catalog_path"`
		Collector       string         `yaml:"collector"`
		CollectorConfig map[string]any `yaml:"collector_config"`
		DefaultInterval float64        `yaml:"default_interval"`
	} `yaml:"monitor"`
	AlertMaster string `yaml:"alert_master"`
	AlertPort   int    `yaml:"alert_port"`
	LogFile     string `yaml:"log_file"`
}

// Config is the fully merged, default-applied configuration the
// supervisor runs with.
type Config struct {
	Base

	AlertMaster     string
	AlertMasterAddr string
	AlertPort       int
	LogFile         string

	CatalogPath     string
	Collector       string
	CollectorConfig map[string]any
	DefaultInterval time.Duration
}

// Load resolves the monitor config path ($SALT_MONITOR_CONFIG env var
// takes priority over the caller-supplied path), loads the base
// env-sourced config, overlays the monitor YAML file on top, and
// injects the documented defaults.
func Load(path string) (*Config, error) {
	if env := os.Getenv("SALT_MONITOR_CONFIG"); env != "" {
		path = env
	}

	if err := godotenv.Load(); err != nil {
		logging.Default().Debugw("no .env file loaded", "error", err)
	}

	var base Base
	if err := env.Parse(&base); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("parse environment: %w", err)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("read monitor config: %w", err)}
	}
	var ov overlay
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return nil, &Error{Path: path, Err: fmt.Errorf("parse monitor config: %w", err)}
	}

	cfg := &Config{
		Base:            base,
		AlertMaster:     ov.AlertMaster,
		AlertPort:       ov.AlertPort,
		CatalogPath:     ov.Monitor.CatalogPath,
		Collector:       ov.Monitor.Collector,
		CollectorConfig: ov.Monitor.CollectorConfig,
	}
	if cfg.AlertMaster == "" {
		cfg.AlertMaster = "salt"
	}
	if cfg.AlertPort == 0 {
		cfg.AlertPort = 4507
	}
	// log_file is always overwritten, regardless of what the overlay
	// config says.
	cfg.LogFile = "/var/log/salt/monitor"

	cfg.DefaultInterval = 10 * time.Second
	if ov.Monitor.DefaultInterval > 0 {
		cfg.DefaultInterval = time.Duration(ov.Monitor.DefaultInterval * float64(time.Second))
	}

	cfg.AlertMasterAddr = resolveHost(cfg.AlertMaster)
	return cfg, nil
}

// resolveHost resolves host to its first IP via DNS, falling back to
// the literal hostname when resolution fails or times out. Failure is
// non-fatal: the alert client can still attempt to dial the literal
// name.
func resolveHost(host string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	addrs, err := net.DefaultResolver.LookupHost(ctx, host)
	if err != nil || len(addrs) == 0 {
		return host
	}
	return addrs[0]
}
