package config

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/minhancr123/Task-Management-sub000/internal/task"
)

// OwnerEnv overrides the configured owner when set.
const OwnerEnv = "TASKBOARD_OWNER"

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendHTTP   = "http"
)

// Config is the root configuration for a taskboard project.
type Config struct {
	Version     int         `yaml:"version"`
	Owner       string      `yaml:"owner"`                // identity used to scope the cache
	Backend     string      `yaml:"backend"`              // sqlite, redis or http
	Database    string      `yaml:"database,omitempty"`   // sqlite path, relative to .taskboard/
	RedisURL    string      `yaml:"redis_url,omitempty"`  // redis://host:port/db
	ServerURL   string      `yaml:"server_url,omitempty"` // base URL of a taskboard server
	Listen      string      `yaml:"listen,omitempty"`     // address for `taskboard serve`
	LogLevel    string      `yaml:"log_level,omitempty"`
	Trace       bool        `yaml:"trace,omitempty"` // log a span per record store call
	Cache       Cache       `yaml:"cache"`
	Stats       Stats       `yaml:"stats"`
	Board       Board       `yaml:"board"`
	Permissions Permissions `yaml:"permissions"`
}

// Cache configures the session task cache.
type Cache struct {
	FreshnessWindow time.Duration `yaml:"freshness_window"`
}

// Stats configures the derived stats aggregator.
type Stats struct {
	Debounce time.Duration `yaml:"debounce"`
}

// Board configures the drag engine.
type Board struct {
	DragThreshold int `yaml:"drag_threshold"` // cells of pointer travel before a drag activates
}

// Permissions feeds the board's permission gate.
type Permissions struct {
	ReadOnly       bool     `yaml:"read_only"`
	FrozenStatuses []string `yaml:"frozen_statuses,omitempty"`
}

// Frozen returns the frozen statuses in canonical form.
func (p Permissions) Frozen() []task.Status {
	out := make([]task.Status, 0, len(p.FrozenStatuses))
	for _, s := range p.FrozenStatuses {
		if st, ok := task.ParseStatus(s); ok {
			out = append(out, st)
		}
	}
	return out
}

// Load reads and parses the config file at the given path. Missing fields
// take their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if owner := os.Getenv(OwnerEnv); owner != "" {
		cfg.Owner = owner
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the config to the given path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter config using the local sqlite backend.
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Owner:    "me",
		Backend:  BackendSQLite,
		Database: "board.db",
		Listen:   ":8080",
		LogLevel: "info",
		Cache:    Cache{FreshnessWindow: 2 * time.Minute},
		Stats:    Stats{Debounce: 100 * time.Millisecond},
		Board:    Board{DragThreshold: 2},
		Permissions: Permissions{
			FrozenStatuses: []string{task.StatusCancelled.String()},
		},
	}
}

// Level returns the configured logrus level.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func (c *Config) validate() error {
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	switch c.Backend {
	case BackendSQLite:
		if c.Database == "" {
			return fmt.Errorf("database is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis_url is required for the redis backend")
		}
	case BackendHTTP:
		if c.ServerURL == "" {
			return fmt.Errorf("server_url is required for the http backend")
		}
	default:
		return fmt.Errorf("backend must be 'sqlite', 'redis' or 'http', got %q", c.Backend)
	}
	if c.Cache.FreshnessWindow <= 0 {
		return fmt.Errorf("cache.freshness_window must be positive, got %s", c.Cache.FreshnessWindow)
	}
	if c.Stats.Debounce <= 0 {
		return fmt.Errorf("stats.debounce must be positive, got %s", c.Stats.Debounce)
	}
	if c.Board.DragThreshold < 0 {
		return fmt.Errorf("board.drag_threshold must not be negative, got %d", c.Board.DragThreshold)
	}
	for _, s := range c.Permissions.FrozenStatuses {
		if _, ok := task.ParseStatus(s); !ok {
			return fmt.Errorf("permissions.frozen_statuses: unknown status %q", s)
		}
	}
	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("log_level: %w", err)
		}
	}
	return nil
}
