// Package config loads the arena server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store drivers
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the process configuration
type Config struct {
	Host  string `env:"HOST" envDefault:"localhost"`
	Port  int    `env:"PORT" envDefault:"8080"`
	Debug bool   `env:"DEBUG"`

	JWTSecret     string        `env:"JWT_SECRET"`
	UserTokenTTL  time.Duration `env:"USER_TOKEN_TTL" envDefault:"336h"`
	GuestTokenTTL time.Duration `env:"GUEST_TOKEN_TTL" envDefault:"24h"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"arena.db"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	ScoreQueueSize int           `env:"SCORE_QUEUE_SIZE" envDefault:"256"`
	ScoreTimeout   time.Duration `env:"SCORE_TIMEOUT" envDefault:"5s"`

	StaticDir string `env:"STATIC_DIR"`

	NgrokEnabled   bool   `env:"NGROK_ENABLED"`
	NgrokAuthToken string `env:"NGROK_AUTHTOKEN"`
	NgrokDomain    string `env:"NGROK_DOMAIN"`
}

// Load parses the environment into a Config
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Addr returns host:port
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the values Load cannot
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	switch strings.ToLower(c.StoreDriver) {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: SQLITE_PATH is required for the sqlite store", ErrInvalidConfig)
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("%w: REDIS_ADDR is required for the redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	if c.UserTokenTTL <= 0 || c.GuestTokenTTL <= 0 {
		return fmt.Errorf("%w: token lifetimes must be positive", ErrInvalidConfig)
	}
	if c.ScoreQueueSize <= 0 {
		return fmt.Errorf("%w: SCORE_QUEUE_SIZE must be positive", ErrInvalidConfig)
	}
	if c.NgrokEnabled && c.NgrokAuthToken == "" {
		return fmt.Errorf("%w: NGROK_AUTHTOKEN is required when ngrok is enabled", ErrInvalidConfig)
	}
	return nil
}
