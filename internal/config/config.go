package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gookit/validate"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Session SessionConfig
	Logging LoggingConfig
	Metrics MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           int      `env:"PORT" envDefault:"3000" validate:"required|min:1|max:65535"`
	Host           string   `env:"HOST" envDefault:"0.0.0.0"`
	Env            string   `env:"ENV" envDefault:"development" validate:"required|in:development,production"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// SessionConfig holds session engine configuration
type SessionConfig struct {
	ReconnectGracePeriod time.Duration `env:"RECONNECT_GRACE_PERIOD" envDefault:"30s"`
	IDLength             int           `env:"SESSION_ID_LENGTH" envDefault:"8" validate:"required|min:4|max:21"`
	StrictVoteValues     bool          `env:"STRICT_VOTE_VALUES" envDefault:"false"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info" validate:"required|in:trace,debug,info,warn,error"`
	Format string `env:"LOG_FORMAT" envDefault:"json" validate:"required|in:json,console"`
}

// MetricsConfig holds prometheus configuration
type MetricsConfig struct {
	Enabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Load loads configuration from an optional .env file and environment variables
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	for _, section := range []interface{}{&c.Server, &c.Session, &c.Logging} {
		v := validate.Struct(section)
		if !v.Validate() {
			return fmt.Errorf("invalid config: %w", v.Errors)
		}
	}

	if c.Session.ReconnectGracePeriod <= 0 {
		return errors.New("invalid config: RECONNECT_GRACE_PERIOD must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
