package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `mapstructure:"server"`

	// Database configuration
	Database DatabaseConfig `mapstructure:"database"`

	// Redis backs the idempotency key store
	Redis RedisConfig `mapstructure:"redis"`

	// Auth configuration
	Auth AuthConfig `mapstructure:"auth"`

	// Lifecycle policy switches
	Lifecycle LifecycleConfig `mapstructure:"lifecycle"`

	// Realtime change feed
	Realtime RealtimeConfig `mapstructure:"realtime"`

	// Logging configuration
	Log LogConfig `mapstructure:"log"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// IsProduction reports whether the server runs in production mode
func (s *ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	Name         string        `mapstructure:"name"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr           string        `mapstructure:"addr"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// Enabled reports whether a redis address was configured
func (r *RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// AuthConfig holds session token settings
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// LifecycleConfig holds status machine policy
type LifecycleConfig struct {
	// StrictJobCompletion rejects completing a job that never started
	StrictJobCompletion bool `mapstructure:"strict_job_completion"`
}

// RealtimeConfig holds LISTEN/NOTIFY settings
type RealtimeConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	MinReconnectInterval time.Duration `mapstructure:"min_reconnect_interval"`
	MaxReconnectInterval time.Duration `mapstructure:"max_reconnect_interval"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "pretty"
}

type setting struct {
	key      string
	env      string
	fallback any
}

var settings = []setting{
	{"server.port", "PORT", "8080"},
	{"server.environment", "APP_ENV", "development"},
	{"server.read_timeout", "SERVER_READ_TIMEOUT", 30 * time.Second},
	{"server.write_timeout", "SERVER_WRITE_TIMEOUT", 30 * time.Second},
	{"server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT", 30 * time.Second},
	{"server.cors_origins", "CORS_ORIGINS", []string{"*"}},

	{"database.host", "DB_HOST", "localhost"},
	{"database.port", "DB_PORT", "5432"},
	{"database.user", "DB_USER", "postgres"},
	{"database.password", "DB_PASSWORD", "postgres"},
	{"database.name", "DB_NAME", "opsdesk"},
	{"database.sslmode", "DB_SSLMODE", "disable"},
	{"database.max_open_conns", "DB_MAX_OPEN_CONNS", 25},
	{"database.max_idle_conns", "DB_MAX_IDLE_CONNS", 5},
	{"database.max_lifetime", "DB_MAX_LIFETIME", 5 * time.Minute},

	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},
	{"redis.idempotency_ttl", "IDEMPOTENCY_TTL", 24 * time.Hour},

	{"auth.jwt_secret", "JWT_SECRET", ""},
	{"auth.issuer", "JWT_ISSUER", "opsdesk-api"},
	{"auth.token_ttl", "JWT_TOKEN_TTL", 12 * time.Hour},

	{"lifecycle.strict_job_completion", "STRICT_JOB_COMPLETION", false},

	{"realtime.enabled", "REALTIME_ENABLED", true},
	{"realtime.min_reconnect_interval", "REALTIME_MIN_RECONNECT", 10 * time.Second},
	{"realtime.max_reconnect_interval", "REALTIME_MAX_RECONNECT", time.Minute},

	{"log.level", "LOG_LEVEL", "info"},
	{"log.format", "LOG_FORMAT", "json"},
}

// Load reads configuration from environment variables and, when present,
// a YAML config file. Environment variables win over the file.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	for _, s := range settings {
		v.SetDefault(s.key, s.fallback)
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", s.env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// CORS_ORIGINS is comma-separated in the environment
	cfg.Server.CORSOrigins = splitList(strings.Join(cfg.Server.CORSOrigins, ","))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Server.IsProduction() && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes in production")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
