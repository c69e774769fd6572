package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration, loaded once at startup.
type Config struct {
	Redis      RedisConfig      `mapstructure:"redis"`
	CrewSvc    CrewServiceConfig `mapstructure:"crew_service"`
	Postgres   PostgresConfig   `mapstructure:"postgres"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Session    SessionConfig    `mapstructure:"session"`
	Background BackgroundConfig `mapstructure:"background"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CrewServiceConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (c CrewServiceConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	sslmode := p.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, sslmode,
	)
}

type HTTPConfig struct {
	Port              int `mapstructure:"port"`
	RateLimitPerMin   int `mapstructure:"rate_limit_per_min"`
	RateLimitBurst    int `mapstructure:"rate_limit_burst"`
	ReadTimeoutSecs   int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSecs  int `mapstructure:"write_timeout_seconds"`
}

type SessionConfig struct {
	TTLHours int `mapstructure:"ttl_hours"`
}

func (s SessionConfig) TTL() time.Duration {
	if s.TTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.TTLHours) * time.Hour
}

type BackgroundConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
}

type AuthConfig struct {
	SigningKey    string `mapstructure:"signing_key"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

func (a AuthConfig) TokenTTL() time.Duration {
	if a.TokenTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(a.TokenTTLHours) * time.Hour
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads the configuration file named by CONFIG_PATH (default
// config/orchestrator.yaml) with STUDYHALL_* environment overrides, e.g.
// STUDYHALL_REDIS_ADDR overrides redis.addr.
func Load() (*Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config/orchestrator.yaml"
	}

	v := viper.New()
	v.SetConfigFile(cfgPath)
	v.SetEnvPrefix("STUDYHALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine: defaults plus env overrides still make a
		// complete configuration.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("crew_service.base_url", "http://crew-service:8000")
	v.SetDefault("crew_service.timeout_seconds", 60)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "studyhall")
	v.SetDefault("postgres.database", "studyhall")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.rate_limit_per_min", 60)
	v.SetDefault("http.rate_limit_burst", 10)
	v.SetDefault("http.read_timeout_seconds", 15)
	v.SetDefault("http.write_timeout_seconds", 120)
	v.SetDefault("session.ttl_hours", 24)
	v.SetDefault("background.workers", 4)
	v.SetDefault("background.queue_depth", 64)
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("logging.level", "info")
}
