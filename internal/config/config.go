// Package config loads service configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "config/adpulse.yaml"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Warehouse DatabaseConfig  `mapstructure:"warehouse"`
	RunStore  DatabaseConfig  `mapstructure:"run_store"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Streaming StreamingConfig `mapstructure:"streaming"`
	Advertiser string         `mapstructure:"advertiser"`
}

type ServerConfig struct {
	Port        int `mapstructure:"port"`
	MetricsPort int `mapstructure:"metrics_port"`
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type RedisConfig struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	MaxCached  int           `mapstructure:"max_cached"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConnections  int           `mapstructure:"max_connections"`
	IdleConnections int           `mapstructure:"idle_connections"`
	MaxLifetime     time.Duration `mapstructure:"max_lifetime"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
}

type AnthropicConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type StreamingConfig struct {
	ReplayCapacity int `mapstructure:"replay_capacity"`
}

// Load reads the config file at CONFIG_PATH (or the default path) and
// applies ADPULSE_* environment overrides, e.g. ADPULSE_REDIS_ADDR or
// ADPULSE_SERVER_PORT. ANTHROPIC_API_KEY always wins for the API key.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile reads a specific config file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("ADPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		// Missing file is fine; defaults plus env must carry it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.Anthropic.APIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 2112)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.session_ttl", 30*time.Minute)
	v.SetDefault("redis.max_cached", 1000)

	v.SetDefault("warehouse.host", "localhost")
	v.SetDefault("warehouse.port", 5432)
	v.SetDefault("warehouse.user", "adpulse")
	v.SetDefault("warehouse.database", "analytics")
	v.SetDefault("warehouse.ssl_mode", "disable")
	v.SetDefault("warehouse.query_timeout", 15*time.Second)
	v.SetDefault("warehouse.cache_ttl", 5*time.Minute)

	v.SetDefault("run_store.host", "localhost")
	v.SetDefault("run_store.port", 5432)
	v.SetDefault("run_store.user", "adpulse")
	v.SetDefault("run_store.database", "adpulse")
	v.SetDefault("run_store.ssl_mode", "disable")

	v.SetDefault("anthropic.max_tokens", 2048)
	v.SetDefault("anthropic.temperature", 0.3)
	v.SetDefault("anthropic.timeout", 60*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("streaming.replay_capacity", 256)

	v.SetDefault("advertiser", "Quiz")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Temporal.HostPort == "" {
		return fmt.Errorf("temporal.host_port is required")
	}
	if c.Redis.SessionTTL <= 0 {
		return fmt.Errorf("redis.session_ttl must be positive")
	}
	return nil
}
