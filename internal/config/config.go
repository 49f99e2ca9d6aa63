// Package config loads server settings from defaults, an optional config file,
// a .env file and FLIGHTSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "FLIGHTSIM"

// Transports
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Cache backends
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheNone   = "none"
)

// Config holds all configuration values
type Config struct {
	Env        string           `mapstructure:"env"`
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Generator  GeneratorConfig  `mapstructure:"generator"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Inventory  InventoryConfig  `mapstructure:"inventory"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Payment    PaymentConfig    `mapstructure:"payment"`
}

type ServerConfig struct {
	Name            string `mapstructure:"name"`
	Version         string `mapstructure:"version"`
	Transport       string `mapstructure:"transport"`
	HTTPAddr        string `mapstructure:"http_addr"`
	RateLimitPerMin int    `mapstructure:"rate_limit_per_min"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type GeneratorConfig struct {
	Days int   `mapstructure:"days"`
	Seed int64 `mapstructure:"seed"`
}

type SimulationConfig struct {
	DelayProbability float64 `mapstructure:"delay_probability"`
	Schedule         string  `mapstructure:"schedule"`
}

// InventoryConfig toggles seat reconciliation on cancel and modify
type InventoryConfig struct {
	Reconcile bool `mapstructure:"reconcile"`
}

type CacheConfig struct {
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

type PaymentConfig struct {
	FailureRate float64 `mapstructure:"failure_rate"`
}

// SetDefaults registers every key so environment overrides resolve during Unmarshal
func SetDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("server.name", "flight-simulator")
	v.SetDefault("server.version", "0.1.0")
	v.SetDefault("server.transport", TransportStdio)
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.rate_limit_per_min", 600)
	v.SetDefault("log.level", "info")
	v.SetDefault("generator.days", 30)
	v.SetDefault("generator.seed", 0)
	v.SetDefault("simulation.delay_probability", 0.1)
	v.SetDefault("simulation.schedule", "@every 1m")
	v.SetDefault("inventory.reconcile", false)
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", 2*time.Hour)
	v.SetDefault("payment.failure_rate", 0.0)
}

// Load reads configuration into v. envFile is loaded first when set; otherwise a
// .env in the working directory is picked up if present. configFile, when empty,
// falls back to an optional config.yaml in . or ./config.
func Load(v *viper.Viper, envFile, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	switch c.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		return fmt.Errorf("server.transport must be one of: stdio, http")
	}
	if c.Server.Transport == TransportHTTP && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required for the http transport")
	}
	if c.Server.RateLimitPerMin < 0 {
		return fmt.Errorf("server.rate_limit_per_min must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}
	if c.Generator.Days <= 0 {
		return fmt.Errorf("generator.days must be positive")
	}
	if c.Simulation.DelayProbability < 0 || c.Simulation.DelayProbability > 1 {
		return fmt.Errorf("simulation.delay_probability must be within [0,1]")
	}
	if c.Simulation.Schedule == "" {
		return fmt.Errorf("simulation.schedule is required")
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheNone:
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be one of: memory, redis, none")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Payment.FailureRate < 0 || c.Payment.FailureRate > 1 {
		return fmt.Errorf("payment.failure_rate must be within [0,1]")
	}
	return nil
}
