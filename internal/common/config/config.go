// internal/common/config/config.go
package config

import "fmt"

// Config is the main client configuration struct.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	API     APIConfig     `mapstructure:"api"`
	Session SessionConfig `mapstructure:"session"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// APIConfig describes the deal analysis backend.
type APIConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
	UserAgent string `mapstructure:"user_agent"`
}

const (
	TokenStoreFile  = "file"
	TokenStoreRedis = "redis"
)

// SessionConfig selects where the access/refresh pair is persisted.
type SessionConfig struct {
	TokenStore string `mapstructure:"token_store"`
	TokenFile  string `mapstructure:"token_file"`
	RedisKey   string `mapstructure:"redis_key"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

func (r RedisConfig) String() string {
	return fmt.Sprintf("redis://%s/%d", r.Address, r.DB)
}
