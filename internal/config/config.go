package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all configuration for the graph execution engine
type Config struct {
	// Server configuration
	HTTPPort int    `env:"FLOWFORGE_HTTP_PORT" envDefault:"8080"`
	GRPCPort int    `env:"FLOWFORGE_GRPC_PORT" envDefault:"9090"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis configuration
	Redis RedisConfig

	// LLM configuration
	LLM LLMConfig

	// Engine configuration
	Engine EngineConfig

	// Event configuration
	Events EventConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// LLMConfig holds LLM provider configuration
type LLMConfig struct {
	Provider string `env:"LLM_PROVIDER" envDefault:"anthropic"`
	APIKey   string `env:"LLM_API_KEY"`

	// Default model settings
	DefaultModel     string `env:"LLM_DEFAULT_MODEL" envDefault:"claude-sonnet-4-20250514"`
	DefaultMaxTokens int    `env:"LLM_DEFAULT_MAX_TOKENS" envDefault:"1024"`
}

// EngineConfig holds execution engine limits
type EngineConfig struct {
	MaxParallelNodes int `env:"ENGINE_MAX_PARALLEL_NODES" envDefault:"4"`

	// Process-wide resource budget shared by concurrent executions
	TotalMemoryMB   float64 `env:"ENGINE_TOTAL_MEMORY_MB" envDefault:"8192"`
	TotalCPUPercent float64 `env:"ENGINE_TOTAL_CPU_PERCENT" envDefault:"800"`
	TotalTokens     float64 `env:"ENGINE_TOTAL_TOKENS" envDefault:"1000000"`
}

// EventConfig holds event store and relay configuration
type EventConfig struct {
	// UseRedis stores events in Redis instead of process memory
	UseRedis bool `env:"EVENTS_USE_REDIS" envDefault:"false"`
	// RelayToRedis mirrors bus events onto Redis Streams
	RelayToRedis  bool          `env:"EVENTS_RELAY_TO_REDIS" envDefault:"false"`
	Retention     time.Duration `env:"EVENTS_RETENTION" envDefault:"168h"`
	SweepInterval time.Duration `env:"EVENTS_SWEEP_INTERVAL" envDefault:"1h"`
	StoreTTL      time.Duration `env:"EVENTS_STORE_TTL" envDefault:"168h"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ToolRequestTimeout  time.Duration `env:"TIMEOUT_TOOL_REQUEST" envDefault:"30s"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`
	ShutdownTimeout     time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 1 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}

	if c.Redis.Addr == "" {
		return fmt.Errorf("redis address is required")
	}

	if c.LLM.Provider != "anthropic" {
		return fmt.Errorf("unsupported LLM provider: %s (only 'anthropic' is supported)", c.LLM.Provider)
	}

	if c.Engine.MaxParallelNodes < 1 {
		return fmt.Errorf("max parallel nodes must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return fmt.Sprintf(":%d", c.GRPCPort)
}
