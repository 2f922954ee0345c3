package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		HTTPPort: 8080,
		GRPCPort: 9090,
		LogLevel: "info",
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		LLM: LLMConfig{
			Provider: "anthropic",
		},
		Engine: EngineConfig{
			MaxParallelNodes: 4,
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "http port out of range",
			mutate:  func(c *Config) { c.HTTPPort = 0 },
			wantErr: "invalid HTTP port",
		},
		{
			name:    "grpc port out of range",
			mutate:  func(c *Config) { c.GRPCPort = 70000 },
			wantErr: "invalid gRPC port",
		},
		{
			name:    "missing redis address",
			mutate:  func(c *Config) { c.Redis.Addr = "" },
			wantErr: "redis address is required",
		},
		{
			name:    "unsupported llm provider",
			mutate:  func(c *Config) { c.LLM.Provider = "openai" },
			wantErr: "unsupported LLM provider",
		},
		{
			name:    "zero parallel nodes",
			mutate:  func(c *Config) { c.Engine.MaxParallelNodes = 0 },
			wantErr: "max parallel nodes",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.LogLevel = "verbose" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadUsesEnvironmentOverrides(t *testing.T) {
	t.Setenv("FLOWFORGE_HTTP_PORT", "8181")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ENGINE_MAX_PARALLEL_NODES", "8")
	t.Setenv("EVENTS_USE_REDIS", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.HTTPPort)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8, cfg.Engine.MaxParallelNodes)
	assert.True(t, cfg.Events.UseRedis)
	assert.Equal(t, ":8181", cfg.GetHTTPAddr())
	assert.Equal(t, ":9090", cfg.GetGRPCAddr())
}
