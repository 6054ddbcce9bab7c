package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "grpc", cfg.Protocol)
	assert.Equal(t, "ragd", cfg.ServiceName)
	assert.Equal(t, "0.1.0", cfg.ServiceVersion)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, time.Duration(cfg.Metrics.ExportInterval))
	assert.Equal(t, 5*time.Second, time.Duration(cfg.Shutdown.Timeout))
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults enabled",
			mutate: func(c *Config) { c.Enabled = true },
		},
		{
			name:   "disabled skips validation",
			mutate: func(c *Config) { c.Endpoint = "" },
		},
		{
			name: "missing endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = ""
			},
			wantErr: "endpoint is required",
		},
		{
			name: "missing service name",
			mutate: func(c *Config) {
				c.Enabled = true
				c.ServiceName = ""
			},
			wantErr: "service_name is required",
		},
		{
			name: "missing service version",
			mutate: func(c *Config) {
				c.Enabled = true
				c.ServiceVersion = ""
			},
			wantErr: "service_version is required",
		},
		{
			name: "invalid protocol",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = "websocket"
			},
			wantErr: "unknown protocol",
		},
		{
			name: "http protocol accepted",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = "http/protobuf"
			},
		},
		{
			name: "empty protocol accepted",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Protocol = ""
			},
		},
		{
			name: "insecure remote endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = true
			},
			wantErr: "insecure connections to remote endpoints",
		},
		{
			name: "secure remote endpoint",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Endpoint = "collector.example.com:4317"
				c.Insecure = false
			},
		},
		{
			name: "sample rate too high",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Sampling.Rate = 1.5
			},
			wantErr: "sampling.rate",
		},
		{
			name: "sample rate negative",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Sampling.Rate = -0.1
			},
			wantErr: "sampling.rate",
		},
		{
			name: "zero metric interval",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Metrics.ExportInterval = 0
			},
			wantErr: "export_interval must be positive",
		},
		{
			name: "zero shutdown timeout",
			mutate: func(c *Config) {
				c.Enabled = true
				c.Shutdown.Timeout = 0
			},
			wantErr: "shutdown.timeout must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"localhost", true},
		{"127.0.0.1:4317", true},
		{"[::1]:4317", true},
		{"::1", true},
		{"0.0.0.0:4317", false},
		{"collector.example.com:4317", false},
		{"10.0.0.5:4317", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			cfg := &Config{Endpoint: tt.endpoint}
			assert.Equal(t, tt.want, cfg.isLocalEndpoint())
		})
	}
}
