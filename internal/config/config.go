// Package config provides configuration loading for ragd.
//
// Configuration is loaded from an optional YAML file and overridden by
// RAGD_-prefixed environment variables. This package covers the HTTP
// server, logging, vector storage, embeddings, LLM access, the query
// pipeline, and telemetry.
package config

import (
	"errors"
	"fmt"
	"strings"
)

// Config holds the complete ragd configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	LLM       LLMConfig       `koanf:"llm"`
	Query     QueryConfig     `koanf:"query"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds structured logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// StoreConfig holds vector store persistence configuration.
//
// The embedded chromem backend persists under Path; the qdrant backend
// connects to an external server over gRPC and ignores Path.
type StoreConfig struct {
	Backend  string `koanf:"backend"` // chromem (default) or qdrant
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
	Host     string `koanf:"host"`    // qdrant gRPC host
	Port     int    `koanf:"port"`    // qdrant gRPC port, not the HTTP port
	APIKey   Secret `koanf:"api_key"` // qdrant cloud API key
	UseTLS   bool   `koanf:"use_tls"`
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	Provider  string `koanf:"provider"` // openai (default) or fastembed
	Model     string `koanf:"model"`
	BaseURL   string `koanf:"base_url"`
	APIKey    Secret `koanf:"api_key"`
	Dimension int    `koanf:"dimension"` // overrides detection for unknown models
	CacheDir  string `koanf:"cache_dir"` // fastembed model cache
}

// LLMConfig holds chat completion configuration.
type LLMConfig struct {
	BaseURL         string   `koanf:"base_url"`
	APIKey          Secret   `koanf:"api_key"`
	GenerationModel string   `koanf:"generation_model"`
	ReasoningModel  string   `koanf:"reasoning_model"`
	Timeout         Duration `koanf:"timeout"`
}

// QueryConfig holds the knobs for the ingestion and query pipeline.
type QueryConfig struct {
	ChunkSize           int     `koanf:"chunk_size"`
	ChunkOverlap        int     `koanf:"chunk_overlap"`
	TopK                int     `koanf:"top_k"`
	MaxAttempts         int     `koanf:"max_attempts"`
	ConfidenceThreshold float64 `koanf:"confidence_threshold"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"` // grpc or http/protobuf
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Logging level or format is unknown
//   - Store backend is unknown, the chromem path is blank, or the qdrant
//     port is out of range
//   - Embedding provider is unknown
//   - LLM models are missing or the timeout is not positive
//   - Chunk overlap is not smaller than chunk size
//   - Retrieval and verification knobs are out of range
//   - Telemetry is enabled without an endpoint or service name
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	// Logging
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging level: %q (expected debug, info, warn or error)", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format: %q (expected json or console)", c.Logging.Format)
	}

	// Store
	switch c.Store.Backend {
	case "chromem":
		if strings.TrimSpace(c.Store.Path) == "" {
			return errors.New("store path must not be blank")
		}
	case "qdrant":
		// Port 0 falls back to the store's default gRPC port.
		if c.Store.Port < 0 || c.Store.Port > 65535 {
			return fmt.Errorf("invalid store port: %d (must be 1-65535)", c.Store.Port)
		}
	default:
		return fmt.Errorf("unknown store backend: %q (expected chromem or qdrant)", c.Store.Backend)
	}

	// Embedding
	switch c.Embedding.Provider {
	case "openai", "fastembed":
	default:
		return fmt.Errorf("unknown embedding provider: %q (expected openai or fastembed)", c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding dimension must not be negative: %d", c.Embedding.Dimension)
	}

	// LLM
	if c.LLM.GenerationModel == "" {
		return errors.New("llm generation model is required")
	}
	if c.LLM.ReasoningModel == "" {
		return errors.New("llm reasoning model is required")
	}
	if c.LLM.Timeout <= 0 {
		return errors.New("llm timeout must be positive")
	}

	// Query pipeline
	if c.Query.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be positive: %d", c.Query.ChunkSize)
	}
	if c.Query.ChunkOverlap < 0 {
		return fmt.Errorf("chunk overlap must not be negative: %d", c.Query.ChunkOverlap)
	}
	if c.Query.ChunkOverlap >= c.Query.ChunkSize {
		return fmt.Errorf("chunk overlap (%d) must be smaller than chunk size (%d)", c.Query.ChunkOverlap, c.Query.ChunkSize)
	}
	if c.Query.TopK < 1 {
		return fmt.Errorf("top_k must be at least 1: %d", c.Query.TopK)
	}
	if c.Query.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1: %d", c.Query.MaxAttempts)
	}
	if c.Query.ConfidenceThreshold <= 0 || c.Query.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in (0, 1]: %g", c.Query.ConfidenceThreshold)
	}

	// Telemetry
	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return errors.New("telemetry endpoint is required when telemetry is enabled")
		}
		if c.Telemetry.ServiceName == "" {
			return errors.New("telemetry service name is required when telemetry is enabled")
		}
	}
	switch c.Telemetry.Protocol {
	case "grpc", "http/protobuf":
	default:
		return fmt.Errorf("unknown telemetry protocol: %q (expected grpc or http/protobuf)", c.Telemetry.Protocol)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return fmt.Errorf("telemetry sample rate must be between 0 and 1, got %g", c.Telemetry.SampleRate)
	}

	return nil
}
