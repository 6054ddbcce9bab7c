package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// envPrefix namespaces ragd environment variables.
	envPrefix = "RAGD_"
)

// Load loads configuration from a YAML file, then overrides with environment
// variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (RAGD_SERVER_HTTP_PORT, RAGD_LLM_API_KEY, etc.)
//  2. YAML config file (~/.config/ragd/config.yaml)
//  3. Hardcoded defaults
//
// The configPath parameter specifies the YAML file to load. If empty, uses
// the default path ~/.config/ragd/config.yaml. A missing file is not an
// error; defaults and environment variables still apply.
//
// # Security Considerations
//
// File Permissions: Configuration file MUST have 0600 permissions (owner
// read/write only). Files with weaker permissions (e.g., 0644 world-readable)
// will be rejected, because the file may carry API keys.
//
// Path Validation: Only configuration files in allowed directories can be
// loaded:
//   - ~/.config/ragd/ (user's config directory)
//   - /etc/ragd/ (system-wide config directory)
//
// Absolute paths outside these directories are rejected to prevent path
// traversal attacks.
//
// File Size Limit: Configuration files larger than 1MB are rejected to
// prevent resource exhaustion attacks.
//
// # Environment Variable Mapping
//
// Environment variables carry the RAGD_ prefix, use underscore separator and
// are uppercased. The transformer maps variables to YAML field names by
// splitting on the first underscore after the prefix:
//
//	RAGD_SERVER_HTTP_PORT        -> server.http_port
//	RAGD_QUERY_CHUNK_SIZE        -> query.chunk_size
//	RAGD_LLM_API_KEY             -> llm.api_key
//	RAGD_EMBEDDING_PROVIDER      -> embedding.provider
//
// The unprefixed OPENAI_API_KEY is honored as a fallback for llm.api_key and
// embedding.api_key when those are unset.
//
// # Example
//
//	cfg, err := config.Load("") // Use default path
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Use default config path if not specified
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		configPath = filepath.Join(home, ".config", "ragd", "config.yaml")
	}

	// Validate config path (even if file doesn't exist)
	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	// Load from YAML file if it exists
	if _, err := os.Stat(configPath); err == nil {
		// Open file once and validate using file descriptor to avoid TOCTOU race
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		// Validate file properties using already-opened file descriptor
		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}

		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		// Read content from already-opened file
		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Use rawbytes provider to avoid re-opening the file
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Override with environment variables
	// Example: RAGD_SERVER_HTTP_PORT -> server.http_port
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		// Strip the prefix, then split on the first underscore only
		// (section.field_name pattern). Underscores inside the field
		// name are kept.
		lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(lower, "_", 2)

		if len(parts) == 1 {
			// No underscore: simple field (unlikely for config)
			return lower
		}

		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// EnsureConfigDir creates the ragd config directory if it doesn't exist.
// This is called during startup to ensure new users have the config directory
// ready. The directory is created with 0700 permissions (owner only).
func EnsureConfigDir() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(home, ".config", "ragd")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", configDir, err)
	}

	return nil
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	// Resolve to absolute path and follow symlinks to prevent path traversal
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Resolve symlinks so an attacker cannot escape the allowed directories
	// through a link placed inside them
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		// If symlink evaluation fails, continue with absPath
		// This allows validation of paths that don't exist yet
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "ragd"),
		"/etc/ragd",
	}

	allowed := false
	for _, dir := range allowedDirs {
		if strings.HasPrefix(resolvedPath, dir) {
			allowed = true
			break
		}
	}

	if !allowed {
		return fmt.Errorf("config file must be in ~/.config/ragd/ or /etc/ragd/")
	}

	return nil
}

// validateConfigFileProperties checks file permissions and size.
// Takes FileInfo from an already-opened file descriptor to avoid TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	// Check file permissions (must be 0600 or 0400)
	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	// Check file size (max 1MB)
	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	// Store defaults (chromem is embedded, no external deps)
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = "chromem"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.config/ragd/vectorstore"
	}

	// Embedding defaults
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "openai"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "fastembed":
			cfg.Embedding.Model = "BAAI/bge-small-en-v1.5"
		default:
			cfg.Embedding.Model = "text-embedding-3-small"
		}
	}

	// LLM defaults
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.openai.com"
	}
	if cfg.LLM.GenerationModel == "" {
		cfg.LLM.GenerationModel = "gpt-4o"
	}
	if cfg.LLM.ReasoningModel == "" {
		cfg.LLM.ReasoningModel = "o1-mini"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = Duration(60 * time.Second)
	}

	// Query pipeline defaults
	if cfg.Query.ChunkSize == 0 {
		cfg.Query.ChunkSize = 1000
	}
	if cfg.Query.ChunkOverlap == 0 {
		cfg.Query.ChunkOverlap = 200
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 5
	}
	if cfg.Query.MaxAttempts == 0 {
		cfg.Query.MaxAttempts = 5
	}
	if cfg.Query.ConfidenceThreshold == 0 {
		cfg.Query.ConfidenceThreshold = 0.8
	}

	// Telemetry defaults (disabled until a collector is configured)
	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
		cfg.Telemetry.Insecure = true
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "ragd"
	}
	if cfg.Telemetry.SampleRate == 0 {
		cfg.Telemetry.SampleRate = 1.0
	}

	// The single OPENAI_API_KEY that the rest of the OpenAI tooling uses
	// serves both clients unless overridden per section.
	if !cfg.LLM.APIKey.IsSet() {
		cfg.LLM.APIKey = Secret(os.Getenv("OPENAI_API_KEY"))
	}
	if !cfg.Embedding.APIKey.IsSet() && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.APIKey = cfg.LLM.APIKey
	}
}
