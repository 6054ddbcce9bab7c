package embeddings

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder
	// Dimension returns the embedding dimension for the current model.
	Dimension() int
	// Close releases resources held by the provider.
	Close() error
}

// ProviderConfig holds configuration for creating an embedding provider.
type ProviderConfig struct {
	// Provider is the provider type: "openai" (default) or "fastembed".
	Provider string
	// Model is the embedding model name.
	Model string
	// BaseURL overrides the OpenAI-compatible endpoint (openai provider only).
	BaseURL string
	// APIKey authenticates against the endpoint (openai provider only).
	APIKey string
	// Dimension overrides dimension detection for models not in the
	// built-in tables (openai provider only).
	Dimension int
	// CacheDir is the model cache directory (fastembed provider only).
	CacheDir string
}

// DetectDimension reports the embedding dimension NewProvider would yield for
// the given configuration, without constructing the provider. Useful for
// validating configuration before model download or network calls.
func DetectDimension(cfg ProviderConfig) int {
	switch cfg.Provider {
	case "fastembed":
		if dim, ok := fastEmbedModelDimension(cfg.Model); ok {
			return dim
		}
		return 384
	default:
		if cfg.Dimension > 0 {
			return cfg.Dimension
		}
		return detectOpenAIDimension(cfg.Model)
	}
}

// NewProvider creates an embedding provider based on the configuration.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL:   cfg.BaseURL,
			Model:     cfg.Model,
			APIKey:    cfg.APIKey,
			Dimension: cfg.Dimension,
		})
	case "fastembed":
		return NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
}
