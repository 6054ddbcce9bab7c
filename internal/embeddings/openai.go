package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"
)

// openAIModelDimensions maps OpenAI embedding models to their dimensions.
var openAIModelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// detectOpenAIDimension returns the dimension for an OpenAI embedding model,
// falling back to 1536 for unknown models.
func detectOpenAIDimension(model string) int {
	if dim, ok := openAIModelDimensions[model]; ok {
		return dim
	}
	return 1536
}

// OpenAIConfig holds configuration for the OpenAI-compatible provider.
type OpenAIConfig struct {
	// BaseURL is the API endpoint. Works for both the OpenAI API and any
	// OpenAI-compatible server.
	// Default: "https://api.openai.com/v1"
	BaseURL string

	// Model is the embedding model to use.
	// Default: "text-embedding-3-small"
	Model string

	// APIKey authenticates requests. Optional for keyless local servers.
	APIKey string

	// Dimension overrides dimension detection for models not in the
	// built-in table.
	Dimension int
}

// ApplyDefaults sets default values for unset fields.
func (c *OpenAIConfig) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "text-embedding-3-small"
	}
}

// OpenAIProvider generates embeddings through langchaingo's OpenAI client.
type OpenAIProvider struct {
	embedder  *embeddings.EmbedderImpl
	config    OpenAIConfig
	dimension int
	metrics   *Metrics
}

// NewOpenAIProvider creates a provider backed by an OpenAI-compatible API.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	config.ApplyDefaults()

	// langchaingo requires a token; use a placeholder for keyless servers.
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.BaseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	dimension := config.Dimension
	if dimension == 0 {
		dimension = detectOpenAIDimension(config.Model)
	}

	return &OpenAIProvider{
		embedder:  embedder,
		config:    config,
		dimension: dimension,
		metrics:   NewMetrics(zap.NewNop()),
	}, nil
}

// EmbedDocuments generates embeddings for multiple texts.
func (p *OpenAIProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		p.metrics.RecordGeneration(ctx, p.config.Model, "embed_documents", time.Since(start), len(texts), genErr)
	}()

	if len(texts) == 0 {
		genErr = fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		genErr = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		return nil, genErr
	}

	return vectors, nil
}

// EmbedQuery generates an embedding for a single query.
func (p *OpenAIProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	var genErr error
	defer func() {
		p.metrics.RecordGeneration(ctx, p.config.Model, "embed_query", time.Since(start), 1, genErr)
	}()

	if text == "" {
		genErr = fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
		return nil, genErr
	}

	vector, err := p.embedder.EmbedQuery(ctx, text)
	if err != nil {
		genErr = fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
		return nil, genErr
	}

	return vector, nil
}

// Dimension returns the embedding dimension for the configured model.
func (p *OpenAIProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op; the provider holds no resources beyond the HTTP client.
func (p *OpenAIProvider) Close() error {
	return nil
}

// Ensure OpenAIProvider implements Provider.
var _ Provider = (*OpenAIProvider)(nil)
