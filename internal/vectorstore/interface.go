// Package vectorstore provides per-disease vector storage for document chunks.
package vectorstore

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
)

// Sentinel errors for vector store operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyChunks indicates an upsert with no chunks.
	ErrEmptyChunks = errors.New("empty or nil chunks")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates a disease name that cannot be mapped
	// to a collection name.
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

// Embedder generates vector embeddings from text.
//
// Embeddings are dense numerical representations that capture semantic meaning,
// enabling similarity search. Implementations can use local models (FastEmbed)
// or OpenAI-compatible APIs.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	// Returns a slice of embeddings (one per input text) or an error.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	// Some models optimize differently for queries vs documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the interface for per-disease chunk storage and similarity search.
//
// Each disease maps to exactly one collection. Disease names are normalized to
// collection names by sanitize.CollectionName; every method accepts the
// human-readable disease name and performs the mapping itself, so callers
// never handle sanitized names directly.
//
// Implementations:
//   - ChromemStore: embedded chromem-go (default)
//   - QdrantStore: external Qdrant server over gRPC
type Store interface {
	// UpsertChunks embeds and stores the chunks of one document.
	//
	// The collection for the disease is created lazily if absent. Each chunk
	// is stored under the key "{documentID}_chunk_{chunkID}" with metadata
	// identifying its document, filename and disease.
	//
	// Returns the number of chunks actually inserted. On a mid-batch insert
	// failure the already inserted chunks remain retrievable and the count
	// reflects them; the caller owns any retry or cleanup of the partial
	// document.
	UpsertChunks(ctx context.Context, disease, documentID, filename string, chunks []chunker.Chunk) (int, error)

	// Search returns up to min(topK, chunk count) chunks ranked by descending
	// similarity. A missing or empty collection yields an empty slice, not an
	// error.
	Search(ctx context.Context, disease, query string, topK int) ([]SearchResult, error)

	// DeleteDocument removes every chunk whose metadata references the given
	// document id, leaving all other chunks untouched. Reports whether any
	// chunks were removed.
	DeleteDocument(ctx context.Context, disease, documentID string) (bool, error)

	// Documents derives the unique documents of a disease by scanning chunk
	// metadata. A missing collection yields an empty slice.
	Documents(ctx context.Context, disease string) ([]DocumentInfo, error)

	// CreateCollection creates the collection for a disease, recording the
	// human-readable name as its display name. Creating an existing
	// collection is a no-op.
	CreateCollection(ctx context.Context, disease string) error

	// DeleteCollection deletes a disease collection and all its chunks.
	// Reports whether the collection existed.
	DeleteCollection(ctx context.Context, disease string) (bool, error)

	// ListCollections returns all disease collections with their display
	// names and chunk counts, ordered by collection name.
	ListCollections(ctx context.Context) ([]CollectionInfo, error)

	// Count returns the number of chunks stored for a disease.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	Count(ctx context.Context, disease string) (int, error)

	// Close closes the vector store and releases resources.
	Close() error
}
