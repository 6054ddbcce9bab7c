package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/sanitize"
)

// chromemTracer for OpenTelemetry instrumentation.
var chromemTracer = otel.Tracer("ragd.vectorstore.chromem")

// ChromemConfig holds configuration for the chromem-go embedded vector database.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/ragd/vectorstore"
	Path string

	// Compress enables gzip compression for stored data.
	// Note: This defaults to false (Go zero value). Set explicitly if compression is desired.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "~/.config/ragd/vectorstore"
	}
}

// Validate validates the configuration.
func (c *ChromemConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("%w: path must not be blank", ErrInvalidConfig)
	}
	return nil
}

// ChromemStore implements the Store interface using chromem-go.
//
// chromem-go is an embeddable vector database with zero third-party
// dependencies: pure Go, no external service, automatic persistence to gob
// files. Each disease gets its own collection, created lazily on first write.
type ChromemStore struct {
	db       *chromem.DB
	embedder Embedder
	config   ChromemConfig
	logger   *zap.Logger
	metrics  *Metrics

	// mu guards collection creation and the display name registry, so that
	// concurrent first use of a disease name yields a single collection.
	mu    sync.Mutex
	names *nameRegistry
}

// NewChromemStore creates a new ChromemStore with the given configuration.
func NewChromemStore(config ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	expandedPath, err := expandStoragePath(config.Path)
	if err != nil {
		return nil, fmt.Errorf("expanding path: %w", err)
	}

	if err := os.MkdirAll(expandedPath, 0755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", expandedPath, err)
	}

	db, err := chromem.NewPersistentDB(expandedPath, config.Compress)
	if err != nil {
		return nil, fmt.Errorf("creating chromem DB: %w", err)
	}

	names, err := loadNameRegistry(expandedPath)
	if err != nil {
		// A lost registry only degrades display names, never data.
		logger.Warn("display name registry unreadable, starting empty", zap.Error(err))
		names = newNameRegistry(expandedPath)
	}

	store := &ChromemStore{
		db:       db,
		embedder: embedder,
		config:   config,
		logger:   logger,
		metrics:  NewMetrics("chromem", logger),
		names:    names,
	}

	existing := make(map[string]bool)
	for name := range db.ListCollections() {
		existing[name] = true
	}
	if names.prune(existing) {
		if err := names.save(); err != nil {
			logger.Warn("saving display name registry", zap.Error(err))
		}
	}

	logger.Info("chromem store initialized",
		zap.String("path", expandedPath),
		zap.Bool("compress", config.Compress),
		zap.Int("collections", len(existing)),
	)

	return store, nil
}

// expandStoragePath expands ~ to home directory.
func expandStoragePath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// embeddingFunc adapts the store's Embedder for chromem, which uses it to
// embed query text.
func (s *ChromemStore) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.EmbedQuery(ctx, text)
	}
}

// chunkKey builds the storage key for one chunk of a document.
func chunkKey(documentID string, chunkID int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkID)
}

// collectionFor maps a disease name to its collection, or nil if absent.
func (s *ChromemStore) collectionFor(disease string) *chromem.Collection {
	return s.db.GetCollection(sanitize.CollectionName(disease), s.embeddingFunc())
}

// getOrCreateCollection returns the collection for a disease, creating it if
// absent. Creation is serialized so concurrent first use of the same disease
// name resolves to one collection, and the display name is recorded on first
// creation.
func (s *ChromemStore) getOrCreateCollection(disease string) (*chromem.Collection, string, error) {
	if strings.TrimSpace(disease) == "" {
		return nil, "", fmt.Errorf("%w: disease name must not be blank", ErrInvalidCollectionName)
	}
	name := sanitize.CollectionName(disease)

	s.mu.Lock()
	defer s.mu.Unlock()

	collection, err := s.db.GetOrCreateCollection(name, map[string]string{metaDisease: disease}, s.embeddingFunc())
	if err != nil {
		return nil, "", fmt.Errorf("getting/creating collection %s: %w", name, err)
	}

	if s.names.set(name, disease) {
		if err := s.names.save(); err != nil {
			s.logger.Warn("saving display name registry", zap.Error(err))
		}
	}

	return collection, name, nil
}

// UpsertChunks embeds and stores the chunks of one document.
func (s *ChromemStore) UpsertChunks(ctx context.Context, disease, documentID, filename string, chunks []chunker.Chunk) (_ int, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.UpsertChunks")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "upsert_chunks", name, time.Since(start), err) }()

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.Int("chunk_count", len(chunks)),
		attribute.String("collection", name),
	)

	if len(chunks) == 0 {
		return 0, ErrEmptyChunks
	}
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("document id must not be blank")
	}

	collection, _, err := s.getOrCreateCollection(disease)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// Embed the whole batch up front; an embedding failure inserts nothing.
	embeddings, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("%w: got %d embeddings for %d chunks", ErrEmbeddingFailed, len(embeddings), len(chunks))
	}

	// Insert one chunk at a time so a mid-batch failure leaves the earlier
	// chunks retrievable and the returned count exact.
	for i, chunk := range chunks {
		doc := chromem.Document{
			ID:      chunkKey(documentID, chunk.ID),
			Content: chunk.Text,
			Metadata: map[string]string{
				metaDocumentID: documentID,
				metaFilename:   filename,
				metaChunkID:    strconv.Itoa(chunk.ID),
				metaCharCount:  strconv.Itoa(chunk.CharCount),
				metaDisease:    disease,
			},
			Embedding: embeddings[i],
		}
		if err := collection.AddDocument(ctx, doc); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn("partial document insert",
				zap.String("collection", name),
				zap.String("document_id", documentID),
				zap.Int("inserted", i),
				zap.Int("total", len(chunks)),
				zap.Error(err),
			)
			return i, fmt.Errorf("adding chunk %d of document %s: %w", chunk.ID, documentID, err)
		}
	}

	span.SetAttributes(attribute.Int("chunks_added", len(chunks)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("added document chunks",
		zap.String("collection", name),
		zap.String("document_id", documentID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
	)

	return len(chunks), nil
}

// Search performs similarity search in a disease collection.
func (s *ChromemStore) Search(ctx context.Context, disease, query string, topK int) (_ []SearchResult, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Search")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "search", name, time.Since(start), err) }()

	span.SetAttributes(
		attribute.Int("top_k", topK),
		attribute.String("collection", name),
	)

	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK < 1 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}

	collection := s.collectionFor(disease)
	if collection == nil {
		span.SetStatus(codes.Ok, "collection absent")
		return []SearchResult{}, nil
	}

	count := collection.Count()
	if count == 0 {
		span.SetStatus(codes.Ok, "collection empty")
		return []SearchResult{}, nil
	}

	// chromem requires k <= document count.
	k := topK
	if k > count {
		k = count
	}

	results, err := collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying collection %s: %w", name, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, r := range results {
		searchResults[i] = resultFromChromem(r)
	}

	span.SetAttributes(attribute.Int("results_count", len(searchResults)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("searched collection",
		zap.String("collection", name),
		zap.Int("k", k),
		zap.Int("results", len(searchResults)),
	)

	return searchResults, nil
}

// resultFromChromem converts a chromem result into a SearchResult.
// chromem's Similarity is already 1 - cosine distance.
func resultFromChromem(r chromem.Result) SearchResult {
	chunkID, _ := strconv.Atoi(r.Metadata[metaChunkID])
	return SearchResult{
		ID:         r.ID,
		Content:    r.Content,
		Score:      r.Similarity,
		DocumentID: r.Metadata[metaDocumentID],
		Filename:   r.Metadata[metaFilename],
		ChunkID:    chunkID,
	}
}

// DeleteDocument removes every chunk of one document from a disease collection.
func (s *ChromemStore) DeleteDocument(ctx context.Context, disease, documentID string) (_ bool, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteDocument")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "delete_document", name, time.Since(start), err) }()

	span.SetAttributes(
		attribute.String("document_id", documentID),
		attribute.String("collection", name),
	)

	if strings.TrimSpace(documentID) == "" {
		return false, fmt.Errorf("document id must not be blank")
	}

	collection := s.collectionFor(disease)
	if collection == nil {
		span.SetStatus(codes.Ok, "collection absent")
		return false, nil
	}

	before := collection.Count()
	if err := collection.Delete(ctx, map[string]string{metaDocumentID: documentID}, nil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("deleting document %s from %s: %w", documentID, name, err)
	}
	removed := collection.Count() < before

	span.SetAttributes(
		attribute.Bool("removed", removed),
		attribute.Int("chunks_removed", before-collection.Count()),
	)
	span.SetStatus(codes.Ok, "success")

	if removed {
		s.logger.Info("deleted document",
			zap.String("collection", name),
			zap.String("document_id", documentID),
			zap.Int("chunks_removed", before-collection.Count()),
		)
	}

	return removed, nil
}

// Documents derives the unique documents of a disease by scanning chunk
// metadata. chromem has no listing API, so the scan queries the whole
// collection (k equal to the chunk count) and aggregates document ids.
func (s *ChromemStore) Documents(ctx context.Context, disease string) (_ []DocumentInfo, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Documents")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "documents", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	collection := s.collectionFor(disease)
	if collection == nil {
		span.SetStatus(codes.Ok, "collection absent")
		return []DocumentInfo{}, nil
	}

	count := collection.Count()
	if count == 0 {
		span.SetStatus(codes.Ok, "collection empty")
		return []DocumentInfo{}, nil
	}

	results, err := collection.Query(ctx, name, count, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scanning collection %s: %w", name, err)
	}

	byID := make(map[string]*DocumentInfo)
	for _, r := range results {
		id := r.Metadata[metaDocumentID]
		if id == "" {
			continue
		}
		info, ok := byID[id]
		if !ok {
			info = &DocumentInfo{DocumentID: id, Filename: r.Metadata[metaFilename]}
			byID[id] = info
		}
		info.ChunkCount++
	}

	docs := make([]DocumentInfo, 0, len(byID))
	for _, info := range byID {
		docs = append(docs, *info)
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].Filename != docs[j].Filename {
			return docs[i].Filename < docs[j].Filename
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})

	span.SetAttributes(attribute.Int("documents_count", len(docs)))
	span.SetStatus(codes.Ok, "success")

	return docs, nil
}

// CreateCollection creates the collection for a disease. Idempotent.
func (s *ChromemStore) CreateCollection(ctx context.Context, disease string) (err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.CreateCollection")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "create_collection", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	if _, _, err = s.getOrCreateCollection(disease); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Info("created collection",
		zap.String("collection", name),
		zap.String("disease", disease),
	)

	return nil
}

// DeleteCollection deletes a disease collection and all its chunks.
func (s *ChromemStore) DeleteCollection(ctx context.Context, disease string) (_ bool, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.DeleteCollection")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "delete_collection", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db.GetCollection(name, s.embeddingFunc()) == nil {
		span.SetStatus(codes.Ok, "collection absent")
		return false, nil
	}

	if err := s.db.DeleteCollection(name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("deleting collection %s: %w", name, err)
	}

	if s.names.remove(name) {
		if err := s.names.save(); err != nil {
			s.logger.Warn("saving display name registry", zap.Error(err))
		}
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Info("deleted collection",
		zap.String("collection", name),
	)

	return true, nil
}

// ListCollections returns all disease collections ordered by name.
func (s *ChromemStore) ListCollections(ctx context.Context) (_ []CollectionInfo, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.ListCollections")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "list_collections", "", time.Since(start), err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	collections := s.db.ListCollections()
	infos := make([]CollectionInfo, 0, len(collections))
	for name, collection := range collections {
		infos = append(infos, CollectionInfo{
			Name:        name,
			DisplayName: s.names.displayName(name),
			ChunkCount:  collection.Count(),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	span.SetAttributes(attribute.Int("collection_count", len(infos)))
	span.SetStatus(codes.Ok, "success")

	return infos, nil
}

// Count returns the number of chunks stored for a disease.
func (s *ChromemStore) Count(ctx context.Context, disease string) (_ int, err error) {
	ctx, span := chromemTracer.Start(ctx, "ChromemStore.Count")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "count", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	collection := s.collectionFor(disease)
	if collection == nil {
		span.SetStatus(codes.Error, "collection not found")
		return 0, ErrCollectionNotFound
	}

	count := collection.Count()
	span.SetAttributes(attribute.Int("chunk_count", count))
	span.SetStatus(codes.Ok, "success")

	return count, nil
}

// Close closes the ChromemStore.
// Note: chromem-go handles persistence automatically, no explicit close needed.
func (s *ChromemStore) Close() error {
	s.logger.Info("chromem store closed")
	return nil
}

// Ensure ChromemStore implements Store interface.
var _ Store = (*ChromemStore)(nil)
