package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/sanitize"
)

// qdrantTracer for OpenTelemetry instrumentation.
var qdrantTracer = otel.Tracer("ragd.vectorstore.qdrant")

// scrollPageLimit caps one-shot collection scans. Collections here hold the
// chunks of a handful of documents, well below this bound.
const scrollPageLimit = 16384

// QdrantConfig holds configuration for the Qdrant gRPC client.
type QdrantConfig struct {
	// Host is the Qdrant server hostname or IP address.
	// Default: "localhost"
	Host string

	// Port is the Qdrant gRPC port (NOT HTTP REST port).
	// Default: 6334 (gRPC), not 6333 (HTTP)
	Port int

	// APIKey authenticates against a managed Qdrant instance. Empty for
	// unauthenticated local servers.
	APIKey string

	// UseTLS enables TLS encryption for the gRPC connection.
	UseTLS bool

	// VectorSize is the dimensionality of embeddings.
	// MUST match Embedder output dimensions.
	VectorSize int

	// MaxRetries is the maximum number of retry attempts for transient failures.
	// Default: 3
	MaxRetries int

	// RetryBackoff is the initial backoff duration for retries.
	// Doubles on each retry.
	// Default: 1 second
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB
	MaxMessageSize int
}

// ApplyDefaults sets default values for unset fields.
func (c *QdrantConfig) ApplyDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 6334
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024 // 50MB
	}
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize <= 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// isTransientError checks if an error is transient (should retry).
// Returns true for network timeouts and temporary unavailability,
// false for invalid arguments, not found, permission denied.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	st, ok := status.FromError(err)
	if !ok {
		return false
	}

	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

// isNotFound reports whether a gRPC error carries the NotFound code.
func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// QdrantStore implements the Store interface against a Qdrant server.
//
// The store speaks Qdrant's native gRPC transport (port 6334), avoiding the
// HTTP layer's payload limits. Each disease maps to one Qdrant collection;
// chunk metadata lives in point payloads so documents can be listed and
// deleted by payload filter. A remote store keeps no display name registry,
// so DisplayName falls back to the sanitized collection name.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger
	metrics  *Metrics

	// collections caches collection existence to avoid repeated checks.
	collections sync.Map
}

// NewQdrantStore creates a new QdrantStore with the given configuration.
//
// Connects to the server, performs a health check and returns a
// ready-to-use store.
func NewQdrantStore(config QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
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

	if !config.UseTLS {
		logger.Warn("qdrant gRPC using plaintext, insecure for production",
			zap.String("host", config.Host),
			zap.Int("port", config.Port),
		)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		APIKey: config.APIKey,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("creating qdrant client: %w", err)
	}

	store := &QdrantStore{
		client:   client,
		embedder: embedder,
		config:   config,
		logger:   logger,
		metrics:  NewMetrics("qdrant", logger),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.healthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}

	logger.Info("qdrant store initialized",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Int("vector_size", config.VectorSize),
	)

	return store, nil
}

// healthCheck performs a health check on the Qdrant connection.
func (s *QdrantStore) healthCheck(ctx context.Context) error {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.HealthCheck")
	defer span.End()

	if _, err := s.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// retryOperation retries an operation with exponential backoff.
// Permanent errors return immediately.
func (s *QdrantStore) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := s.config.RetryBackoff

	for attempt := 0; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if !isTransientError(err) {
			return fmt.Errorf("%s: %w", operationName, err)
		}

		if attempt == s.config.MaxRetries {
			return fmt.Errorf("%s failed after %d retries: %w", operationName, s.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// collectionExists checks for a collection, consulting the existence cache
// first.
func (s *QdrantStore) collectionExists(ctx context.Context, name string) (bool, error) {
	if _, ok := s.collections.Load(name); ok {
		return true, nil
	}

	var exists bool
	err := s.retryOperation(ctx, "collection_exists", func() error {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			if isNotFound(err) {
				exists = false
				return nil
			}
			return err
		}
		exists = info != nil
		return nil
	})
	if err != nil {
		return false, err
	}

	if exists {
		s.collections.Store(name, true)
	}
	return exists, nil
}

// ensureCollection creates the collection if it does not exist. A creation
// race with another writer resolves to the surviving collection.
func (s *QdrantStore) ensureCollection(ctx context.Context, name string) error {
	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.retryOperation(ctx, "create_collection", func() error {
		return s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(s.config.VectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
	})
	if err != nil {
		// Concurrent creation loses the race but the collection is there.
		if exists, checkErr := s.collectionExists(ctx, name); checkErr == nil && exists {
			return nil
		}
		return err
	}

	s.collections.Store(name, true)
	return nil
}

// pointsCount returns the exact point count of a collection.
func (s *QdrantStore) pointsCount(ctx context.Context, name string) (int, error) {
	var count int
	err := s.retryOperation(ctx, "collection_info", func() error {
		info, err := s.client.GetCollectionInfo(ctx, name)
		if err != nil {
			if isNotFound(err) {
				return ErrCollectionNotFound
			}
			return err
		}
		if info.PointsCount != nil {
			count = int(*info.PointsCount)
		}
		return nil
	})
	return count, err
}

// pointID derives a stable Qdrant point id from the chunk key, so upserting
// the same document again overwrites its chunks instead of duplicating them.
// The chunk key itself is preserved in the payload.
func pointID(key string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String())
}

// payloadString reads a string payload value, or "".
func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.Kind.(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

// payloadInt reads an integer payload value, or 0.
func payloadInt(payload map[string]*qdrant.Value, key string) int {
	if v, ok := payload[key]; ok {
		if n, ok := v.Kind.(*qdrant.Value_IntegerValue); ok {
			return int(n.IntegerValue)
		}
	}
	return 0
}

// chunkPayload builds the point payload for one chunk.
func chunkPayload(disease, documentID, filename string, chunk chunker.Chunk) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"id":           {Kind: &qdrant.Value_StringValue{StringValue: chunkKey(documentID, chunk.ID)}},
		"content":      {Kind: &qdrant.Value_StringValue{StringValue: chunk.Text}},
		metaDocumentID: {Kind: &qdrant.Value_StringValue{StringValue: documentID}},
		metaFilename:   {Kind: &qdrant.Value_StringValue{StringValue: filename}},
		metaChunkID:    {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(chunk.ID)}},
		metaCharCount:  {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(chunk.CharCount)}},
		metaDisease:    {Kind: &qdrant.Value_StringValue{StringValue: disease}},
	}
}

// resultFromPoint converts a scored point into a SearchResult.
func resultFromPoint(point *qdrant.ScoredPoint) SearchResult {
	payload := point.Payload
	return SearchResult{
		ID:         payloadString(payload, "id"),
		Content:    payloadString(payload, "content"),
		Score:      point.Score,
		DocumentID: payloadString(payload, metaDocumentID),
		Filename:   payloadString(payload, metaFilename),
		ChunkID:    payloadInt(payload, metaChunkID),
	}
}

// documentFilter matches every point of one document.
func documentFilter(documentID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: metaDocumentID,
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: documentID},
						},
					},
				},
			},
		},
	}
}

// UpsertChunks embeds and stores the chunks of one document.
func (s *QdrantStore) UpsertChunks(ctx context.Context, disease, documentID, filename string, chunks []chunker.Chunk) (_ int, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.UpsertChunks")
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
	if strings.TrimSpace(disease) == "" {
		return 0, fmt.Errorf("%w: disease name must not be blank", ErrInvalidCollectionName)
	}

	if err := s.ensureCollection(ctx, name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("ensuring collection %s: %w", name, err)
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

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      pointID(chunkKey(documentID, chunk.ID)),
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: chunkPayload(disease, documentID, filename, chunk),
		}
	}

	// The document's chunks go up as one batch; unlike the embedded store
	// there is no partial insert to account for.
	err = s.retryOperation(ctx, "upsert", func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: name,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("upserting points to collection %s: %w", name, err)
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
func (s *QdrantStore) Search(ctx context.Context, disease, query string, topK int) (_ []SearchResult, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Search")
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

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !exists {
		span.SetStatus(codes.Ok, "collection absent")
		return []SearchResult{}, nil
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var results []*qdrant.ScoredPoint
	err = s.retryOperation(ctx, "search", func() error {
		res, err := s.client.Query(ctx, &qdrant.QueryPoints{
			CollectionName: name,
			Query:          qdrant.NewQuery(queryVector...),
			Limit:          qdrant.PtrOf(uint64(topK)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching collection %s: %w", name, err)
	}

	searchResults := make([]SearchResult, len(results))
	for i, point := range results {
		searchResults[i] = resultFromPoint(point)
	}

	span.SetAttributes(attribute.Int("results_count", len(searchResults)))
	span.SetStatus(codes.Ok, "success")

	s.logger.Debug("searched collection",
		zap.String("collection", name),
		zap.Int("k", topK),
		zap.Int("results", len(searchResults)),
	)

	return searchResults, nil
}

// DeleteDocument removes every chunk of one document from a disease collection.
func (s *QdrantStore) DeleteDocument(ctx context.Context, disease, documentID string) (_ bool, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteDocument")
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

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !exists {
		span.SetStatus(codes.Ok, "collection absent")
		return false, nil
	}

	before, err := s.pointsCount(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("counting collection %s: %w", name, err)
	}

	err = s.retryOperation(ctx, "delete", func() error {
		_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
					Filter: documentFilter(documentID),
				},
			},
			Wait: qdrant.PtrOf(true),
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("deleting document %s from %s: %w", documentID, name, err)
	}

	after, err := s.pointsCount(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("counting collection %s: %w", name, err)
	}
	removed := after < before

	span.SetAttributes(
		attribute.Bool("removed", removed),
		attribute.Int("chunks_removed", before-after),
	)
	span.SetStatus(codes.Ok, "success")

	if removed {
		s.logger.Info("deleted document",
			zap.String("collection", name),
			zap.String("document_id", documentID),
			zap.Int("chunks_removed", before-after),
		)
	}

	return removed, nil
}

// Documents derives the unique documents of a disease by scrolling chunk
// payloads and aggregating document ids.
func (s *QdrantStore) Documents(ctx context.Context, disease string) (_ []DocumentInfo, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Documents")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "documents", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !exists {
		span.SetStatus(codes.Ok, "collection absent")
		return []DocumentInfo{}, nil
	}

	var points []*qdrant.RetrievedPoint
	err = s.retryOperation(ctx, "scroll", func() error {
		res, err := s.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: name,
			Limit:          qdrant.PtrOf(uint32(scrollPageLimit)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("scanning collection %s: %w", name, err)
	}

	byID := make(map[string]*DocumentInfo)
	for _, point := range points {
		id := payloadString(point.Payload, metaDocumentID)
		if id == "" {
			continue
		}
		info, ok := byID[id]
		if !ok {
			info = &DocumentInfo{DocumentID: id, Filename: payloadString(point.Payload, metaFilename)}
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
func (s *QdrantStore) CreateCollection(ctx context.Context, disease string) (err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.CreateCollection")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "create_collection", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	if strings.TrimSpace(disease) == "" {
		return fmt.Errorf("%w: disease name must not be blank", ErrInvalidCollectionName)
	}

	if err := s.ensureCollection(ctx, name); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	span.SetStatus(codes.Ok, "success")

	s.logger.Info("created collection",
		zap.String("collection", name),
		zap.String("disease", disease),
	)

	return nil
}

// DeleteCollection deletes a disease collection and all its chunks.
func (s *QdrantStore) DeleteCollection(ctx context.Context, disease string) (_ bool, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.DeleteCollection")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "delete_collection", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	exists, err := s.collectionExists(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("checking collection %s: %w", name, err)
	}
	if !exists {
		span.SetStatus(codes.Ok, "collection absent")
		return false, nil
	}

	err = s.retryOperation(ctx, "delete_collection", func() error {
		return s.client.DeleteCollection(ctx, name)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, fmt.Errorf("deleting collection %s: %w", name, err)
	}

	s.collections.Delete(name)

	span.SetStatus(codes.Ok, "success")

	s.logger.Info("deleted collection",
		zap.String("collection", name),
	)

	return true, nil
}

// ListCollections returns all collections on the server ordered by name.
// A remote store keeps no display name registry, so DisplayName falls back
// to the collection name.
func (s *QdrantStore) ListCollections(ctx context.Context) (_ []CollectionInfo, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.ListCollections")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "list_collections", "", time.Since(start), err) }()

	var names []string
	err = s.retryOperation(ctx, "list_collections", func() error {
		res, err := s.client.ListCollections(ctx)
		if err != nil {
			return err
		}
		names = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	infos := make([]CollectionInfo, 0, len(names))
	for _, name := range names {
		count, err := s.pointsCount(ctx, name)
		if err != nil {
			// Dropped between list and info; skip it.
			if errors.Is(err, ErrCollectionNotFound) {
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("counting collection %s: %w", name, err)
		}
		infos = append(infos, CollectionInfo{
			Name:        name,
			DisplayName: name,
			ChunkCount:  count,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	span.SetAttributes(attribute.Int("collection_count", len(infos)))
	span.SetStatus(codes.Ok, "success")

	return infos, nil
}

// Count returns the number of chunks stored for a disease.
func (s *QdrantStore) Count(ctx context.Context, disease string) (_ int, err error) {
	ctx, span := qdrantTracer.Start(ctx, "QdrantStore.Count")
	defer span.End()

	name := sanitize.CollectionName(disease)
	start := time.Now()
	defer func() { s.metrics.RecordOperation(ctx, "count", name, time.Since(start), err) }()

	span.SetAttributes(attribute.String("collection", name))

	count, err := s.pointsCount(ctx, name)
	if err != nil {
		if errors.Is(err, ErrCollectionNotFound) {
			span.SetStatus(codes.Error, "collection not found")
			return 0, ErrCollectionNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("counting collection %s: %w", name, err)
	}

	span.SetAttributes(attribute.Int("chunk_count", count))
	span.SetStatus(codes.Ok, "success")

	return count, nil
}

// Close closes the Qdrant gRPC connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Ensure QdrantStore implements Store interface.
var _ Store = (*QdrantStore)(nil)
