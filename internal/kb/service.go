// Package kb assembles the knowledge-base service: document ingestion into
// per-disease collections and querying with or without agentic verification.
// It is the single surface the HTTP layer talks to.
package kb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/extract"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	"github.com/fyrsmithlabs/ragd/internal/verify"
)

const instrumentationName = "github.com/fyrsmithlabs/ragd/internal/kb"

// defaultTopK is the retrieval depth for unverified queries.
const defaultTopK = 5

// ErrNoContent indicates an uploaded document with no extractable text.
var ErrNoContent = errors.New("document has no extractable content")

// Generator produces single-pass answers.
type Generator interface {
	Answer(ctx context.Context, disease, query string, topK int) (*rag.GenerationResult, error)
}

// Verifier runs the agentic verification loop.
type Verifier interface {
	Run(ctx context.Context, disease, query string, opts verify.Options) (*verify.Result, error)
}

// IngestResult reports one successful document ingestion.
type IngestResult struct {
	// DocumentID is the generated identifier for the document.
	DocumentID string `json:"document_id"`

	// Filename is the uploaded file name.
	Filename string `json:"filename"`

	// Disease is the collection the document was added to.
	Disease string `json:"disease"`

	// ChunksAdded is the number of chunks stored.
	ChunksAdded int `json:"chunks_added"`
}

// Config holds knowledge-base service configuration.
type Config struct {
	// TopK is the retrieval depth for unverified queries. Default: 5.
	TopK int
}

// Service is the knowledge-base boundary: extract, chunk, store, retrieve,
// generate, verify.
type Service struct {
	config    Config
	store     vectorstore.Store
	chunker   *chunker.Chunker
	generator Generator
	verifier  Verifier
	logger    *zap.Logger
	tracer    trace.Tracer
	meter     metric.Meter

	ingestCounter metric.Int64Counter
	chunkCounter  metric.Int64Counter
}

// NewService creates the knowledge-base service.
func NewService(config Config, store vectorstore.Store, ck *chunker.Chunker, generator Generator, verifier Verifier, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if ck == nil {
		return nil, errors.New("chunker is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if verifier == nil {
		return nil, errors.New("verifier is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.TopK <= 0 {
		config.TopK = defaultTopK
	}

	s := &Service{
		config:    config,
		store:     store,
		chunker:   ck,
		generator: generator,
		verifier:  verifier,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}

	s.initMetrics()

	return s, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (s *Service) initMetrics() {
	var err error

	s.ingestCounter, err = s.meter.Int64Counter(
		"ragd.kb.documents_ingested_total",
		metric.WithDescription("Total number of documents ingested"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		s.logger.Warn("failed to create ingest counter", zap.Error(err))
	}

	s.chunkCounter, err = s.meter.Int64Counter(
		"ragd.kb.chunks_stored_total",
		metric.WithDescription("Total number of chunks stored across all ingests"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		s.logger.Warn("failed to create chunk counter", zap.Error(err))
	}
}

// Ingest extracts text from an uploaded file, chunks it, and stores the
// chunks under a freshly generated document id.
//
// Unsupported formats surface extract.ErrUnsupportedFormat; files whose
// extracted text is empty surface ErrNoContent. Neither stores anything.
func (s *Service) Ingest(ctx context.Context, disease, filename string, data []byte) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "kb.ingest")
	defer span.End()

	span.SetAttributes(
		attribute.String("disease", disease),
		attribute.String("filename", filename),
		attribute.Int("size_bytes", len(data)),
	)

	text, err := extract.Extract(filename, data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("extracting %s: %w", filename, err)
	}

	if strings.TrimSpace(text) == "" {
		err := fmt.Errorf("%w: %s", ErrNoContent, filename)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		err := fmt.Errorf("%w: %s", ErrNoContent, filename)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	documentID := uuid.New().String()

	added, err := s.store.UpsertChunks(ctx, disease, documentID, filename, chunks)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("storing chunks: %w", err)
	}

	s.logger.Info("document ingested",
		zap.String("disease", disease),
		zap.String("filename", filename),
		zap.String("document_id", documentID),
		zap.Int("chunks_added", added))

	if s.ingestCounter != nil {
		s.ingestCounter.Add(ctx, 1)
	}
	if s.chunkCounter != nil {
		s.chunkCounter.Add(ctx, int64(added))
	}

	return &IngestResult{
		DocumentID:  documentID,
		Filename:    filename,
		Disease:     disease,
		ChunksAdded: added,
	}, nil
}

// Query answers a question with the full verification loop.
func (s *Service) Query(ctx context.Context, disease, question string, opts verify.Options) (*verify.Result, error) {
	return s.verifier.Run(ctx, disease, question, opts)
}

// QuerySimple answers a question with a single unverified generation pass.
func (s *Service) QuerySimple(ctx context.Context, disease, question string) (*rag.GenerationResult, error) {
	return s.generator.Answer(ctx, disease, question, s.config.TopK)
}

// Documents lists the documents stored for a disease.
func (s *Service) Documents(ctx context.Context, disease string) ([]vectorstore.DocumentInfo, error) {
	return s.store.Documents(ctx, disease)
}

// DeleteDocument removes every chunk of a document. Reports whether any
// chunks were removed.
func (s *Service) DeleteDocument(ctx context.Context, disease, documentID string) (bool, error) {
	removed, err := s.store.DeleteDocument(ctx, disease, documentID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("document deleted",
			zap.String("disease", disease),
			zap.String("document_id", documentID))
	}
	return removed, nil
}

// Collections lists all disease collections.
func (s *Service) Collections(ctx context.Context) ([]vectorstore.CollectionInfo, error) {
	return s.store.ListCollections(ctx)
}

// CreateCollection creates a disease collection. Creating an existing
// collection is a no-op.
func (s *Service) CreateCollection(ctx context.Context, disease string) error {
	if err := s.store.CreateCollection(ctx, disease); err != nil {
		return err
	}
	s.logger.Info("collection created", zap.String("disease", disease))
	return nil
}

// DeleteCollection deletes a disease collection and everything in it.
// Reports whether the collection existed.
func (s *Service) DeleteCollection(ctx context.Context, disease string) (bool, error) {
	deleted, err := s.store.DeleteCollection(ctx, disease)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("collection deleted", zap.String("disease", disease))
	}
	return deleted, nil
}
