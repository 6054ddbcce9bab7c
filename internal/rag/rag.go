// Package rag implements single-pass retrieval-augmented generation over a
// disease collection: retrieve the most similar chunks, build a grounded
// prompt, generate an answer, and extract which chunks it cites.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

const instrumentationName = "github.com/fyrsmithlabs/ragd/internal/rag"

const (
	// generationTemperature keeps the model close to the source text.
	generationTemperature = 0.1

	// generationMaxTokens caps answer length.
	generationMaxTokens = 2048

	// excerptLimit caps reference excerpts.
	excerptLimit = 200

	// chunkPreviewLimit caps retrieved chunk text in results.
	chunkPreviewLimit = 300
)

// noContextAnswer is the fixed reply when the collection has no chunks.
const noContextAnswer = "No documents found for this disease. Please upload relevant documents first."

// Retriever supplies scored chunks for a disease query.
type Retriever interface {
	Search(ctx context.Context, disease, query string, topK int) ([]vectorstore.SearchResult, error)
}

// Generator runs the retrieve-then-generate pipeline for one question.
type Generator struct {
	retriever Retriever
	llm       llm.Client
	logger    *zap.Logger
	tracer    trace.Tracer
	meter     metric.Meter

	queryCounter   metric.Int64Counter
	answerDuration metric.Float64Histogram
}

// NewGenerator creates a generator over the given retriever and LLM client.
func NewGenerator(retriever Retriever, client llm.Client, logger *zap.Logger) (*Generator, error) {
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Generator{
		retriever: retriever,
		llm:       client,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}

	g.initMetrics()

	return g, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (g *Generator) initMetrics() {
	var err error

	g.queryCounter, err = g.meter.Int64Counter(
		"ragd.rag.queries_total",
		metric.WithDescription("Total number of RAG generation passes by outcome"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		g.logger.Warn("failed to create query counter", zap.Error(err))
	}

	g.answerDuration, err = g.meter.Float64Histogram(
		"ragd.rag.answer_duration_seconds",
		metric.WithDescription("End-to-end retrieve-and-generate duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		g.logger.Warn("failed to create answer duration histogram", zap.Error(err))
	}
}

// Answer retrieves up to topK chunks for the query and generates a grounded
// answer from them.
//
// An empty retrieval is not an error: the result carries OutcomeNoContext
// and the fixed no-documents answer. Retrieval and generation failures
// return an error and no result.
func (g *Generator) Answer(ctx context.Context, disease, query string, topK int) (*GenerationResult, error) {
	ctx, span := g.tracer.Start(ctx, "rag.answer")
	defer span.End()

	span.SetAttributes(
		attribute.String("disease", disease),
		attribute.Int("top_k", topK),
	)

	start := time.Now()

	results, err := g.retriever.Search(ctx, disease, query, topK)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	if len(results) == 0 {
		g.logger.Info("no context available",
			zap.String("disease", disease))
		g.recordQuery(ctx, OutcomeNoContext, time.Since(start))
		return &GenerationResult{
			Answer:     noContextAnswer,
			References: []Reference{},
			Disease:    disease,
			Outcome:    OutcomeNoContext,
		}, nil
	}

	answer, err := g.llm.Complete(ctx, llm.Request{
		System:      systemPrompt(disease),
		Prompt:      userPrompt(disease, query, results),
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	refs := extractReferences(answer, results)

	span.SetAttributes(
		attribute.Int("chunks_retrieved", len(results)),
		attribute.Int("references_cited", len(refs)),
	)
	g.logger.Debug("answer generated",
		zap.String("disease", disease),
		zap.Int("chunks_retrieved", len(results)),
		zap.Int("references_cited", len(refs)))
	g.recordQuery(ctx, OutcomeAnswered, time.Since(start))

	return &GenerationResult{
		Answer:      answer,
		References:  refs,
		ContextUsed: len(results),
		Disease:     disease,
		Outcome:     OutcomeAnswered,
		Chunks:      transportChunks(results),
	}, nil
}

func (g *Generator) recordQuery(ctx context.Context, outcome Outcome, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", string(outcome)))
	if g.queryCounter != nil {
		g.queryCounter.Add(ctx, 1, attrs)
	}
	if g.answerDuration != nil {
		g.answerDuration.Record(ctx, elapsed.Seconds(), attrs)
	}
}

// systemPrompt instructs the model to answer only from the provided context.
func systemPrompt(disease string) string {
	return fmt.Sprintf(`You are a precise medical information assistant specialized in %s.

CRITICAL RULES:
1. ONLY use information explicitly stated in the provided context
2. If the answer is not in the context, say "I cannot find this information in the provided documents"
3. NEVER make assumptions or add information from general knowledge
4. Always cite sources using [Source N] format
5. Be precise and factual - medical accuracy is critical
6. If information is partial or unclear, acknowledge the limitation`, disease)
}

// userPrompt assembles the retrieved chunks into numbered source blocks
// followed by the question.
func userPrompt(disease, query string, results []vectorstore.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[Source %d: %s]\n%s", i+1, sourceName(r), r.Content)
	}

	return fmt.Sprintf(`Context from %s documents:

%s

---

Question: %s

Please provide a precise answer based ONLY on the context above. Include [Source N] citations for every fact you state.`,
		disease, strings.Join(parts, "\n\n---\n\n"), query)
}

// extractReferences finds which context chunks the answer cites by scanning
// for literal "[Source N]" markers, in context order.
func extractReferences(answer string, results []vectorstore.SearchResult) []Reference {
	refs := make([]Reference, 0, len(results))
	for i, r := range results {
		marker := fmt.Sprintf("[Source %d]", i+1)
		if !strings.Contains(answer, marker) {
			continue
		}
		refs = append(refs, Reference{
			SourceID:       i + 1,
			Filename:       sourceName(r),
			Excerpt:        truncate(r.Content, excerptLimit),
			RelevanceScore: r.Score,
		})
	}
	return refs
}

// transportChunks trims retrieved chunks for inclusion in results.
func transportChunks(results []vectorstore.SearchResult) []Chunk {
	chunks := make([]Chunk, len(results))
	for i, r := range results {
		chunks[i] = Chunk{
			Text:     truncate(r.Content, chunkPreviewLimit),
			Score:    r.Score,
			Filename: sourceName(r),
		}
	}
	return chunks
}

// sourceName returns the chunk's filename, or "Unknown" for chunks whose
// metadata was lost.
func sourceName(r vectorstore.SearchResult) string {
	if r.Filename == "" {
		return "Unknown"
	}
	return r.Filename
}

// truncate caps s at limit bytes, appending "..." when cut.
func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
