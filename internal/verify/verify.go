// Package verify implements the agentic verification loop: generate an
// answer, have a reasoning model judge it against the retrieved context,
// and retry with refined queries and deeper retrieval until the answer is
// verified with enough confidence or attempts run out.
package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/rag"
)

const instrumentationName = "github.com/fyrsmithlabs/ragd/internal/verify"

// Default loop parameters.
const (
	defaultMaxAttempts         = 5
	defaultConfidenceThreshold = 0.8
	defaultBaseTopK            = 5
)

const (
	// reasoningLimit caps judge reasoning in attempt records.
	reasoningLimit = 500
)

// exhaustedAnswer is returned when no attempt produced any confidence.
const exhaustedAnswer = "Unable to generate a verified answer after multiple attempts."

// allAttemptsFailed marks an exhausted run with no usable answer.
const allAttemptsFailed = "All verification attempts failed"

// Generator produces a single-pass answer for a retrieval query.
type Generator interface {
	Answer(ctx context.Context, disease, query string, topK int) (*rag.GenerationResult, error)
}

// Verifier runs the generate-judge-refine loop.
type Verifier struct {
	generator Generator
	llm       llm.Client
	defaults  Options
	logger    *zap.Logger
	tracer    trace.Tracer
	meter     metric.Meter

	runCounter        metric.Int64Counter
	attemptsHistogram metric.Int64Histogram
}

// NewVerifier creates a verifier over the given generator and LLM client.
// The defaults fill in unset per-run options.
func NewVerifier(generator Generator, client llm.Client, defaults Options, logger *zap.Logger) (*Verifier, error) {
	if generator == nil {
		return nil, errors.New("generator is required")
	}
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if defaults.MaxAttempts <= 0 {
		defaults.MaxAttempts = defaultMaxAttempts
	}
	if defaults.ConfidenceThreshold <= 0 {
		defaults.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if defaults.BaseTopK <= 0 {
		defaults.BaseTopK = defaultBaseTopK
	}

	v := &Verifier{
		generator: generator,
		llm:       client,
		defaults:  defaults,
		logger:    logger,
		tracer:    otel.Tracer(instrumentationName),
		meter:     otel.Meter(instrumentationName),
	}

	v.initMetrics()

	return v, nil
}

// initMetrics initializes OpenTelemetry metrics.
func (v *Verifier) initMetrics() {
	var err error

	v.runCounter, err = v.meter.Int64Counter(
		"ragd.verify.runs_total",
		metric.WithDescription("Total number of verification runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		v.logger.Warn("failed to create run counter", zap.Error(err))
	}

	v.attemptsHistogram, err = v.meter.Int64Histogram(
		"ragd.verify.attempts_per_run",
		metric.WithDescription("Number of attempts each verification run took"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 4, 5, 7, 10),
	)
	if err != nil {
		v.logger.Warn("failed to create attempts histogram", zap.Error(err))
	}
}

// resolve fills unset per-run options from the verifier's defaults.
func (v *Verifier) resolve(opts Options) Options {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = v.defaults.MaxAttempts
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = v.defaults.ConfidenceThreshold
	}
	if opts.BaseTopK <= 0 {
		opts.BaseTopK = v.defaults.BaseTopK
	}
	return opts
}

// snapshot holds the highest-confidence attempt seen so far.
type snapshot struct {
	gen     *rag.GenerationResult
	verdict VerificationResult
}

// Run executes the verification loop for one question.
//
// Attempts are strictly sequential. Attempt N retrieves with the current
// query (refined after each failure) at depth BaseTopK+(N-1), generates an
// answer, and judges it against the ORIGINAL question. A verified answer at
// or above the confidence threshold returns immediately. An empty collection
// terminates the run with a no-context result. When attempts run out the
// highest-confidence answer is returned with a warning, or a fixed failure
// answer when no attempt produced any confidence.
//
// Judge and refiner failures never abort a run; only generation failures
// return an error.
func (v *Verifier) Run(ctx context.Context, disease, query string, opts Options) (*Result, error) {
	opts = v.resolve(opts)

	ctx, span := v.tracer.Start(ctx, "verify.run")
	defer span.End()

	span.SetAttributes(
		attribute.String("disease", disease),
		attribute.Int("max_attempts", opts.MaxAttempts),
		attribute.Int("base_top_k", opts.BaseTopK),
	)

	start := time.Now()
	currentQuery := query
	attempts := make([]Attempt, 0, opts.MaxAttempts)
	var best *snapshot
	bestConfidence := 0.0

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		// Widen retrieval on each retry.
		topK := opts.BaseTopK + (attempt - 1)

		gen, err := v.generator.Answer(ctx, disease, currentQuery, topK)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, fmt.Errorf("attempt %d: %w", attempt, err)
		}

		if gen.Outcome == rag.OutcomeNoContext {
			v.logger.Info("no context for verification run",
				zap.String("disease", disease))
			v.recordRun(ctx, false, 1)
			return &Result{
				Answer:     gen.Answer,
				Attempts:   []Attempt{{Number: 1, NoContext: true}},
				References: []rag.Reference{},
				Disease:    disease,
			}, nil
		}

		// Judge against the original question, not the refined query.
		verdict := v.judge(ctx, disease, query, gen.Answer, gen.Chunks)

		attempts = append(attempts, Attempt{
			Number:     attempt,
			Query:      currentQuery,
			Confidence: verdict.Confidence,
			Verified:   verdict.Verified,
			Issues:     verdict.Issues,
			Reasoning:  truncate(verdict.Reasoning, reasoningLimit),
		})

		v.logger.Debug("verification attempt complete",
			zap.String("disease", disease),
			zap.Int("attempt", attempt),
			zap.Bool("verified", verdict.Verified),
			zap.Float64("confidence", verdict.Confidence))

		if verdict.Confidence > bestConfidence {
			bestConfidence = verdict.Confidence
			best = &snapshot{gen: gen, verdict: verdict}
		}

		if verdict.Verified && verdict.Confidence >= opts.ConfidenceThreshold {
			v.logger.Info("answer verified",
				zap.String("disease", disease),
				zap.Int("attempts", attempt),
				zap.Float64("confidence", verdict.Confidence),
				zap.Duration("elapsed", time.Since(start)))
			span.SetAttributes(
				attribute.Bool("verified", true),
				attribute.Int("attempts", attempt),
			)
			v.recordRun(ctx, true, attempt)
			return &Result{
				Answer:       gen.Answer,
				Verified:     true,
				Confidence:   verdict.Confidence,
				Attempts:     attempts,
				References:   gen.References,
				Disease:      disease,
				Reasoning:    verdict.Reasoning,
				FinalAttempt: attempt,
			}, nil
		}

		if attempt < opts.MaxAttempts {
			refined, err := v.refine(ctx, disease, query, verdict, attempt, opts.MaxAttempts)
			if err != nil {
				v.logger.Warn("query refinement failed, retrying with unchanged query",
					zap.Int("attempt", attempt),
					zap.Error(err))
			} else {
				currentQuery = refined
			}
		}
	}

	span.SetAttributes(
		attribute.Bool("verified", false),
		attribute.Int("attempts", len(attempts)),
	)
	v.recordRun(ctx, false, len(attempts))

	if best != nil {
		v.logger.Warn("verification exhausted, returning best attempt",
			zap.String("disease", disease),
			zap.Float64("confidence", bestConfidence),
			zap.Float64("threshold", opts.ConfidenceThreshold))
		return &Result{
			Answer:     best.gen.Answer,
			Verified:   best.verdict.Verified,
			Confidence: bestConfidence,
			Attempts:   attempts,
			References: best.gen.References,
			Disease:    disease,
			Reasoning:  best.verdict.Reasoning,
			Warning: fmt.Sprintf(
				"Answer confidence (%.2f) below threshold (%.2f). Please verify independently.",
				bestConfidence, opts.ConfidenceThreshold),
			FinalAttempt: len(attempts),
		}, nil
	}

	v.logger.Warn("all verification attempts failed",
		zap.String("disease", disease),
		zap.Int("attempts", len(attempts)))
	return &Result{
		Answer:     exhaustedAnswer,
		Attempts:   attempts,
		References: []rag.Reference{},
		Disease:    disease,
		Error:      allAttemptsFailed,
	}, nil
}

func (v *Verifier) recordRun(ctx context.Context, verified bool, attempts int) {
	attrs := metric.WithAttributes(attribute.Bool("verified", verified))
	if v.runCounter != nil {
		v.runCounter.Add(ctx, 1, attrs)
	}
	if v.attemptsHistogram != nil {
		v.attemptsHistogram.Record(ctx, int64(attempts), attrs)
	}
}

// truncate caps s at limit bytes, appending "..." when cut.
func truncate(s string, limit int) string {
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
