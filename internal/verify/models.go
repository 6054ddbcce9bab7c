package verify

import "github.com/fyrsmithlabs/ragd/internal/rag"

// VerificationResult is the judge's verdict on one generated answer.
type VerificationResult struct {
	// Verified reports whether every claim was supported by the context.
	Verified bool `json:"is_verified"`

	// Confidence is the judge's confidence in the answer, in [0,1].
	Confidence float64 `json:"confidence"`

	// Issues lists specific problems the judge found.
	Issues []string `json:"issues"`

	// Suggestions lists how the answer could be improved.
	Suggestions []string `json:"suggestions"`

	// Reasoning is the judge's explanation of its verdict.
	Reasoning string `json:"reasoning"`
}

// Attempt records one pass of the verification loop.
type Attempt struct {
	// Number is the 1-based attempt number.
	Number int `json:"attempt"`

	// Query is the retrieval query this attempt used, which differs from
	// the original question once the refiner has run.
	Query string `json:"query_used,omitempty"`

	// Confidence is the judge's confidence for this attempt.
	Confidence float64 `json:"confidence"`

	// Verified is the judge's verdict for this attempt.
	Verified bool `json:"is_verified"`

	// Issues lists the problems the judge found.
	Issues []string `json:"issues,omitempty"`

	// Reasoning is the judge's explanation, capped at 500 bytes.
	Reasoning string `json:"reasoning,omitempty"`

	// NoContext marks the attempt that found an empty collection and
	// terminated the run.
	NoContext bool `json:"no_context,omitempty"`
}

// Result is the outcome of a verification run.
type Result struct {
	// Answer is the best answer produced, or a fixed failure message when
	// no attempt yielded any confidence.
	Answer string `json:"answer"`

	// Verified reports whether the returned answer passed verification.
	Verified bool `json:"verified"`

	// Confidence is the judge's confidence in the returned answer.
	Confidence float64 `json:"confidence"`

	// Attempts records every pass of the loop, in order.
	Attempts []Attempt `json:"attempts"`

	// References lists the context chunks the returned answer cites.
	References []rag.Reference `json:"references"`

	// Disease is the collection that was queried.
	Disease string `json:"disease"`

	// Reasoning is the judge's full explanation for the returned answer.
	Reasoning string `json:"verification_reasoning,omitempty"`

	// FinalAttempt is the attempt the returned answer came from.
	FinalAttempt int `json:"final_attempt,omitempty"`

	// Warning is set when the loop exhausted its attempts and returned a
	// below-threshold answer.
	Warning string `json:"warning,omitempty"`

	// Error is set when every attempt failed verification outright. The
	// run itself still succeeded; this marks the answer as unusable.
	Error string `json:"error,omitempty"`
}

// Options configure one verification run. Zero values fall back to the
// verifier's configured defaults.
type Options struct {
	// MaxAttempts caps the number of generate-judge-refine passes.
	MaxAttempts int

	// ConfidenceThreshold is the minimum judge confidence to accept a
	// verified answer.
	ConfidenceThreshold float64

	// BaseTopK is the retrieval depth of the first attempt. Each retry
	// retrieves one more chunk than the last.
	BaseTopK int
}
