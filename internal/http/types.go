package http

import (
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/verify"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse confirms a delete operation.
type MessageResponse struct {
	Message string `json:"message"`
}

// CreateDiseaseRequest is the request body for POST /api/v1/diseases.
type CreateDiseaseRequest struct {
	Name string `json:"name"`
}

// QueryRequest is the request body for POST /api/v1/query.
//
// Verify defaults to true when omitted; max_attempts 0 means the
// verifier's configured default.
type QueryRequest struct {
	Disease     string `json:"disease"`
	Question    string `json:"question"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Verify      *bool  `json:"verify,omitempty"`
}

// QueryResponse is the response body for POST /api/v1/query. Both the
// verified and single-pass paths produce this shape; the single-pass path
// reports Verified false with zero confidence and no attempts.
type QueryResponse struct {
	Answer       string           `json:"answer"`
	Verified     bool             `json:"verified"`
	Confidence   float64          `json:"confidence"`
	References   []rag.Reference  `json:"references"`
	Disease      string           `json:"disease"`
	Attempts     []verify.Attempt `json:"attempts,omitempty"`
	Reasoning    string           `json:"verification_reasoning,omitempty"`
	FinalAttempt int              `json:"final_attempt,omitempty"`
	Warning      string           `json:"warning,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// queryResponseFromResult maps a verification run onto the API response.
func queryResponseFromResult(r *verify.Result) QueryResponse {
	refs := r.References
	if refs == nil {
		refs = []rag.Reference{}
	}
	return QueryResponse{
		Answer:       r.Answer,
		Verified:     r.Verified,
		Confidence:   r.Confidence,
		References:   refs,
		Disease:      r.Disease,
		Attempts:     r.Attempts,
		Reasoning:    r.Reasoning,
		FinalAttempt: r.FinalAttempt,
		Warning:      r.Warning,
		Error:        r.Error,
	}
}

// queryResponseFromGeneration maps a single-pass answer onto the API
// response.
func queryResponseFromGeneration(g *rag.GenerationResult) QueryResponse {
	refs := g.References
	if refs == nil {
		refs = []rag.Reference{}
	}
	return QueryResponse{
		Answer:     g.Answer,
		Verified:   false,
		Confidence: 0,
		References: refs,
		Disease:    g.Disease,
	}
}
