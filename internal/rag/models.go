package rag

// Outcome discriminates how a generation run concluded.
type Outcome string

const (
	// OutcomeAnswered means context was retrieved and an answer generated.
	OutcomeAnswered Outcome = "success"

	// OutcomeNoContext means the disease collection had no chunks to
	// retrieve, so the fixed no-documents answer was returned instead.
	OutcomeNoContext Outcome = "no_context"
)

// Reference cites one context chunk the answer drew on, identified by its
// literal "[Source N]" marker in the answer text.
type Reference struct {
	// SourceID is the 1-based position of the chunk in the prompt context.
	SourceID int `json:"source_id"`

	// Filename is the uploaded file the chunk came from.
	Filename string `json:"filename"`

	// Excerpt is the start of the chunk text, capped at 200 bytes.
	Excerpt string `json:"excerpt"`

	// RelevanceScore is the chunk's retrieval similarity score.
	RelevanceScore float32 `json:"relevance_score"`
}

// Chunk is a retrieved chunk trimmed for transport. The text is capped at
// 300 bytes so responses stay small while the verifier and API clients can
// still see what the answer was grounded on.
type Chunk struct {
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
	Filename string  `json:"filename"`
}

// GenerationResult is the outcome of one retrieve-and-generate pass.
type GenerationResult struct {
	// Answer is the generated answer, or the fixed no-documents reply
	// when Outcome is OutcomeNoContext.
	Answer string `json:"answer"`

	// References lists the context chunks the answer cites, in context
	// order. Empty when nothing was cited.
	References []Reference `json:"references"`

	// ContextUsed is the number of chunks given to the model.
	ContextUsed int `json:"context_used"`

	// Disease is the collection that was queried.
	Disease string `json:"disease"`

	// Outcome reports whether an answer was generated.
	Outcome Outcome `json:"status"`

	// Chunks holds the retrieved context for the verifier and the API
	// response. Omitted when Outcome is OutcomeNoContext.
	Chunks []Chunk `json:"retrieved_chunks,omitempty"`
}
