package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/rag"
)

// judgeMaxTokens caps the judge's completion.
const judgeMaxTokens = 4096

// judgeVerdict is the JSON object the judge model must return.
type judgeVerdict struct {
	IsVerified        bool     `json:"is_verified"`
	Confidence        float64  `json:"confidence"`
	SupportedClaims   []string `json:"supported_claims"`
	UnsupportedClaims []string `json:"unsupported_claims"`
	Issues            []string `json:"issues"`
	Suggestions       []string `json:"suggestions"`
	Reasoning         string   `json:"reasoning"`
}

// judge asks the reasoning model to check the answer against the retrieved
// chunks. It never fails: any error (call failure, unparseable response)
// degrades to an unverified zero-confidence verdict so the loop can retry.
func (v *Verifier) judge(ctx context.Context, disease, originalQuery, answer string, chunks []rag.Chunk) VerificationResult {
	content, err := v.llm.Complete(ctx, llm.Request{
		Prompt:    judgePrompt(disease, originalQuery, answer, chunks),
		MaxTokens: judgeMaxTokens,
		Reasoning: true,
	})
	if err != nil {
		v.logger.Warn("verification call failed", zap.Error(err))
		return degradedVerdict(err)
	}

	verdict, err := parseVerdict(content)
	if err != nil {
		v.logger.Warn("verification response unparseable", zap.Error(err))
		return degradedVerdict(err)
	}

	// Clamp confidence into [0,1].
	confidence := verdict.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return VerificationResult{
		Verified:    verdict.IsVerified,
		Confidence:  confidence,
		Issues:      verdict.Issues,
		Suggestions: verdict.Suggestions,
		Reasoning:   verdict.Reasoning,
	}
}

// degradedVerdict is the verdict used when judging itself failed.
func degradedVerdict(err error) VerificationResult {
	return VerificationResult{
		Issues:      []string{fmt.Sprintf("verification error: %v", err)},
		Suggestions: []string{"Retry with a more specific query"},
		Reasoning:   "Verification failed due to technical error",
	}
}

// parseVerdict extracts the judge's JSON verdict from a model response.
func parseVerdict(content string) (judgeVerdict, error) {
	// Clean up the response - sometimes LLMs wrap JSON in markdown code blocks
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	// The model may surround the object with prose; keep only the outermost
	// braces.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return judgeVerdict{}, fmt.Errorf("no JSON object in verification response")
	}

	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return judgeVerdict{}, fmt.Errorf("parsing verification response: %w", err)
	}

	return verdict, nil
}

// judgePrompt builds the fact-checking prompt over the numbered chunks.
func judgePrompt(disease, query, answer string, chunks []rag.Chunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("[Chunk %d]: %s", i+1, c.Text)
	}

	return fmt.Sprintf(`You are a rigorous medical fact-checker. Your task is to verify if an answer is accurate and well-supported by the provided context.

DISEASE CONTEXT: %s

ORIGINAL QUESTION: %s

PROVIDED CONTEXT:
%s

ANSWER TO VERIFY:
%s

VERIFICATION TASK:
1. Check if EVERY claim in the answer is directly supported by the context
2. Identify any statements that go beyond the provided context
3. Check for potential hallucinations or unsupported inferences
4. Verify medical terminology and facts are accurate
5. Assess overall answer quality and completeness

Respond with a JSON object:
{
    "is_verified": true/false,
    "confidence": 0.0-1.0,
    "supported_claims": ["list of claims that are well-supported"],
    "unsupported_claims": ["list of claims not in context"],
    "issues": ["specific problems found"],
    "suggestions": ["how to improve the answer"],
    "reasoning": "detailed explanation of your verification"
}

Be strict - medical information must be precise.`,
		disease, query, strings.Join(parts, "\n\n---\n\n"), answer)
}
