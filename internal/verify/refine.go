package verify

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/ragd/internal/llm"
)

// Refiner completion parameters. Refinement uses the generation model with
// a little more freedom than answering, and only needs a one-line query.
const (
	refineTemperature = 0.3
	refineMaxTokens   = 200
)

// refine asks the generation model for a better retrieval query based on
// the judge's feedback.
func (v *Verifier) refine(ctx context.Context, disease, originalQuery string, verdict VerificationResult, attempt, maxAttempts int) (string, error) {
	refined, err := v.llm.Complete(ctx, llm.Request{
		Prompt:      refinePrompt(disease, originalQuery, verdict, attempt, maxAttempts),
		Temperature: refineTemperature,
		MaxTokens:   refineMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("refining query: %w", err)
	}

	refined = strings.TrimSpace(refined)
	if refined == "" {
		return "", fmt.Errorf("empty refined query")
	}

	return refined, nil
}

// refinePrompt builds the query-refinement prompt from the judge's issues
// and suggestions.
func refinePrompt(disease, originalQuery string, verdict VerificationResult, attempt, maxAttempts int) string {
	return fmt.Sprintf(`Based on a failed answer verification, generate an improved search query.

Original Question: %s
Disease: %s
Attempt: %d of %d

Previous Answer Issues:
%s

Suggestions:
%s

Generate a more specific or differently-phrased query that might retrieve better context.
Focus on the specific information gaps identified.

Return ONLY the refined query, nothing else.`,
		originalQuery, disease, attempt, maxAttempts,
		bulletList(verdict.Issues), bulletList(verdict.Suggestions))
}

// bulletList renders items as "- item" lines.
func bulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}
