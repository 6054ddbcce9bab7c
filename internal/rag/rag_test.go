package rag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/llm"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
)

// mockRetriever returns canned search results without a real vector store.
type mockRetriever struct {
	results  []vectorstore.SearchResult
	err      error
	lastTopK int
}

func (m *mockRetriever) Search(_ context.Context, _, _ string, topK int) ([]vectorstore.SearchResult, error) {
	m.lastTopK = topK
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

// mockLLM returns a canned completion and records the last request.
type mockLLM struct {
	response  string
	err       error
	callCount int
	lastReq   llm.Request
}

func (m *mockLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	m.callCount++
	m.lastReq = req
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func testChunks() []vectorstore.SearchResult {
	return []vectorstore.SearchResult{
		{
			ID:         "doc1_chunk_0",
			Content:    "Influenza is caused by influenza viruses A and B.",
			Score:      0.92,
			DocumentID: "doc1",
			Filename:   "flu-overview.txt",
			ChunkID:    0,
		},
		{
			ID:         "doc2_chunk_3",
			Content:    "Oseltamivir should be started within 48 hours of symptom onset.",
			Score:      0.85,
			DocumentID: "doc2",
			Filename:   "flu-treatment.md",
			ChunkID:    3,
		},
	}
}

func TestNewGenerator(t *testing.T) {
	retriever := &mockRetriever{}
	client := &mockLLM{}

	t.Run("valid", func(t *testing.T) {
		g, err := NewGenerator(retriever, client, zap.NewNop())
		require.NoError(t, err)
		require.NotNil(t, g)
	})

	t.Run("nil logger allowed", func(t *testing.T) {
		g, err := NewGenerator(retriever, client, nil)
		require.NoError(t, err)
		require.NotNil(t, g)
	})

	t.Run("nil retriever", func(t *testing.T) {
		_, err := NewGenerator(nil, client, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("nil client", func(t *testing.T) {
		_, err := NewGenerator(retriever, nil, zap.NewNop())
		require.Error(t, err)
	})
}

func TestGenerator_Answer(t *testing.T) {
	retriever := &mockRetriever{results: testChunks()}
	client := &mockLLM{response: "Influenza is viral [Source 1]. Start oseltamivir within 48 hours [Source 2]."}

	g, err := NewGenerator(retriever, client, zap.NewNop())
	require.NoError(t, err)

	result, err := g.Answer(context.Background(), "influenza", "What causes flu and how is it treated?", 5)
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnswered, result.Outcome)
	assert.Equal(t, client.response, result.Answer)
	assert.Equal(t, "influenza", result.Disease)
	assert.Equal(t, 2, result.ContextUsed)
	assert.Equal(t, 5, retriever.lastTopK)

	require.Len(t, result.References, 2)
	assert.Equal(t, 1, result.References[0].SourceID)
	assert.Equal(t, "flu-overview.txt", result.References[0].Filename)
	assert.Equal(t, "Influenza is caused by influenza viruses A and B.", result.References[0].Excerpt)
	assert.InDelta(t, 0.92, result.References[0].RelevanceScore, 0.001)
	assert.Equal(t, 2, result.References[1].SourceID)

	require.Len(t, result.Chunks, 2)
	assert.Equal(t, "flu-treatment.md", result.Chunks[1].Filename)
}

func TestGenerator_Answer_PromptShape(t *testing.T) {
	retriever := &mockRetriever{results: testChunks()}
	client := &mockLLM{response: "ok"}

	g, err := NewGenerator(retriever, client, zap.NewNop())
	require.NoError(t, err)

	_, err = g.Answer(context.Background(), "influenza", "How is flu treated?", 5)
	require.NoError(t, err)

	req := client.lastReq
	assert.Contains(t, req.System, "specialized in influenza")
	assert.Contains(t, req.System, "CRITICAL RULES")
	assert.Contains(t, req.System, "[Source N]")

	assert.Contains(t, req.Prompt, "Context from influenza documents:")
	assert.Contains(t, req.Prompt, "[Source 1: flu-overview.txt]\nInfluenza is caused by")
	assert.Contains(t, req.Prompt, "[Source 2: flu-treatment.md]\nOseltamivir")
	assert.Contains(t, req.Prompt, "\n\n---\n\n")
	assert.Contains(t, req.Prompt, "Question: How is flu treated?")

	assert.InDelta(t, 0.1, req.Temperature, 0.001)
	assert.Equal(t, 2048, req.MaxTokens)
	assert.False(t, req.Reasoning)
}

func TestGenerator_Answer_NoContext(t *testing.T) {
	retriever := &mockRetriever{results: nil}
	client := &mockLLM{response: "should not be called"}

	g, err := NewGenerator(retriever, client, zap.NewNop())
	require.NoError(t, err)

	result, err := g.Answer(context.Background(), "rare disease", "What are the symptoms?", 5)
	require.NoError(t, err)

	assert.Equal(t, OutcomeNoContext, result.Outcome)
	assert.Equal(t, noContextAnswer, result.Answer)
	assert.NotNil(t, result.References)
	assert.Empty(t, result.References)
	assert.Zero(t, result.ContextUsed)
	assert.Empty(t, result.Chunks)
	assert.Zero(t, client.callCount, "LLM must not be called without context")
}

func TestGenerator_Answer_RetrieverError(t *testing.T) {
	retriever := &mockRetriever{err: errors.New("store unavailable")}
	client := &mockLLM{}

	g, err := NewGenerator(retriever, client, zap.NewNop())
	require.NoError(t, err)

	_, err = g.Answer(context.Background(), "influenza", "question", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieving context")
	assert.Zero(t, client.callCount)
}

func TestGenerator_Answer_GenerationError(t *testing.T) {
	retriever := &mockRetriever{results: testChunks()}
	client := &mockLLM{err: errors.New("model overloaded")}

	g, err := NewGenerator(retriever, client, zap.NewNop())
	require.NoError(t, err)

	_, err = g.Answer(context.Background(), "influenza", "question", 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generating answer")
}

func TestExtractReferences(t *testing.T) {
	results := []vectorstore.SearchResult{
		{Content: "chunk one", Score: 0.9, Filename: "a.txt"},
		{Content: "chunk two", Score: 0.8, Filename: "b.txt"},
		{Content: "chunk three", Score: 0.7, Filename: "c.txt"},
	}

	t.Run("context order regardless of citation order", func(t *testing.T) {
		refs := extractReferences("See [Source 3] and also [Source 1].", results)
		require.Len(t, refs, 2)
		assert.Equal(t, 1, refs[0].SourceID)
		assert.Equal(t, 3, refs[1].SourceID)
	})

	t.Run("repeated citation counted once", func(t *testing.T) {
		refs := extractReferences("[Source 2] then [Source 2] again", results)
		require.Len(t, refs, 1)
		assert.Equal(t, "b.txt", refs[0].Filename)
	})

	t.Run("no citations", func(t *testing.T) {
		refs := extractReferences("An answer without citations.", results)
		assert.NotNil(t, refs)
		assert.Empty(t, refs)
	})

	t.Run("long chunk excerpt truncated", func(t *testing.T) {
		long := strings.Repeat("x", 250)
		refs := extractReferences("[Source 1]", []vectorstore.SearchResult{{Content: long, Filename: "long.txt"}})
		require.Len(t, refs, 1)
		assert.Len(t, refs[0].Excerpt, 203)
		assert.True(t, strings.HasSuffix(refs[0].Excerpt, "..."))
	})

	t.Run("missing filename reported as Unknown", func(t *testing.T) {
		refs := extractReferences("[Source 1]", []vectorstore.SearchResult{{Content: "orphan"}})
		require.Len(t, refs, 1)
		assert.Equal(t, "Unknown", refs[0].Filename)
	})
}

func TestTransportChunks(t *testing.T) {
	long := strings.Repeat("y", 400)
	chunks := transportChunks([]vectorstore.SearchResult{
		{Content: long, Score: 0.5, Filename: "big.txt"},
		{Content: "short", Score: 0.4, Filename: "small.txt"},
	})

	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0].Text, 303)
	assert.True(t, strings.HasSuffix(chunks[0].Text, "..."))
	assert.Equal(t, "short", chunks[1].Text)
	assert.InDelta(t, 0.4, chunks[1].Score, 0.001)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "short", 10, "short"},
		{"at limit", "exactly10!", 10, "exactly10!"},
		{"over limit", "this is too long", 7, "this is..."},
		{"empty", "", 5, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncate(tt.in, tt.limit))
		})
	}
}
