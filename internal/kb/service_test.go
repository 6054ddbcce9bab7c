package kb

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
	"github.com/fyrsmithlabs/ragd/internal/extract"
	"github.com/fyrsmithlabs/ragd/internal/rag"
	"github.com/fyrsmithlabs/ragd/internal/vectorstore"
	"github.com/fyrsmithlabs/ragd/internal/verify"
)

type mockStore struct {
	upsertDisease  string
	upsertDocID    string
	upsertFilename string
	upsertChunks   []chunker.Chunk
	upsertErr      error
	upsertCalls    int

	docs        []vectorstore.DocumentInfo
	docDeleted  bool
	collections []vectorstore.CollectionInfo
	collDeleted bool
	created     string
}

func (m *mockStore) UpsertChunks(_ context.Context, disease, documentID, filename string, chunks []chunker.Chunk) (int, error) {
	m.upsertCalls++
	m.upsertDisease = disease
	m.upsertDocID = documentID
	m.upsertFilename = filename
	m.upsertChunks = chunks
	if m.upsertErr != nil {
		return 0, m.upsertErr
	}
	return len(chunks), nil
}

func (m *mockStore) Search(_ context.Context, _, _ string, _ int) ([]vectorstore.SearchResult, error) {
	return nil, nil
}

func (m *mockStore) DeleteDocument(_ context.Context, _, _ string) (bool, error) {
	return m.docDeleted, nil
}

func (m *mockStore) Documents(_ context.Context, _ string) ([]vectorstore.DocumentInfo, error) {
	return m.docs, nil
}

func (m *mockStore) CreateCollection(_ context.Context, disease string) error {
	m.created = disease
	return nil
}

func (m *mockStore) DeleteCollection(_ context.Context, _ string) (bool, error) {
	return m.collDeleted, nil
}

func (m *mockStore) ListCollections(_ context.Context) ([]vectorstore.CollectionInfo, error) {
	return m.collections, nil
}

func (m *mockStore) Count(_ context.Context, _ string) (int, error) { return 0, nil }

func (m *mockStore) Close() error { return nil }

type mockGenerator struct {
	result   *rag.GenerationResult
	lastTopK int
}

func (m *mockGenerator) Answer(_ context.Context, _, _ string, topK int) (*rag.GenerationResult, error) {
	m.lastTopK = topK
	return m.result, nil
}

type mockVerifier struct {
	result   *verify.Result
	lastOpts verify.Options
}

func (m *mockVerifier) Run(_ context.Context, _, _ string, opts verify.Options) (*verify.Result, error) {
	m.lastOpts = opts
	return m.result, nil
}

func newTestService(t *testing.T, store *mockStore) (*Service, *mockGenerator, *mockVerifier) {
	t.Helper()

	ck, err := chunker.New(chunker.DefaultConfig())
	require.NoError(t, err)

	gen := &mockGenerator{result: &rag.GenerationResult{Answer: "generated", Outcome: rag.OutcomeAnswered}}
	ver := &mockVerifier{result: &verify.Result{Answer: "verified", Verified: true, Confidence: 0.9}}

	svc, err := NewService(Config{}, store, ck, gen, ver, zap.NewNop())
	require.NoError(t, err)
	return svc, gen, ver
}

func TestNewService(t *testing.T) {
	store := &mockStore{}
	ck, err := chunker.New(chunker.DefaultConfig())
	require.NoError(t, err)
	gen := &mockGenerator{}
	ver := &mockVerifier{}

	t.Run("defaults applied", func(t *testing.T) {
		svc, err := NewService(Config{}, store, ck, gen, ver, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, 5, svc.config.TopK)
	})

	t.Run("nil store", func(t *testing.T) {
		_, err := NewService(Config{}, nil, ck, gen, ver, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("nil chunker", func(t *testing.T) {
		_, err := NewService(Config{}, store, nil, gen, ver, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("nil generator", func(t *testing.T) {
		_, err := NewService(Config{}, store, ck, nil, ver, zap.NewNop())
		require.Error(t, err)
	})

	t.Run("nil verifier", func(t *testing.T) {
		_, err := NewService(Config{}, store, ck, gen, nil, zap.NewNop())
		require.Error(t, err)
	})
}

func TestService_Ingest(t *testing.T) {
	store := &mockStore{}
	svc, _, _ := newTestService(t, store)

	data := []byte("Influenza is a contagious respiratory illness.\n\nIt spreads mainly by droplets.")
	result, err := svc.Ingest(context.Background(), "influenza", "flu-facts.txt", data)
	require.NoError(t, err)

	assert.Equal(t, "flu-facts.txt", result.Filename)
	assert.Equal(t, "influenza", result.Disease)
	assert.Equal(t, 1, result.ChunksAdded)

	_, err = uuid.Parse(result.DocumentID)
	assert.NoError(t, err, "document id must be a UUID")

	assert.Equal(t, "influenza", store.upsertDisease)
	assert.Equal(t, result.DocumentID, store.upsertDocID)
	assert.Equal(t, "flu-facts.txt", store.upsertFilename)
	require.Len(t, store.upsertChunks, 1)
	assert.Contains(t, store.upsertChunks[0].Text, "contagious respiratory illness")
}

func TestService_Ingest_JSONDocument(t *testing.T) {
	store := &mockStore{}
	svc, _, _ := newTestService(t, store)

	data := []byte(`{"disease": "influenza", "symptoms": ["fever", "cough"]}`)
	result, err := svc.Ingest(context.Background(), "influenza", "profile.json", data)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ChunksAdded)
	require.Len(t, store.upsertChunks, 1)
	assert.Contains(t, store.upsertChunks[0].Text, "disease: influenza")
	assert.Contains(t, store.upsertChunks[0].Text, "- fever")
}

func TestService_Ingest_UnsupportedFormat(t *testing.T) {
	store := &mockStore{}
	svc, _, _ := newTestService(t, store)

	_, err := svc.Ingest(context.Background(), "influenza", "scan.pdf", []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, extract.ErrUnsupportedFormat))
	assert.Zero(t, store.upsertCalls, "nothing may be stored on rejection")
}

func TestService_Ingest_NoContent(t *testing.T) {
	store := &mockStore{}
	svc, _, _ := newTestService(t, store)

	tests := []struct {
		name     string
		filename string
		data     string
	}{
		{"empty text file", "empty.txt", ""},
		{"whitespace only", "blank.txt", "   \n\n  \t"},
		{"empty JSON object", "empty.json", "{}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), "influenza", tt.filename, []byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrNoContent))
		})
	}
	assert.Zero(t, store.upsertCalls)
}

func TestService_Ingest_StoreError(t *testing.T) {
	store := &mockStore{upsertErr: errors.New("disk full")}
	svc, _, _ := newTestService(t, store)

	_, err := svc.Ingest(context.Background(), "influenza", "flu.txt", []byte("some content"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing chunks")
}

func TestService_Ingest_UniqueDocumentIDs(t *testing.T) {
	store := &mockStore{}
	svc, _, _ := newTestService(t, store)

	first, err := svc.Ingest(context.Background(), "influenza", "a.txt", []byte("content one"))
	require.NoError(t, err)
	second, err := svc.Ingest(context.Background(), "influenza", "b.txt", []byte("content two"))
	require.NoError(t, err)

	assert.NotEqual(t, first.DocumentID, second.DocumentID)
}

func TestService_Query(t *testing.T) {
	svc, _, ver := newTestService(t, &mockStore{})

	opts := verify.Options{MaxAttempts: 3}
	result, err := svc.Query(context.Background(), "influenza", "How does flu spread?", opts)
	require.NoError(t, err)

	assert.Equal(t, "verified", result.Answer)
	assert.Equal(t, 3, ver.lastOpts.MaxAttempts)
}

func TestService_QuerySimple(t *testing.T) {
	svc, gen, _ := newTestService(t, &mockStore{})

	result, err := svc.QuerySimple(context.Background(), "influenza", "How does flu spread?")
	require.NoError(t, err)

	assert.Equal(t, "generated", result.Answer)
	assert.Equal(t, 5, gen.lastTopK, "simple queries use the configured depth")
}

func TestService_Delegations(t *testing.T) {
	store := &mockStore{
		docs:        []vectorstore.DocumentInfo{{DocumentID: "d1", Filename: "a.txt", ChunkCount: 3}},
		collections: []vectorstore.CollectionInfo{{Name: "influenza", DisplayName: "Influenza", ChunkCount: 3}},
		docDeleted:  true,
		collDeleted: false,
	}
	svc, _, _ := newTestService(t, store)
	ctx := context.Background()

	docs, err := svc.Documents(ctx, "influenza")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "d1", docs[0].DocumentID)

	removed, err := svc.DeleteDocument(ctx, "influenza", "d1")
	require.NoError(t, err)
	assert.True(t, removed)

	colls, err := svc.Collections(ctx)
	require.NoError(t, err)
	require.Len(t, colls, 1)
	assert.Equal(t, "Influenza", colls[0].DisplayName)

	require.NoError(t, svc.CreateCollection(ctx, "Type 2 Diabetes"))
	assert.Equal(t, "Type 2 Diabetes", store.created)

	deleted, err := svc.DeleteCollection(ctx, "measles")
	require.NoError(t, err)
	assert.False(t, deleted, "missing collection reports false, not an error")
}
