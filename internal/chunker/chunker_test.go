package chunker_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/ragd/internal/chunker"
)

func newTestChunker(t *testing.T, size, overlap int) *chunker.Chunker {
	t.Helper()
	c, err := chunker.New(chunker.Config{ChunkSize: size, Overlap: overlap})
	require.NoError(t, err)
	return c
}

// para builds a paragraph of exactly n copies of one letter so chunk sizes
// and overlap prefixes can be asserted byte-for-byte.
func para(letter string, n int) string {
	return strings.Repeat(letter, n)
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		config  chunker.Config
		wantErr bool
	}{
		{
			name:   "valid",
			config: chunker.Config{ChunkSize: 1000, Overlap: 200},
		},
		{
			name:   "zero config takes defaults",
			config: chunker.Config{},
		},
		{
			name:   "explicit size with zero overlap",
			config: chunker.Config{ChunkSize: 100},
		},
		{
			name:    "overlap equal to size",
			config:  chunker.Config{ChunkSize: 100, Overlap: 100},
			wantErr: true,
		},
		{
			name:    "overlap larger than size",
			config:  chunker.Config{ChunkSize: 100, Overlap: 150},
			wantErr: true,
		},
		{
			name:    "negative size",
			config:  chunker.Config{ChunkSize: -1, Overlap: 0},
			wantErr: true,
		},
		{
			name:    "negative overlap",
			config:  chunker.Config{ChunkSize: 100, Overlap: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := chunker.New(tt.config)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, chunker.ErrInvalidConfig)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, c)
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := chunker.New(chunker.Config{})
	require.NoError(t, err)

	cfg := c.Config()
	assert.Equal(t, chunker.DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, chunker.DefaultOverlap, cfg.Overlap)
}

func TestChunk_EmptyInput(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\n  \n\n\t"))
}

func TestChunk_SingleParagraph(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	chunks := c.Chunk("Influenza is a respiratory infection caused by influenza viruses.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].ID)
	assert.Equal(t, "Influenza is a respiratory infection caused by influenza viruses.", chunks[0].Text)
	assert.Equal(t, len(chunks[0].Text), chunks[0].CharCount)
}

func TestChunk_SmallParagraphsMerge(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	chunks := c.Chunk("alpha\n\nbeta")
	require.Len(t, chunks, 1)
	assert.Equal(t, "alpha\n\nbeta", chunks[0].Text)
	assert.Equal(t, 11, chunks[0].CharCount)
}

// Boundary fires at the second paragraph: 400+700 exceeds the 1000 budget, so
// the first paragraph closes alone and each later chunk opens with the 200
// trailing characters of its predecessor.
func TestChunk_OverlapSeeding(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	text := para("a", 400) + "\n\n" + para("b", 700) + "\n\n" + para("c", 500)
	chunks := c.Chunk(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, 400, chunks[0].CharCount)
	assert.Equal(t, 902, chunks[1].CharCount)
	assert.Equal(t, 702, chunks[2].CharCount)

	assert.True(t, strings.HasPrefix(chunks[1].Text, para("a", 200)),
		"second chunk should open with the last 200 chars of the first")
	assert.True(t, strings.HasPrefix(chunks[2].Text, para("b", 200)),
		"third chunk should open with the last 200 chars of the second")

	for i, ch := range chunks {
		assert.Equal(t, i, ch.ID)
		assert.Equal(t, len(ch.Text), ch.CharCount)
	}
}

// Two paragraphs that fit the budget together merge into one chunk slightly
// over ChunkSize; the third paragraph triggers the only boundary.
func TestChunk_MergeThenBoundaryAtThird(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	text := para("a", 400) + "\n\n" + para("b", 600) + "\n\n" + para("c", 500)
	chunks := c.Chunk(text)

	require.Len(t, chunks, 2)
	assert.Equal(t, 1002, chunks[0].CharCount, "first two paragraphs merge past ChunkSize")
	assert.Equal(t, 702, chunks[1].CharCount)
	assert.True(t, strings.HasPrefix(chunks[1].Text, para("b", 200)),
		"second chunk should open with the last 200 chars of the first")
}

func TestChunk_OversizedParagraphAlone(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	t.Run("single oversized paragraph", func(t *testing.T) {
		chunks := c.Chunk(para("x", 1500))
		require.Len(t, chunks, 1)
		assert.Equal(t, 1500, chunks[0].CharCount)
	})

	t.Run("oversized then small", func(t *testing.T) {
		chunks := c.Chunk(para("x", 1500) + "\n\n" + para("y", 100))
		require.Len(t, chunks, 2)
		assert.Equal(t, 1500, chunks[0].CharCount)
		assert.Equal(t, 302, chunks[1].CharCount)
		assert.True(t, strings.HasPrefix(chunks[1].Text, para("x", 200)))
	})

	t.Run("small then oversized", func(t *testing.T) {
		chunks := c.Chunk(para("x", 300) + "\n\n" + para("y", 1500))
		require.Len(t, chunks, 2)
		assert.Equal(t, 300, chunks[0].CharCount)
		// Seed is the trailing 200 of the 300-char chunk plus the separator
		// and the oversized paragraph.
		assert.Equal(t, 1702, chunks[1].CharCount)
	})
}

// With prose-sized paragraphs every chunk respects the ChunkSize+Overlap
// bound; only a single paragraph larger than ChunkSize may exceed it.
func TestChunk_BoundInvariant(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	paragraphs := make([]string, 30)
	for i := range paragraphs {
		paragraphs[i] = para("p", 120)
	}
	chunks := c.Chunk(strings.Join(paragraphs, "\n\n"))

	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.ID, "chunk IDs must be gapless from 0")
		assert.Equal(t, len(ch.Text), ch.CharCount)
		assert.LessOrEqual(t, ch.CharCount, 1000+200,
			"chunk %d exceeds ChunkSize+Overlap", i)
	}
}

// Stripping each chunk's overlap prefix and concatenating the remainders
// reconstructs the original paragraph sequence.
func TestChunk_Reconstruction(t *testing.T) {
	c := newTestChunker(t, 1000, 200)

	text := para("a", 400) + "\n\n" + para("b", 700) + "\n\n" + para("c", 500)
	chunks := c.Chunk(text)
	require.Len(t, chunks, 3)

	reconstructed := chunks[0].Text
	for _, ch := range chunks[1:] {
		reconstructed += ch.Text[c.Config().Overlap:]
	}
	assert.Equal(t, text, reconstructed)
}
