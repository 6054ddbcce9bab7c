// Package chunker splits extracted document text into overlapping,
// bounded-size passages suitable for independent retrieval.
//
// Splitting happens on blank-line paragraph boundaries so a chunk never cuts
// a paragraph in half, and consecutive chunks share a configurable character
// overlap so context spanning a boundary survives retrieval.
package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig indicates an invalid chunker configuration.
var ErrInvalidConfig = errors.New("invalid chunker config")

const (
	// DefaultChunkSize is the default target chunk size in characters.
	DefaultChunkSize = 1000

	// DefaultOverlap is the default number of trailing characters carried
	// into the next chunk.
	DefaultOverlap = 200
)

// paragraphSeparator joins paragraphs inside a chunk and delimits them in
// the source text.
const paragraphSeparator = "\n\n"

// Config holds configuration for a Chunker.
type Config struct {
	// ChunkSize is the target maximum characters per chunk. A chunk closes
	// before a paragraph that would push the buffer past this size.
	ChunkSize int

	// Overlap is the number of trailing characters of a closed chunk that
	// seed the next one. Must be strictly smaller than ChunkSize.
	Overlap int
}

// DefaultConfig returns a Config with the default chunk size and overlap.
func DefaultConfig() Config {
	return Config{
		ChunkSize: DefaultChunkSize,
		Overlap:   DefaultOverlap,
	}
}

// ApplyDefaults fills unset fields with default values. An explicit ChunkSize
// keeps whatever Overlap was given, zero meaning no overlap; only a fully
// unset config takes the default pair.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
		if c.Overlap == 0 {
			c.Overlap = DefaultOverlap
		}
	}
}

// Validate checks the configuration. An overlap that is not strictly smaller
// than the chunk size would stall the overlap seeding step, so it is rejected
// here rather than detected mid-ingest.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.Overlap < 0 {
		return fmt.Errorf("%w: overlap must be non-negative, got %d", ErrInvalidConfig, c.Overlap)
	}
	if c.Overlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap (%d) must be smaller than chunk size (%d)",
			ErrInvalidConfig, c.Overlap, c.ChunkSize)
	}
	return nil
}

// Chunk is one bounded text passage. IDs are assigned sequentially from 0 in
// emission order and are unique within a document.
type Chunk struct {
	ID        int    `json:"id"`
	Text      string `json:"text"`
	CharCount int    `json:"char_count"`
}

// Chunker splits text into overlapping passages.
type Chunker struct {
	config Config
}

// New creates a Chunker, applying defaults and validating the configuration.
func New(config Config) (*Chunker, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{config: config}, nil
}

// Config returns the effective configuration.
func (c *Chunker) Config() Config {
	return c.config
}

// Chunk splits text into passages.
//
// Paragraphs (blank-line separated) are greedily accumulated into a buffer.
// When adding a paragraph would push the buffer past ChunkSize, the buffer is
// closed and emitted, and the next buffer is seeded with the closed buffer's
// trailing Overlap characters followed by the triggering paragraph. A
// paragraph arriving at an empty buffer is buffered even when it exceeds
// ChunkSize on its own; it closes at the next boundary or at the end, so an
// oversized paragraph becomes a single oversized chunk rather than looping.
//
// Emitted text is whitespace-trimmed and CharCount always equals the length
// of the trimmed text. Empty or whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	var chunks []Chunk

	paragraphs := strings.Split(text, paragraphSeparator)
	current := ""
	id := 0

	for _, para := range paragraphs {
		if len(current)+len(para) > c.config.ChunkSize {
			if current != "" {
				if emitted := strings.TrimSpace(current); emitted != "" {
					chunks = append(chunks, Chunk{ID: id, Text: emitted, CharCount: len(emitted)})
					id++
				}

				// Seed the next buffer from the untrimmed tail so the
				// overlap length is exact.
				overlapStart := len(current) - c.config.Overlap
				if overlapStart < 0 {
					overlapStart = 0
				}
				current = current[overlapStart:] + paragraphSeparator + para
			} else {
				current = para
			}
		} else {
			if current != "" {
				current += paragraphSeparator + para
			} else {
				current = para
			}
		}
	}

	if emitted := strings.TrimSpace(current); emitted != "" {
		chunks = append(chunks, Chunk{ID: id, Text: emitted, CharCount: len(emitted)})
	}

	return chunks
}
