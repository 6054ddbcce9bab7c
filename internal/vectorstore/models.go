package vectorstore

// Chunk metadata keys. Every stored chunk carries all five.
const (
	metaDocumentID = "document_id"
	metaFilename   = "filename"
	metaChunkID    = "chunk_id"
	metaCharCount  = "char_count"
	metaDisease    = "disease"
)

// SearchResult is one retrieved chunk with its similarity score.
type SearchResult struct {
	// ID is the chunk key, "{documentID}_chunk_{chunkID}".
	ID string `json:"id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// Score is the similarity score in [0,1] (higher = more similar).
	Score float32 `json:"score"`

	// DocumentID identifies the document this chunk belongs to.
	DocumentID string `json:"document_id"`

	// Filename is the name of the uploaded file the chunk came from.
	Filename string `json:"filename"`

	// ChunkID is the chunk's position within its document, starting at 0.
	ChunkID int `json:"chunk_id"`
}

// DocumentInfo describes one document derived from chunk metadata.
type DocumentInfo struct {
	// DocumentID is the unique identifier assigned at ingestion.
	DocumentID string `json:"document_id"`

	// Filename is the name of the uploaded file.
	Filename string `json:"filename"`

	// ChunkCount is the number of chunks stored for this document.
	ChunkCount int `json:"chunk_count"`
}

// CollectionInfo describes one disease collection.
type CollectionInfo struct {
	// Name is the sanitized collection name.
	Name string `json:"name"`

	// DisplayName is the human-readable disease name the collection was
	// created with. Falls back to Name when unknown.
	DisplayName string `json:"display_name"`

	// ChunkCount is the total number of chunks across all documents.
	ChunkCount int `json:"chunk_count"`
}
