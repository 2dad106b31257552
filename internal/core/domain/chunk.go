package domain

import "time"

// ChunkDraft is the chunker's output before embedding and persistence.
// It carries no ID or vector yet; the ingestion pipeline fills those in.
type ChunkDraft struct {
	// Content is the text content of the draft.
	Content string

	// ChunkIndex is the ordinal position within the parent document,
	// starting at 0 in emission order.
	ChunkIndex int

	// Metadata contains key-value pairs attached at chunking time.
	Metadata map[string]any
}

// Chunk is the stored unit of retrieval: a bounded slice of document text
// together with its embedding vector.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// ChunkIndex is the ordinal position within the document.
	// Unique per document.
	ChunkIndex int

	// Embedding is the vector representation used for similarity search.
	// Its length must equal the store's configured dimension.
	Embedding []float32

	// Metadata contains chunk-specific key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time

	// UpdatedAt is when the chunk was last updated.
	UpdatedAt time.Time
}
