package domain

// Default search parameters.
const (
	// DefaultSearchLimit is the maximum number of results when unset.
	DefaultSearchLimit = 5

	// DefaultSearchThreshold is the minimum similarity score when unset.
	DefaultSearchThreshold = 0.7
)

// SearchOptions controls a similarity search.
type SearchOptions struct {
	// Limit is the maximum number of results to return (default 5).
	Limit int

	// Threshold is the minimum similarity score, in [0, 1] where 1.0
	// means identical (default 0.7).
	Threshold float64

	// DocumentIDs, when non-empty, restricts candidates to chunks whose
	// parent document is in the set.
	DocumentIDs []string
}

// Normalize fills unset options with defaults.
func (o SearchOptions) Normalize() SearchOptions {
	if o.Limit <= 0 {
		o.Limit = DefaultSearchLimit
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultSearchThreshold
	}
	return o
}

// SearchResult is one ranked similarity match. It is computed per query and
// never persisted.
type SearchResult struct {
	// ChunkID is the matched chunk.
	ChunkID string `json:"chunk_id"`

	// DocumentID is the chunk's parent document.
	DocumentID string `json:"document_id"`

	// Content is the chunk text.
	Content string `json:"content"`

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int `json:"chunk_index"`

	// Metadata contains the chunk's key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// SimilarityScore is the cosine similarity to the query, where 1.0
	// means identical. Results are ordered by this, descending.
	SimilarityScore float64 `json:"similarity_score"`

	// DocumentFilename is the parent document's file name, empty when the
	// document record is missing.
	DocumentFilename string `json:"document_filename,omitempty"`

	// DocumentContentType is the parent document's MIME type, empty when
	// the document record is missing.
	DocumentContentType string `json:"document_content_type,omitempty"`
}

// IndexStats describes the similarity index and its backing table.
type IndexStats struct {
	// TotalChunks is the number of stored chunks.
	TotalChunks int `json:"total_chunks"`

	// EmbeddingDimension is the store-wide vector dimension.
	EmbeddingDimension int `json:"embedding_dimension"`

	// IndexSize is the size of the similarity index in bytes.
	IndexSize int64 `json:"index_size"`

	// TableSize is the approximate size of the chunks table in bytes.
	TableSize int64 `json:"table_size"`

	// Lists is the partition count of the current index, 0 when no index
	// has been built.
	Lists int `json:"lists"`
}
