package domain

import "time"

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	// StatusPending means the document is registered but not yet processed.
	StatusPending DocumentStatus = "pending"

	// StatusProcessing means chunking/embedding is in progress.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted means all chunks are stored and searchable.
	StatusCompleted DocumentStatus = "completed"

	// StatusFailed means ingestion was aborted; no chunks are stored.
	StatusFailed DocumentStatus = "failed"
)

// Document represents an ingested source document. Chunks reference their
// parent document and are removed with it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string `json:"id"`

	// Filename is the original file name, used to enrich search results.
	Filename string `json:"filename"`

	// ContentType is the MIME type of the original file.
	ContentType string `json:"content_type"`

	// Size is the original file size in bytes.
	Size int64 `json:"size"`

	// Status is the ingestion state of the document.
	Status DocumentStatus `json:"status"`

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt is when the document was first registered.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time `json:"updated_at"`
}
