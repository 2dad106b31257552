package driving

import (
	"context"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// IngestionService turns raw document text into stored, searchable chunks.
type IngestionService interface {
	// ChunkAndPrepare splits text into drafts ready for embedding. Empty
	// or whitespace-only text yields an empty slice, not an error.
	ChunkAndPrepare(text string, metadata map[string]any) ([]domain.ChunkDraft, error)

	// IngestDocument chunks and embeds text, then persists the document
	// and all chunks in one transaction.
	IngestDocument(ctx context.Context, doc *domain.Document, text string) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks, reporting the
	// number of chunks deleted.
	DeleteDocument(ctx context.Context, documentID string) (int, error)
}
