package driven

import (
	"context"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// ChunkStore persists chunks and their embeddings.
// Backed by SQLite; every vector is validated against the store's
// configured embedding dimension.
type ChunkStore interface {
	// CreateOne persists a single chunk, assigning an ID when absent.
	// Returns domain.ErrDimensionMismatch on a bad vector and
	// domain.ErrIntegrity when the parent document does not exist or the
	// chunk index is already taken.
	CreateOne(ctx context.Context, chunk *domain.Chunk) (*domain.Chunk, error)

	// CreateBatch persists chunks atomically: either all chunks in the
	// batch are stored or none are.
	CreateBatch(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error)

	// GetByID retrieves a chunk, including its embedding.
	GetByID(ctx context.Context, id string) (*domain.Chunk, error)

	// GetByDocumentID returns a document's chunks ordered by chunk index.
	GetByDocumentID(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// DeleteByID removes a single chunk.
	DeleteByID(ctx context.Context, id string) error

	// DeleteByDocumentID removes all chunks of a document and reports how
	// many were deleted.
	DeleteByDocumentID(ctx context.Context, documentID string) (int, error)
}

// Stores groups the record stores that can share one transaction.
type Stores interface {
	// Chunks returns the chunk store view.
	Chunks() ChunkStore

	// Documents returns the document store view.
	Documents() DocumentStore
}

// TxRunner runs a function inside a single store transaction, so callers
// can batch multiple operations (insert chunks, then update the parent
// document's status) into one atomic unit.
type TxRunner interface {
	// InTx runs fn against transaction-bound store views. Any error rolls
	// the whole transaction back.
	InTx(ctx context.Context, fn func(stores Stores) error) error
}

// DocumentStore persists document records.
type DocumentStore interface {
	// Save stores or updates a document.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document. Its chunks are removed with it.
	Delete(ctx context.Context, id string) error
}
