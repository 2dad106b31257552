package services

import (
	"context"
	"fmt"

	"github.com/jazz-17/kiro-chatbot/internal/chunker"
	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driving"
	"github.com/jazz-17/kiro-chatbot/internal/logger"
)

// Ensure IngestionService implements the interface.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService turns raw document text into stored, searchable chunks:
// split, embed, persist. Chunks and the parent document's status land in
// one transaction, so a document is never marked completed with a partial
// chunk set.
//
// Callers must serialize ingestion per document: chunk indices are unique
// per document and concurrent writers for the same document collide.
type IngestionService struct {
	splitter  *chunker.Chunker
	runner    driven.TxRunner
	documents driven.DocumentStore
	embedder  driven.EmbeddingService
}

// NewIngestionService creates an ingestion service. The embedder may be
// nil; ingesting non-empty text then fails with domain.ErrEmbeddingFailed
// instead of storing unembedded chunks.
func NewIngestionService(
	splitter *chunker.Chunker,
	runner driven.TxRunner,
	documents driven.DocumentStore,
	embedder driven.EmbeddingService,
) *IngestionService {
	return &IngestionService{
		splitter:  splitter,
		runner:    runner,
		documents: documents,
		embedder:  embedder,
	}
}

// ChunkAndPrepare splits text into drafts ready for embedding.
func (s *IngestionService) ChunkAndPrepare(text string, metadata map[string]any) ([]domain.ChunkDraft, error) {
	return s.splitter.Split(text, metadata), nil
}

// IngestDocument chunks and embeds text, then persists the document and all
// chunks atomically. On failure the document is marked failed and no chunks
// remain stored.
func (s *IngestionService) IngestDocument(
	ctx context.Context, doc *domain.Document, text string,
) ([]domain.Chunk, error) {
	logger.Section("Ingestion")
	logger.Debug("Document: %s (%s)", doc.Filename, doc.ID)

	doc.Status = domain.StatusProcessing
	if err := s.documents.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("registering document: %w", err)
	}

	stored, err := s.ingest(ctx, doc, text)
	if err != nil {
		doc.Status = domain.StatusFailed
		if saveErr := s.documents.Save(ctx, doc); saveErr != nil {
			logger.Warn("Marking document %s failed: %v", doc.ID, saveErr)
		}
		return nil, err
	}

	logger.Info("Ingested %d chunks for document %s", len(stored), doc.ID)
	return stored, nil
}

func (s *IngestionService) ingest(
	ctx context.Context, doc *domain.Document, text string,
) ([]domain.Chunk, error) {
	drafts, err := s.ChunkAndPrepare(text, doc.Metadata)
	if err != nil {
		return nil, err
	}
	logger.Debug("Split into %d chunks", len(drafts))

	var chunks []domain.Chunk
	if len(drafts) > 0 {
		if s.embedder == nil {
			return nil, fmt.Errorf("no embedding service configured: %w", domain.ErrEmbeddingFailed)
		}

		texts := make([]string, len(drafts))
		for i, draft := range drafts {
			texts[i] = draft.Content
		}

		embeddings, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks: %w", err)
		}
		if len(embeddings) != len(drafts) {
			return nil, fmt.Errorf("expected %d embeddings, got %d: %w",
				len(drafts), len(embeddings), domain.ErrEmbeddingFailed)
		}

		chunks = make([]domain.Chunk, len(drafts))
		for i, draft := range drafts {
			chunks[i] = domain.Chunk{
				DocumentID: doc.ID,
				Content:    draft.Content,
				ChunkIndex: draft.ChunkIndex,
				Embedding:  embeddings[i],
				Metadata:   draft.Metadata,
			}
		}
	}

	var stored []domain.Chunk
	err = s.runner.InTx(ctx, func(stores driven.Stores) error {
		if len(chunks) > 0 {
			var err error
			stored, err = stores.Chunks().CreateBatch(ctx, chunks)
			if err != nil {
				return fmt.Errorf("storing chunks: %w", err)
			}
		}

		doc.Status = domain.StatusCompleted
		if err := stores.Documents().Save(ctx, doc); err != nil {
			return fmt.Errorf("completing document: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stored, nil
}

// DeleteDocument removes a document and its chunks in one transaction,
// reporting how many chunks were deleted.
func (s *IngestionService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	var deleted int
	err := s.runner.InTx(ctx, func(stores driven.Stores) error {
		n, err := stores.Chunks().DeleteByDocumentID(ctx, documentID)
		if err != nil {
			return fmt.Errorf("deleting chunks: %w", err)
		}
		deleted = n

		if err := stores.Documents().Delete(ctx, documentID); err != nil {
			return fmt.Errorf("deleting document: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.Info("Deleted document %s and %d chunks", documentID, deleted)
	return deleted, nil
}
