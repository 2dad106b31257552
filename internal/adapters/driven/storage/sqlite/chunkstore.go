package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
)

// chunkStore implements driven.ChunkStore. When db is nil the store is
// bound to a caller-supplied transaction and batch writes rely on that
// transaction's boundary instead of opening their own.
type chunkStore struct {
	q   querier
	db  *sql.DB
	dim int
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = "id, document_id, content, chunk_index, embedding, metadata, created_at, updated_at"

// CreateOne persists a single chunk, assigning an ID if absent.
func (s *chunkStore) CreateOne(ctx context.Context, chunk *domain.Chunk) (*domain.Chunk, error) {
	if err := s.validate(chunk); err != nil {
		return nil, err
	}

	stored := *chunk
	prepareChunk(&stored)

	if err := insertChunk(ctx, s.q, &stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

// CreateBatch persists chunks atomically: a failure mid-batch leaves no
// rows behind for the batch.
func (s *chunkStore) CreateBatch(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		if err := s.validate(&chunks[i]); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	stored := make([]domain.Chunk, len(chunks))
	copy(stored, chunks)
	for i := range stored {
		prepareChunk(&stored[i])
	}

	insertAll := func(q querier) error {
		for i := range stored {
			if err := insertChunk(ctx, q, &stored[i]); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
		}
		return nil
	}

	// Transaction-bound stores write within the caller's boundary.
	if s.db == nil {
		if err := insertAll(s.q); err != nil {
			return nil, err
		}
		return stored, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertAll(tx); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return stored, nil
}

// GetByID retrieves a chunk by ID.
func (s *chunkStore) GetByID(ctx context.Context, id string) (*domain.Chunk, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks WHERE id = ?
	`, id)

	chunk, err := scanChunk(row)
	if err != nil {
		return nil, err
	}
	return chunk, nil
}

// GetByDocumentID returns a document's chunks ordered by chunk index.
func (s *chunkStore) GetByDocumentID(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+chunkColumns+` FROM chunks
		WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// DeleteByID removes a single chunk.
func (s *chunkStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, "DELETE FROM chunks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting chunk: %w", err)
	}
	return nil
}

// DeleteByDocumentID removes all chunks of a document, returning the count.
func (s *chunkStore) DeleteByDocumentID(ctx context.Context, documentID string) (int, error) {
	res, err := s.q.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted chunks: %w", err)
	}
	return int(n), nil
}

// validate enforces the store-wide invariants on a chunk before writing.
func (s *chunkStore) validate(chunk *domain.Chunk) error {
	if chunk.DocumentID == "" {
		return fmt.Errorf("missing document id: %w", domain.ErrInvalidInput)
	}
	if chunk.ChunkIndex < 0 {
		return fmt.Errorf("negative chunk index %d: %w", chunk.ChunkIndex, domain.ErrInvalidInput)
	}
	if len(chunk.Embedding) != s.dim {
		return fmt.Errorf("embedding dimension %d does not match expected dimension %d: %w",
			len(chunk.Embedding), s.dim, domain.ErrDimensionMismatch)
	}
	return nil
}

// prepareChunk assigns an ID and timestamps before insertion.
func prepareChunk(chunk *domain.Chunk) {
	if chunk.ID == "" {
		chunk.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = now
	}
	chunk.UpdatedAt = now
}

func insertChunk(ctx context.Context, q querier, chunk *domain.Chunk) error {
	metadataJSON, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling chunk metadata: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, chunk.ID, chunk.DocumentID, chunk.Content, chunk.ChunkIndex,
		float32SliceToBytes(chunk.Embedding), string(metadataJSON),
		chunk.CreatedAt, chunk.UpdatedAt)

	if err != nil {
		return fmt.Errorf("saving chunk: %w", mapWriteErr(err))
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanChunk scans a chunk row.
func scanChunk(row rowScanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON string

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content, &chunk.ChunkIndex,
		&embeddingBlob, &metadataJSON, &chunk.CreatedAt, &chunk.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
