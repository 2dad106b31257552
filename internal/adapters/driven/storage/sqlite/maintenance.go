package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
	"github.com/jazz-17/kiro-chatbot/internal/index/ivf"
	"github.com/jazz-17/kiro-chatbot/internal/logger"
)

// approxAssignmentBytes estimates the stored size of one vector_index row
// (uuid text key plus cell integer) for the stats report.
const approxAssignmentBytes = 44

var _ driven.IndexMaintainer = (*Store)(nil)

// Optimize drops and rebuilds the IVF similarity index, sizing the
// partition count to clamp(round(sqrt(chunk count)), 1, 1000). The rebuild
// runs in a single transaction: any failure rolls back and leaves the
// previous index intact. An empty corpus clears the index.
func (s *Store) Optimize(ctx context.Context) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var total int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&total); err != nil {
		return false, fmt.Errorf("counting chunks: %w", err)
	}

	if total == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM vector_index"); err != nil {
			return false, fmt.Errorf("clearing index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM vector_index_meta"); err != nil {
			return false, fmt.Errorf("clearing index metadata: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("committing transaction: %w", err)
		}
		logger.Info("Cleared vector index for empty corpus")
		return false, nil
	}

	ids, vectors, err := loadEmbeddings(ctx, tx)
	if err != nil {
		return false, err
	}

	lists := ivf.ListsFor(total)
	idx, err := ivf.Train(vectors, lists)
	if err != nil {
		return false, fmt.Errorf("training index: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM vector_index"); err != nil {
		return false, fmt.Errorf("clearing index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO vector_index (chunk_id, cell) VALUES (?, ?)")
	if err != nil {
		return false, fmt.Errorf("preparing assignment statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		cell, err := idx.Assign(vectors[i])
		if err != nil {
			return false, fmt.Errorf("assigning chunk %s: %w", id, err)
		}
		if _, err := stmt.ExecContext(ctx, id, cell); err != nil {
			return false, fmt.Errorf("storing assignment for chunk %s: %w", id, err)
		}
	}

	centroids, err := idx.MarshalBinary()
	if err != nil {
		return false, fmt.Errorf("encoding centroids: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vector_index_meta (id, lists, dimension, centroids, built_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			lists = excluded.lists,
			dimension = excluded.dimension,
			centroids = excluded.centroids,
			built_at = excluded.built_at
	`, idx.Lists(), s.dimension, centroids, time.Now().UTC()); err != nil {
		return false, fmt.Errorf("saving index metadata: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing transaction: %w", err)
	}

	logger.Info("Optimized vector index with %d lists for %d chunks", idx.Lists(), total)
	return true, nil
}

// Stats reports index and table statistics. Sizes are derived from stored
// byte lengths, so they approximate on-disk footprint without touching
// internal SQLite pages. Read-only.
func (s *Store) Stats(ctx context.Context) (*domain.IndexStats, error) {
	stats := &domain.IndexStats{EmbeddingDimension: s.dimension}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&stats.TotalChunks); err != nil {
		return nil, fmt.Errorf("counting chunks: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(LENGTH(content) + LENGTH(embedding) + LENGTH(metadata)), 0) FROM chunks
	`).Scan(&stats.TableSize); err != nil {
		return nil, fmt.Errorf("measuring table: %w", err)
	}

	var centroidBytes int64
	err := s.db.QueryRowContext(ctx,
		"SELECT lists, LENGTH(centroids) FROM vector_index_meta WHERE id = 1",
	).Scan(&stats.Lists, &centroidBytes)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}

	if err == nil {
		var assignments int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM vector_index").Scan(&assignments); err != nil {
			return nil, fmt.Errorf("counting assignments: %w", err)
		}
		stats.IndexSize = centroidBytes + assignments*approxAssignmentBytes
	}

	return stats, nil
}

// loadEmbeddings reads every chunk's id and vector inside the rebuild
// transaction.
func loadEmbeddings(ctx context.Context, tx *sql.Tx) ([]string, [][]float32, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id, embedding FROM chunks")
	if err != nil {
		return nil, nil, fmt.Errorf("loading embeddings: %w", err)
	}
	defer rows.Close()

	var ids []string
	var vectors [][]float32
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, nil, fmt.Errorf("scanning embedding: %w", err)
		}
		ids = append(ids, id)
		vectors = append(vectors, bytesToFloat32Slice(blob))
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating embeddings: %w", err)
	}

	return ids, vectors, nil
}
