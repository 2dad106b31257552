package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
	"github.com/jazz-17/kiro-chatbot/internal/index/ivf"
)

// DefaultOverfetchFactor is how many times opts.Limit rows the fallback
// scan fetches before filtering by threshold. Whether a factor of 2 always
// matches indexed-path recall is unverified; it is a tunable, not a
// guaranteed bound.
const DefaultOverfetchFactor = 2

var (
	_ driven.VectorSearcher = (*IndexedSearcher)(nil)
	_ driven.VectorSearcher = (*ScanSearcher)(nil)
)

const resultColumns = `c.id, c.document_id, c.content, c.chunk_index, c.metadata,
	COALESCE(d.filename, ''), COALESCE(d.content_type, '')`

// IndexedSearcher ranks chunks with the store's native cosine operator.
// Scoring, threshold filtering and the limit all run server-side. When an
// IVF index has been built, the candidate set is narrowed to the query's
// nearest cells first; chunks stored after the last rebuild are always
// candidates.
type IndexedSearcher struct {
	store *Store

	mu       sync.Mutex
	probed   bool
	probeErr error
}

// NewIndexedSearcher creates the indexed-path searcher.
func NewIndexedSearcher(store *Store) *IndexedSearcher {
	return &IndexedSearcher{store: store}
}

// Search implements driven.VectorSearcher.
func (s *IndexedSearcher) Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	opts = opts.Normalize()

	if len(query) != s.store.dimension {
		return nil, fmt.Errorf("query dimension %d does not match expected dimension %d: %w",
			len(query), s.store.dimension, domain.ErrDimensionMismatch)
	}

	if err := s.capability(ctx); err != nil {
		return nil, err
	}

	cells, err := s.probeCells(ctx, query)
	if err != nil {
		return nil, err
	}

	queryBlob := float32SliceToBytes(query)

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + resultColumns + `,
			1.0 - ` + cosineDistanceFunc + `(c.embedding, ?) AS similarity
		FROM chunks c
		LEFT JOIN documents d ON d.id = c.document_id
		WHERE 1.0 - ` + cosineDistanceFunc + `(c.embedding, ?) >= ?`)
	args := []any{queryBlob, queryBlob, opts.Threshold}

	if len(opts.DocumentIDs) > 0 {
		sb.WriteString(" AND c.document_id IN (" + placeholders(len(opts.DocumentIDs)) + ")")
		for _, id := range opts.DocumentIDs {
			args = append(args, id)
		}
	}

	if len(cells) > 0 {
		sb.WriteString(` AND (c.id IN (SELECT chunk_id FROM vector_index WHERE cell IN (` +
			placeholders(len(cells)) + `)) OR c.id NOT IN (SELECT chunk_id FROM vector_index))`)
		for _, cell := range cells {
			args = append(args, cell)
		}
	}

	sb.WriteString(" ORDER BY similarity DESC LIMIT ?")
	args = append(args, opts.Limit)

	rows, err := s.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var results []domain.SearchResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		result, _, err := scanResult(rows, true)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}

	return results, nil
}

// capability probes for the cosine operator. Only a definitive verdict is
// cached: present, or confirmed missing (domain.ErrCapabilityUnavailable).
// A probe query that fails for unrelated reasons, a cancelled context say,
// surfaces as-is and detection runs again on the next search.
func (s *IndexedSearcher) capability(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probed {
		return s.probeErr
	}

	if !s.store.nativeSearch {
		s.probed = true
		s.probeErr = fmt.Errorf("native cosine operator disabled: %w", domain.ErrCapabilityUnavailable)
		return s.probeErr
	}

	var n int
	err := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM pragma_function_list WHERE name = ?", cosineDistanceFunc,
	).Scan(&n)
	if err != nil {
		return fmt.Errorf("probing cosine operator: %w", err)
	}

	s.probed = true
	if n == 0 {
		s.probeErr = fmt.Errorf("cosine operator not registered: %w", domain.ErrCapabilityUnavailable)
	}
	return s.probeErr
}

// probeCells returns the IVF cells nearest to the query, or nil when no
// usable index exists (never an error path for a missing or stale index).
func (s *IndexedSearcher) probeCells(ctx context.Context, query []float32) ([]int, error) {
	var dimension int
	var centroids []byte
	err := s.store.db.QueryRowContext(ctx,
		"SELECT dimension, centroids FROM vector_index_meta WHERE id = 1",
	).Scan(&dimension, &centroids)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading index metadata: %w", err)
	}

	// A stale index built for another dimension is ignored, not an error.
	if dimension != s.store.dimension {
		return nil, nil
	}

	var idx ivf.Index
	if err := idx.UnmarshalBinary(centroids); err != nil {
		return nil, fmt.Errorf("decoding index centroids: %w", err)
	}

	cells, err := idx.Probe(query, 0)
	if err != nil {
		return nil, fmt.Errorf("probing index: %w", err)
	}
	return cells, nil
}

// ScanSearcher is the brute-force fallback used when the native cosine
// operator is unavailable. It over-fetches rows, scores them in-process and
// filters afterwards: exact ranking preserved at the cost of scanning more
// rows.
type ScanSearcher struct {
	store           *Store
	overfetchFactor int
}

// NewScanSearcher creates the fallback searcher.
func NewScanSearcher(store *Store) *ScanSearcher {
	return &ScanSearcher{store: store, overfetchFactor: DefaultOverfetchFactor}
}

// Search implements driven.VectorSearcher.
func (s *ScanSearcher) Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	opts = opts.Normalize()

	if len(query) != s.store.dimension {
		return nil, fmt.Errorf("query dimension %d does not match expected dimension %d: %w",
			len(query), s.store.dimension, domain.ErrDimensionMismatch)
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + resultColumns + `, c.embedding
		FROM chunks c
		LEFT JOIN documents d ON d.id = c.document_id`)
	var args []any

	if len(opts.DocumentIDs) > 0 {
		sb.WriteString(" WHERE c.document_id IN (" + placeholders(len(opts.DocumentIDs)) + ")")
		for _, id := range opts.DocumentIDs {
			args = append(args, id)
		}
	}

	sb.WriteString(" LIMIT ?")
	args = append(args, opts.Limit*s.overfetchFactor)

	rows, err := s.store.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, mapScanErr(ctx, err)
	}
	defer rows.Close()

	var results []domain.SearchResult
	for rows.Next() {
		result, embedding, err := scanResult(rows, false)
		if err != nil {
			return nil, err
		}

		result.SimilarityScore = cosineSimilarity(query, embedding)
		if result.SimilarityScore < opts.Threshold {
			continue
		}
		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, mapScanErr(ctx, err)
	}

	sort.SliceStable(results, func(a, b int) bool {
		return results[a].SimilarityScore > results[b].SimilarityScore
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

// mapScanErr surfaces deadline expiry of a long scan as a retryable search
// timeout instead of a bare context error.
func mapScanErr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, domain.ErrSearchTimeout)
	}
	return fmt.Errorf("similarity scan: %w", err)
}

// scanResult scans one joined chunk+document row. When withScore is true
// the row carries a trailing similarity column; otherwise it carries the
// raw embedding blob, which is returned for in-process scoring.
func scanResult(rows *sql.Rows, withScore bool) (*domain.SearchResult, []float32, error) {
	var result domain.SearchResult
	var metadataJSON string

	dest := []any{
		&result.ChunkID, &result.DocumentID, &result.Content, &result.ChunkIndex,
		&metadataJSON, &result.DocumentFilename, &result.DocumentContentType,
	}

	var embeddingBlob []byte
	if withScore {
		dest = append(dest, &result.SimilarityScore)
	} else {
		dest = append(dest, &embeddingBlob)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, nil, fmt.Errorf("scanning result: %w", err)
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &result.Metadata); err != nil {
			return nil, nil, fmt.Errorf("unmarshaling result metadata: %w", err)
		}
	}

	return &result, bytesToFloat32Slice(embeddingBlob), nil
}

// placeholders returns n comma-separated SQL placeholders.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
