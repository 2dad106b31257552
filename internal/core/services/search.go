package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driving"
	"github.com/jazz-17/kiro-chatbot/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService ranks stored chunks against query embeddings. It prefers
// the indexed strategy and degrades to the fallback only when the indexed
// searcher reports the capability as unavailable; every other error
// propagates unchanged.
type SearchService struct {
	indexed          driven.VectorSearcher
	fallback         driven.VectorSearcher
	embeddingService driven.EmbeddingService

	mu       sync.Mutex
	degraded bool
}

// NewSearchService creates a search service. The embeddingService is
// optional and only required for SearchText.
func NewSearchService(
	indexed driven.VectorSearcher,
	fallback driven.VectorSearcher,
	embeddingService driven.EmbeddingService,
) *SearchService {
	return &SearchService{
		indexed:          indexed,
		fallback:         fallback,
		embeddingService: embeddingService,
	}
}

// Search ranks stored chunks against a pre-computed query embedding.
func (s *SearchService) Search(
	ctx context.Context, query []float32, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	opts = opts.Normalize()

	logger.Section("Similarity Search")
	logger.Debug("Limit: %d, Threshold: %.2f, Document filter: %d ids",
		opts.Limit, opts.Threshold, len(opts.DocumentIDs))

	if !s.isDegraded() {
		results, err := s.indexed.Search(ctx, query, opts)
		if err == nil {
			logger.Debug("Indexed path returned %d results", len(results))
			return results, nil
		}
		if !errors.Is(err, domain.ErrCapabilityUnavailable) {
			return nil, fmt.Errorf("indexed search: %w", err)
		}

		// The documented degrade: exact ranking preserved, more rows
		// scanned. Not surfaced to the caller as a failure.
		logger.Warn("Indexed search unavailable, degrading to scan: %v", err)
		s.setDegraded()
	}

	results, err := s.fallback.Search(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}
	logger.Debug("Fallback path returned %d results", len(results))
	return results, nil
}

// SearchText embeds the query text first, then searches.
func (s *SearchService) SearchText(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	if s.embeddingService == nil {
		return nil, fmt.Errorf("no embedding service configured: %w", domain.ErrEmbeddingFailed)
	}

	embedding, err := s.embeddingService.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	return s.Search(ctx, embedding, opts)
}

func (s *SearchService) isDegraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

func (s *SearchService) setDegraded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.degraded = true
}
