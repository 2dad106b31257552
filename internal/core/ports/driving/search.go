package driving

import (
	"context"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// SearchService is the integration point for RAG orchestration layers.
type SearchService interface {
	// Search ranks stored chunks against a pre-computed query embedding.
	Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)

	// SearchText embeds the query text first, then searches.
	SearchText(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
