package driven

import (
	"context"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// VectorSearcher ranks stored chunks by cosine similarity to a query vector.
//
// Two implementations exist behind this contract: one that delegates scoring
// and ranking to the store's native vector operator, and a brute-force
// in-process fallback. The indexed implementation reports
// domain.ErrCapabilityUnavailable when the operator is missing; callers
// switch strategy on that signal only.
type VectorSearcher interface {
	// Search returns up to opts.Limit results with similarity >=
	// opts.Threshold, ordered by similarity descending.
	Search(ctx context.Context, query []float32, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
