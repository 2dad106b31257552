package driven

import (
	"context"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// IndexMaintainer tunes the approximate-nearest-neighbour index as the
// corpus grows and exposes introspection over it.
type IndexMaintainer interface {
	// Optimize drops and rebuilds the similarity index, sizing its
	// partition count to the square root of the chunk count. Runs in one
	// transaction; on failure the previous index is left intact. Reports
	// true when an index was built, false when the corpus was empty and
	// the index was cleared instead.
	Optimize(ctx context.Context) (bool, error)

	// Stats reports index and table statistics. Read-only.
	Stats(ctx context.Context) (*domain.IndexStats, error)
}
