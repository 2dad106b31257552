package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch internally when the caller exceeds a provider-side
// batch limit and return vectors in the same order as the input texts.
// Failures surface as domain.ErrEmbeddingFailed; retry policy belongs to the
// provider client, not to callers of this port.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 1536).
	// This must match the chunk store's configured dimension.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}
