package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
)

const testDim = 3

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()

	opts = append([]Option{WithDimension(testDim)}, opts...)
	store, err := NewStore(t.TempDir(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		store.Close() //nolint:errcheck
	})
	return store
}

func saveTestDocument(t *testing.T, store *Store, id string) *domain.Document {
	t.Helper()

	doc := &domain.Document{
		ID:          id,
		Filename:    id + ".md",
		ContentType: "text/markdown",
		Size:        100,
	}
	require.NoError(t, store.Documents().Save(context.Background(), doc))
	return doc
}

func testChunk(docID string, index int, embedding []float32) domain.Chunk {
	return domain.Chunk{
		DocumentID: docID,
		Content:    "chunk content",
		ChunkIndex: index,
		Embedding:  embedding,
		Metadata:   map[string]any{"lang": "en"},
	}
}

func TestChunkStore_CreateOneAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	chunk := testChunk("doc-1", 0, []float32{0.5, -1.25, 3})
	stored, err := store.Chunks().CreateOne(ctx, &chunk)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID)
	assert.False(t, stored.CreatedAt.IsZero())

	got, err := store.Chunks().GetByID(ctx, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", got.DocumentID)
	assert.Equal(t, "chunk content", got.Content)
	assert.Equal(t, []float32{0.5, -1.25, 3}, got.Embedding)
	assert.Equal(t, "en", got.Metadata["lang"])
}

func TestChunkStore_GetByID_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Chunks().GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestChunkStore_DimensionEnforced(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	t.Run("too short", func(t *testing.T) {
		chunk := testChunk("doc-1", 0, []float32{1, 2})
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("too long", func(t *testing.T) {
		chunk := testChunk("doc-1", 0, []float32{1, 2, 3, 4})
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("missing", func(t *testing.T) {
		chunk := testChunk("doc-1", 0, nil)
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})
}

func TestChunkStore_InvalidInput(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("missing document id", func(t *testing.T) {
		chunk := testChunk("", 0, []float32{1, 2, 3})
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("negative chunk index", func(t *testing.T) {
		chunk := testChunk("doc-1", -1, []float32{1, 2, 3})
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestChunkStore_MissingParentDocument(t *testing.T) {
	store := newTestStore(t)

	chunk := testChunk("no-such-doc", 0, []float32{1, 2, 3})
	_, err := store.Chunks().CreateOne(context.Background(), &chunk)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestChunkStore_DuplicateChunkIndex(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	first := testChunk("doc-1", 0, []float32{1, 2, 3})
	_, err := store.Chunks().CreateOne(ctx, &first)
	require.NoError(t, err)

	dup := testChunk("doc-1", 0, []float32{4, 5, 6})
	_, err = store.Chunks().CreateOne(ctx, &dup)
	assert.ErrorIs(t, err, domain.ErrIntegrity)
}

func TestChunkStore_BatchAtomicity(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	// The duplicate index inside the batch fails on insert; the earlier
	// chunks must not survive.
	batch := []domain.Chunk{
		testChunk("doc-1", 0, []float32{1, 0, 0}),
		testChunk("doc-1", 1, []float32{0, 1, 0}),
		testChunk("doc-1", 1, []float32{0, 0, 1}),
	}
	_, err := store.Chunks().CreateBatch(ctx, batch)
	assert.ErrorIs(t, err, domain.ErrIntegrity)

	remaining, err := store.Chunks().GetByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestChunkStore_BatchValidatesBeforeWriting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	batch := []domain.Chunk{
		testChunk("doc-1", 0, []float32{1, 0, 0}),
		testChunk("doc-1", 1, []float32{0, 1}),
	}
	_, err := store.Chunks().CreateBatch(ctx, batch)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	remaining, err := store.Chunks().GetByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestChunkStore_GetByDocumentID_Ordering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	for _, idx := range []int{2, 0, 1} {
		chunk := testChunk("doc-1", idx, []float32{1, 2, 3})
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		require.NoError(t, err)
	}

	chunks, err := store.Chunks().GetByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestChunkStore_DeleteByDocumentID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")
	saveTestDocument(t, store, "doc-2")

	for i := 0; i < 3; i++ {
		chunk := testChunk("doc-1", i, []float32{1, 2, 3})
		_, err := store.Chunks().CreateOne(ctx, &chunk)
		require.NoError(t, err)
	}
	other := testChunk("doc-2", 0, []float32{1, 2, 3})
	_, err := store.Chunks().CreateOne(ctx, &other)
	require.NoError(t, err)

	deleted, err := store.Chunks().DeleteByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// Other documents untouched.
	remaining, err := store.Chunks().GetByDocumentID(ctx, "doc-2")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := &domain.Document{
		Filename:    "notes.md",
		ContentType: "text/markdown",
		Size:        42,
		Metadata:    map[string]any{"author": "test"},
	}
	require.NoError(t, store.Documents().Save(ctx, doc))
	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, domain.StatusPending, doc.Status)

	got, err := store.Documents().Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", got.Filename)
	assert.Equal(t, "test", got.Metadata["author"])
}

func TestDocumentStore_SaveUpserts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := saveTestDocument(t, store, "doc-1")
	doc.Status = domain.StatusCompleted
	require.NoError(t, store.Documents().Save(ctx, doc))

	got, err := store.Documents().Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)

	docs, err := store.Documents().List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentStore_Get_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Documents().Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_DeleteCascadesToChunks(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	saveTestDocument(t, store, "doc-1")

	chunk := testChunk("doc-1", 0, []float32{1, 2, 3})
	stored, err := store.Chunks().CreateOne(ctx, &chunk)
	require.NoError(t, err)

	require.NoError(t, store.Documents().Delete(ctx, "doc-1"))

	_, err = store.Chunks().GetByID(ctx, stored.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_InTx_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.InTx(ctx, func(stores driven.Stores) error {
		if err := stores.Documents().Save(ctx, &domain.Document{ID: "doc-1", Filename: "a"}); err != nil {
			return err
		}
		chunk := testChunk("doc-1", 0, []float32{1, 2, 3})
		if _, err := stores.Chunks().CreateBatch(ctx, []domain.Chunk{chunk}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Documents().Get(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_InTx_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.InTx(ctx, func(stores driven.Stores) error {
		if err := stores.Documents().Save(ctx, &domain.Document{ID: "doc-1", Filename: "a"}); err != nil {
			return err
		}
		chunk := testChunk("doc-1", 0, []float32{1, 2, 3})
		_, err := stores.Chunks().CreateBatch(ctx, []domain.Chunk{chunk})
		return err
	})
	require.NoError(t, err)

	chunks, err := store.Chunks().GetByDocumentID(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestEmbeddingCodecRoundTrip(t *testing.T) {
	vectors := [][]float32{
		nil,
		{0},
		{1.5, -2.25, 3.125},
		{-0.000123, 98765.4},
	}
	for _, v := range vectors {
		got := bytesToFloat32Slice(float32SliceToBytes(v))
		if len(v) == 0 {
			assert.Nil(t, got)
			continue
		}
		assert.Equal(t, v, got)
	}
}
