package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jazz-17/kiro-chatbot/internal/chunker"
	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
)

// memStores is an in-memory driven.Stores and driven.TxRunner. InTx applies
// writes to a scratch copy and merges only on success, mirroring the
// rollback semantics of the real store.
type memStores struct {
	chunks map[string]domain.Chunk
	docs   map[string]domain.Document

	chunkErr error
	txErr    error
}

func newMemStores() *memStores {
	return &memStores{
		chunks: make(map[string]domain.Chunk),
		docs:   make(map[string]domain.Document),
	}
}

func (m *memStores) Chunks() driven.ChunkStore       { return &memChunkStore{m} }
func (m *memStores) Documents() driven.DocumentStore { return &memDocumentStore{m} }

func (m *memStores) InTx(_ context.Context, fn func(driven.Stores) error) error {
	if m.txErr != nil {
		return m.txErr
	}

	scratch := newMemStores()
	for k, v := range m.chunks {
		scratch.chunks[k] = v
	}
	for k, v := range m.docs {
		scratch.docs[k] = v
	}
	scratch.chunkErr = m.chunkErr

	if err := fn(scratch); err != nil {
		return err
	}
	m.chunks = scratch.chunks
	m.docs = scratch.docs
	return nil
}

type memChunkStore struct{ m *memStores }

func (s *memChunkStore) CreateOne(_ context.Context, chunk *domain.Chunk) (*domain.Chunk, error) {
	if s.m.chunkErr != nil {
		return nil, s.m.chunkErr
	}
	stored := *chunk
	if stored.ID == "" {
		stored.ID = fmt.Sprintf("chunk-%d", len(s.m.chunks))
	}
	s.m.chunks[stored.ID] = stored
	return &stored, nil
}

func (s *memChunkStore) CreateBatch(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	stored := make([]domain.Chunk, 0, len(chunks))
	for i := range chunks {
		c, err := s.CreateOne(ctx, &chunks[i])
		if err != nil {
			return nil, err
		}
		stored = append(stored, *c)
	}
	return stored, nil
}

func (s *memChunkStore) GetByID(_ context.Context, id string) (*domain.Chunk, error) {
	c, ok := s.m.chunks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &c, nil
}

func (s *memChunkStore) GetByDocumentID(_ context.Context, documentID string) ([]domain.Chunk, error) {
	var out []domain.Chunk
	for _, c := range s.m.chunks {
		if c.DocumentID == documentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memChunkStore) DeleteByID(_ context.Context, id string) error {
	delete(s.m.chunks, id)
	return nil
}

func (s *memChunkStore) DeleteByDocumentID(_ context.Context, documentID string) (int, error) {
	var n int
	for id, c := range s.m.chunks {
		if c.DocumentID == documentID {
			delete(s.m.chunks, id)
			n++
		}
	}
	return n, nil
}

type memDocumentStore struct{ m *memStores }

func (s *memDocumentStore) Save(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		doc.ID = fmt.Sprintf("doc-%d", len(s.m.docs))
	}
	s.m.docs[doc.ID] = *doc
	return nil
}

func (s *memDocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	d, ok := s.m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (s *memDocumentStore) List(_ context.Context) ([]domain.Document, error) {
	out := make([]domain.Document, 0, len(s.m.docs))
	for _, d := range s.m.docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *memDocumentStore) Delete(_ context.Context, id string) error {
	delete(s.m.docs, id)
	return nil
}

func newIngestionFixture(t *testing.T, stores *memStores, embedder driven.EmbeddingService) *IngestionService {
	t.Helper()

	splitter, err := chunker.New(chunker.WithChunkSize(20), chunker.WithOverlap(0),
		chunker.WithSeparators([]string{". ", " ", ""}))
	require.NoError(t, err)

	return NewIngestionService(splitter, stores, stores.Documents(), embedder)
}

func TestIngestDocument_StoresChunksAndCompletes(t *testing.T) {
	stores := newMemStores()
	embedder := &fakeEmbedder{vector: []float32{1, 0, 0}}
	svc := newIngestionFixture(t, stores, embedder)

	doc := &domain.Document{Filename: "notes.md"}
	chunks, err := svc.IngestDocument(context.Background(), doc,
		"Cats purr. Dogs bark. Birds sing loudly.")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, doc.ID, c.DocumentID)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Equal(t, []float32{1, 0, 0}, c.Embedding)
	}
	assert.Len(t, embedder.texts, len(chunks))

	saved, err := stores.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)

	persisted, err := stores.Chunks().GetByDocumentID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Len(t, persisted, len(chunks))
}

func TestIngestDocument_EmptyText(t *testing.T) {
	stores := newMemStores()
	svc := newIngestionFixture(t, stores, &fakeEmbedder{vector: []float32{1}})

	doc := &domain.Document{Filename: "empty.txt"}
	chunks, err := svc.IngestDocument(context.Background(), doc, "   \n ")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	saved, err := stores.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
}

func TestIngestDocument_EmbedFailureMarksFailed(t *testing.T) {
	stores := newMemStores()
	embedder := &fakeEmbedder{err: fmt.Errorf("provider down: %w", domain.ErrEmbeddingFailed)}
	svc := newIngestionFixture(t, stores, embedder)

	doc := &domain.Document{Filename: "notes.md"}
	_, err := svc.IngestDocument(context.Background(), doc, "some text to ingest here")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)

	saved, getErr := stores.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, saved.Status)

	chunks, getErr := stores.Chunks().GetByDocumentID(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Empty(t, chunks, "no chunks may survive a failed ingestion")
}

func TestIngestDocument_NoEmbedderMarksFailed(t *testing.T) {
	stores := newMemStores()
	svc := newIngestionFixture(t, stores, nil)

	doc := &domain.Document{Filename: "notes.md"}
	_, err := svc.IngestDocument(context.Background(), doc, "Some non-empty text.")
	assert.ErrorIs(t, err, domain.ErrEmbeddingFailed)

	saved, getErr := stores.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, saved.Status)

	chunks, getErr := stores.Chunks().GetByDocumentID(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Empty(t, chunks)
}

func TestIngestDocument_NoEmbedderEmptyText(t *testing.T) {
	stores := newMemStores()
	svc := newIngestionFixture(t, stores, nil)

	doc := &domain.Document{Filename: "empty.txt"}
	chunks, err := svc.IngestDocument(context.Background(), doc, "")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	saved, getErr := stores.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusCompleted, saved.Status)
}

func TestIngestDocument_StoreFailureMarksFailed(t *testing.T) {
	stores := newMemStores()
	stores.chunkErr = errors.New("disk full")
	svc := newIngestionFixture(t, stores, &fakeEmbedder{vector: []float32{1, 0, 0}})

	doc := &domain.Document{Filename: "notes.md"}
	_, err := svc.IngestDocument(context.Background(), doc, "some text to ingest here")
	assert.ErrorContains(t, err, "disk full")

	saved, getErr := stores.Documents().Get(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, saved.Status)
}

func TestChunkAndPrepare(t *testing.T) {
	svc := newIngestionFixture(t, newMemStores(), nil)

	drafts, err := svc.ChunkAndPrepare("Cats purr. Dogs bark.", map[string]any{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, drafts)
	assert.Equal(t, "v", drafts[0].Metadata["k"])
}

func TestDeleteDocument(t *testing.T) {
	stores := newMemStores()
	svc := newIngestionFixture(t, stores, &fakeEmbedder{vector: []float32{1, 0, 0}})

	doc := &domain.Document{Filename: "notes.md"}
	chunks, err := svc.IngestDocument(context.Background(), doc, "Cats purr. Dogs bark. Birds sing loudly.")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	deleted, err := svc.DeleteDocument(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, len(chunks), deleted)

	_, err = stores.Documents().Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
