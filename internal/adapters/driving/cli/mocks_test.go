package cli

import (
	"context"

	"github.com/jazz-17/kiro-chatbot/internal/core/domain"
)

// mockSearchService returns canned results.
type mockSearchService struct {
	results []domain.SearchResult
	err     error

	gotQuery string
	gotOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, _ []float32, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.gotOpts = opts
	return m.results, m.err
}

func (m *mockSearchService) SearchText(_ context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.gotQuery = query
	m.gotOpts = opts
	return m.results, m.err
}

// mockIngestionService records calls.
type mockIngestionService struct {
	chunks  []domain.Chunk
	deleted int
	err     error

	gotText  string
	gotDocID string
}

func (m *mockIngestionService) ChunkAndPrepare(text string, metadata map[string]any) ([]domain.ChunkDraft, error) {
	return nil, m.err
}

func (m *mockIngestionService) IngestDocument(_ context.Context, doc *domain.Document, text string) ([]domain.Chunk, error) {
	m.gotText = text
	if m.err != nil {
		return nil, m.err
	}
	doc.ID = "doc-1"
	return m.chunks, nil
}

func (m *mockIngestionService) DeleteDocument(_ context.Context, documentID string) (int, error) {
	m.gotDocID = documentID
	return m.deleted, m.err
}

// mockDocumentStore returns canned documents.
type mockDocumentStore struct {
	docs []domain.Document
	err  error
}

func (m *mockDocumentStore) Save(context.Context, *domain.Document) error { return m.err }
func (m *mockDocumentStore) Get(context.Context, string) (*domain.Document, error) {
	return nil, m.err
}
func (m *mockDocumentStore) List(context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}
func (m *mockDocumentStore) Delete(context.Context, string) error { return m.err }

// mockMaintainer returns canned stats.
type mockMaintainer struct {
	built bool
	stats *domain.IndexStats
	err   error
}

func (m *mockMaintainer) Optimize(context.Context) (bool, error) { return m.built, m.err }
func (m *mockMaintainer) Stats(context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

// swapServices installs mocks and returns a cleanup restoring the originals.
func swapServices(s Services) func() {
	oldIngest := ingestionService
	oldSearch := searchService
	oldDocs := documentStore
	oldMaint := indexMaintainer
	oldCleanup := cleanup

	SetServices(s)

	return func() {
		ingestionService = oldIngest
		searchService = oldSearch
		documentStore = oldDocs
		indexMaintainer = oldMaint
		cleanup = oldCleanup
	}
}
