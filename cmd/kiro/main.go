package main

import (
	"fmt"
	"os"

	"github.com/jazz-17/kiro-chatbot/internal/adapters/driven/config/file"
	"github.com/jazz-17/kiro-chatbot/internal/adapters/driven/embedding/ollama"
	"github.com/jazz-17/kiro-chatbot/internal/adapters/driven/embedding/openai"
	"github.com/jazz-17/kiro-chatbot/internal/adapters/driven/storage/sqlite"
	"github.com/jazz-17/kiro-chatbot/internal/adapters/driving/cli"
	"github.com/jazz-17/kiro-chatbot/internal/chunker"
	"github.com/jazz-17/kiro-chatbot/internal/core/ports/driven"
	"github.com/jazz-17/kiro-chatbot/internal/core/services"
)

func main() {
	cli.SetInitializer(buildServices)

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// buildServices wires the adapters into the core services. Runs once, after
// flags are parsed.
func buildServices(configDir string) (*cli.Services, error) {
	cfgStore, err := file.NewStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := cfgStore.Config()

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	storeOpts := []sqlite.Option{}
	if embedder != nil {
		storeOpts = append(storeOpts, sqlite.WithDimension(embedder.Dimensions()))
	}
	store, err := sqlite.NewStore(cfg.DataDir, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.ChunkSize),
		chunker.WithOverlap(cfg.Chunking.ChunkOverlap),
	)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("configuring chunker: %w", err)
	}

	return &cli.Services{
		Ingestion: services.NewIngestionService(splitter, store, store.Documents(), embedder),
		Search: services.NewSearchService(
			sqlite.NewIndexedSearcher(store),
			sqlite.NewScanSearcher(store),
			embedder,
		),
		Documents:  store.Documents(),
		Maintainer: store,
		Cleanup: func() error {
			if embedder != nil {
				embedder.Close() //nolint:errcheck
			}
			return store.Close()
		},
	}, nil
}

// buildEmbedder constructs the configured embedding provider. Returns nil
// when no provider is usable; vector-only operations still work.
func buildEmbedder(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		}), nil

	case "openai", "":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return openai.NewEmbeddingService(openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
