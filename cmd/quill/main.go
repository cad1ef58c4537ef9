// Command quill is the hybrid knowledge-retrieval CLI. It wires the
// config store, SQLite storage, AI providers and core services together,
// then hands control to the command tree.
package main

import (
	"fmt"
	"os"

	"github.com/custodia-labs/quill-cli/internal/adapters/driven/ai"
	"github.com/custodia-labs/quill-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/quill-cli/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/quill-cli/internal/adapters/driving/cli"
	"github.com/custodia-labs/quill-cli/internal/core/ports/driven"
	"github.com/custodia-labs/quill-cli/internal/core/services"
	"github.com/custodia-labs/quill-cli/internal/logger"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Hot-reloads hybrid tuning while long-running commands (MCP serve)
	// are up.
	watcher, err := file.NewWatcher(configStore)
	if err != nil {
		return fmt.Errorf("watching config: %w", err)
	}
	defer watcher.Close()

	store, err := sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close()

	embedder := buildEmbedder(configStore)
	generator := buildGenerator(configStore)

	searchStore := store.SearchStore()
	vector := services.NewVectorSearchService(searchStore, embedder)
	fts := services.NewFTSService(searchStore)
	hybrid := services.NewHybridSearchService(vector, fts, searchStore, embedder, watcher.HybridSettings)

	rag := services.NewRAGAnswerService(hybrid, generator)
	if prompts, err := file.NewPromptStore(""); err == nil {
		if text, err := prompts.Load(file.PromptRAGAnswer); err == nil {
			rag.SetInstructions(text)
		}
	}

	cli.SetServices(cli.Services{
		Search: hybrid,
		RAG:    rag,
		Config: configStore,
	})
	cli.SetVersion(version)

	return cli.Execute()
}

// buildEmbedder constructs the embedding provider behind the LRU cache.
// A broken configuration degrades to lexical-only search rather than
// refusing to start.
func buildEmbedder(configStore *file.ConfigStore) driven.EmbeddingProvider {
	settings := configStore.EmbeddingSettings()
	provider, err := ai.CreateEmbeddingProvider(&settings)
	if err != nil {
		logger.Warn("Embedding provider unavailable, vector search disabled: %v", err)
		return nil
	}
	if provider == nil {
		return nil
	}

	cached, err := ai.NewCachedProvider(provider, ai.DefaultCacheSize)
	if err != nil {
		return provider
	}
	return cached
}

// buildGenerator constructs the generation provider. Absence is normal;
// answers degrade to citations-only.
func buildGenerator(configStore *file.ConfigStore) driven.GenerationProvider {
	settings := configStore.GenerationSettings()
	provider, err := ai.CreateGenerationProvider(&settings)
	if err != nil {
		logger.Warn("Generation provider unavailable, answers disabled: %v", err)
		return nil
	}
	return provider
}
