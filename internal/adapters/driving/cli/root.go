// Package cli implements the command-line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cachesqlite "github.com/custodia-labs/ragdex/internal/adapters/driven/cache/sqlite"
	configfile "github.com/custodia-labs/ragdex/internal/adapters/driven/config/file"
	embeddingopenai "github.com/custodia-labs/ragdex/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/ragdex/internal/adapters/driven/index/flat"
	llmopenai "github.com/custodia-labs/ragdex/internal/adapters/driven/llm/openai"
	storagefile "github.com/custodia-labs/ragdex/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/ragdex/internal/chunkers"
	"github.com/custodia-labs/ragdex/internal/core/ports/driven"
	"github.com/custodia-labs/ragdex/internal/core/ports/driving"
	"github.com/custodia-labs/ragdex/internal/core/services"
	"github.com/custodia-labs/ragdex/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var verboseFlag bool

// Services wired in initServices and shared by all commands. A service left
// nil means its provider is not configured; commands check and report that.
var (
	configStore       *configfile.ConfigStore
	promptStore       *configfile.PromptStore
	chunkingService   driving.ChunkingService
	collectionService driving.CollectionService
	askService        driving.AskService
	cacheAdminService driving.CacheAdminService
)

var rootCmd = &cobra.Command{
	Use:   "ragdex",
	Short: "Retrieval-augmented answering over your documents",
	Long: `Ragdex chunks converted documents, builds embedding collections and answers
questions against them, caching answers for reuse.

Configure providers in ~/.ragdex/config.toml or via OPENAI_API_KEY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verboseFlag)
		return initServices()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging to stderr")
}

// initServices builds the adapter stack and wires the core services.
// Missing provider credentials leave the dependent services nil rather than
// failing commands that don't need them.
func initServices() error {
	var err error
	configStore, err = configfile.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("open config store: %w", err)
	}

	promptStore, err = configfile.NewPromptStore(configStore.GetString("prompts.dir"))
	if err != nil {
		return fmt.Errorf("open prompt store: %w", err)
	}

	root := configStore.GetString("storage.root")
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("get home directory: %w", err)
		}
		root = filepath.Join(home, ".ragdex", "knowledge")
	}

	docStore, err := storagefile.NewDocumentStore(root)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	collectionStore, err := flat.NewStore(root)
	if err != nil {
		return fmt.Errorf("open collection store: %w", err)
	}

	apiKey := configStore.GetString("openai.api_key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	var embeddings driven.EmbeddingProvider
	var llm *llmopenai.LLMService
	if apiKey != "" {
		embeddings, err = embeddingopenai.NewProvider(embeddingopenai.Config{
			APIKey:            apiKey,
			BaseURL:           configStore.GetString("openai.base_url"),
			Model:             configStore.GetString("embedding.model"),
			RequestsPerSecond: configStore.GetFloat("embedding.requests_per_second"),
		})
		if err != nil {
			return fmt.Errorf("configure embedding provider: %w", err)
		}

		llm, err = llmopenai.NewLLMService(llmopenai.LLMConfig{
			APIKey:  apiKey,
			BaseURL: configStore.GetString("openai.base_url"),
			Model:   configStore.GetString("llm.model"),
		})
		if err != nil {
			return fmt.Errorf("configure LLM provider: %w", err)
		}
		llm.SetPromptStore(promptStore)
	} else {
		logger.Warn("No API key configured; embedding and LLM features disabled")
	}

	registry := chunkers.NewRegistry()
	registry.Register(chunkers.NewSentence())
	registry.Register(chunkers.NewParagraph())
	registry.Register(chunkers.NewHierarchy())
	registry.Register(chunkers.NewRecursive())
	if embeddings != nil {
		registry.Register(chunkers.NewSemantic(embeddings.ForModel("")))
	}

	chunkingService = services.NewChunkingService(docStore, registry)

	if embeddings != nil {
		var llmService driven.LLMService
		if llm != nil {
			llmService = llm
		}
		collectionService = services.NewCollectionService(docStore, collectionStore, embeddings, llmService)

		if llm != nil {
			cache, err := cachesqlite.NewCache(configStore.GetString("cache.dir"))
			if err != nil {
				return fmt.Errorf("open response cache: %w", err)
			}
			askService = services.NewAskService(collectionStore, embeddings, llm, cache, promptStore)
			cacheAdminService = services.NewCacheAdminService(cache)
		}
	}

	return nil
}
