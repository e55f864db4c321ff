// Command sowdata ingests client documents into vector collections and
// answers questions grounded in them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	embeddingollama "github.com/terasky-int/sow-dataset/internal/adapters/driven/embedding/ollama"
	llmollama "github.com/terasky-int/sow-dataset/internal/adapters/driven/llm/ollama"
	"github.com/terasky-int/sow-dataset/internal/adapters/driven/storage/sqlite"
	"github.com/terasky-int/sow-dataset/internal/adapters/driven/vectorstore/memory"
	"github.com/terasky-int/sow-dataset/internal/adapters/driven/vectorstore/qdrant"
	"github.com/terasky-int/sow-dataset/internal/adapters/driving/cli"
	"github.com/terasky-int/sow-dataset/internal/chunker"
	"github.com/terasky-int/sow-dataset/internal/config"
	"github.com/terasky-int/sow-dataset/internal/core/domain"
	"github.com/terasky-int/sow-dataset/internal/core/ports/driven"
	"github.com/terasky-int/sow-dataset/internal/core/services"
	"github.com/terasky-int/sow-dataset/internal/extractors"
	"github.com/terasky-int/sow-dataset/internal/logger"
	"github.com/terasky-int/sow-dataset/internal/metadata"
)

// Exit codes by failure class, so scripts can react to specific
// problems without parsing stderr.
const (
	exitOK          = 0
	exitGeneral     = 1
	exitUnsupported = 2
	exitExtraction  = 3
	exitTracker     = 4
	exitDimension   = 5
	exitCollection  = 6
	exitEmbedding   = 7
	exitStore       = 8
	exitGeneration  = 9
	exitTimeout     = 10
	exitNoContent   = 11
	exitInput       = 12
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(cli.ConfigPath(os.Args[1:]))
	if err != nil {
		fmt.Fprintf(os.Stderr, "sowdata: %v\n", err)
		return exitGeneral
	}

	tracker, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sowdata: open tracker: %v\n", err)
		return exitCode(err)
	}
	defer tracker.Close()

	embedder := embeddingollama.NewEmbeddingService(embeddingollama.Config{
		BaseURL:           cfg.Embedding.BaseURL,
		Model:             cfg.Embedding.Model,
		Dimensions:        cfg.Embedding.Dimensions,
		Timeout:           time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
		RequestsPerSecond: cfg.Embedding.RatePerSecond,
	})
	defer embedder.Close()

	llm := llmollama.NewLLMService(llmollama.LLMConfig{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
	defer llm.Close()

	// Connectivity check up front so a dead Ollama shows up as one
	// clear warning instead of a mid-pipeline failure.
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 3*time.Second)
	if err := embedder.Ping(pingCtx); err != nil {
		logger.Warn("embedding endpoint %s unreachable: %v", cfg.Embedding.BaseURL, err)
	}
	if cfg.LLM.BaseURL != cfg.Embedding.BaseURL {
		if err := llm.Ping(pingCtx); err != nil {
			logger.Warn("llm endpoint %s unreachable: %v", cfg.LLM.BaseURL, err)
		}
	}
	cancelPing()

	var store driven.VectorStore
	if cfg.Qdrant.URL != "" {
		store = qdrant.NewStore(qdrant.Config{
			BaseURL: cfg.Qdrant.URL,
			APIKey:  cfg.Qdrant.APIKey,
			Timeout: time.Duration(cfg.Qdrant.TimeoutSeconds) * time.Second,
		})
	} else {
		store = memory.NewStore()
	}
	defer store.Close()

	var classifier metadata.Classifier
	if cfg.Metadata.Classifier == "llm" {
		classifier = metadata.NewLLMClassifier(llm, categories(cfg))
	} else {
		classifier = metadata.NewKeywordClassifier(metadata.DefaultKeywordRules())
	}
	resolver := metadata.NewResolver(cfg.Metadata.Root, nil, classifier)

	router := services.NewRouter(cfg.Collections.Mapping, cfg.Collections.Default)
	gateway := services.NewVectorGateway(store, embedder, cfg.Qdrant.MaxRetries)

	chunkerOpts := []chunker.Option{chunker.WithSize(cfg.Chunking.Size)}
	if cfg.Chunking.Overlap > 0 {
		chunkerOpts = append(chunkerOpts, chunker.WithOverlap(cfg.Chunking.Overlap))
	}
	chk := chunker.New(chunkerOpts...)

	cli.SetServices(
		services.NewIngestService(extractors.Defaults(), chk, resolver, router, gateway, tracker, cfg.Ingest.Parallelism),
		services.NewAnswerService(gateway, llm, router, services.AnswerConfig{
			TopK:         cfg.Query.TopK,
			MinScore:     cfg.Query.MinScore,
			PromptBudget: cfg.Query.PromptBudget,
			MaxTokens:    cfg.LLM.MaxTokens,
		}),
		services.NewAdminService(gateway, resolver, router, tracker),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.ExecuteContext(ctx); err != nil {
		return exitCode(err)
	}
	return exitOK
}

// categories returns the category names the config routes, for the LLM
// classifier's label set.
func categories(cfg *config.Config) []string {
	out := make([]string, 0, len(cfg.Collections.Mapping))
	for category := range cfg.Collections.Mapping {
		out = append(out, category)
	}
	return out
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return exitUnsupported
	case errors.Is(err, domain.ErrExtraction):
		return exitExtraction
	case errors.Is(err, domain.ErrTrackerCorrupt):
		return exitTracker
	case errors.Is(err, domain.ErrDimensionMismatch):
		return exitDimension
	case errors.Is(err, domain.ErrCollectionNotFound):
		return exitCollection
	case errors.Is(err, domain.ErrEmbedding):
		return exitEmbedding
	case errors.Is(err, domain.ErrStoreUnavailable):
		return exitStore
	case errors.Is(err, domain.ErrGeneration):
		return exitGeneration
	case errors.Is(err, domain.ErrTimeout):
		return exitTimeout
	case errors.Is(err, domain.ErrNoRelevantContent):
		return exitNoContent
	case errors.Is(err, domain.ErrInvalidInput):
		return exitInput
	default:
		return exitGeneral
	}
}
