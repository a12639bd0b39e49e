package cli

import (
	"context"
	"fmt"
	"path/filepath"

	bleveadapter "github.com/finsync-labs/finsync-server/internal/adapters/driven/index/bleve"
	"github.com/finsync-labs/finsync-server/internal/adapters/driven/embedding/huggingface"
	embeddingopenai "github.com/finsync-labs/finsync-server/internal/adapters/driven/embedding/openai"
	"github.com/finsync-labs/finsync-server/internal/adapters/driven/extractor/pdf"
	"github.com/finsync-labs/finsync-server/internal/adapters/driven/extractor/plaintext"
	"github.com/finsync-labs/finsync-server/internal/adapters/driven/index/flat"
	llmopenai "github.com/finsync-labs/finsync-server/internal/adapters/driven/llm/openai"
	"github.com/finsync-labs/finsync-server/internal/adapters/driven/storage/sqlite"
	"github.com/finsync-labs/finsync-server/internal/adapters/driven/websearch/tavily"
	"github.com/finsync-labs/finsync-server/internal/config"
	"github.com/finsync-labs/finsync-server/internal/core/ports/driven"
	"github.com/finsync-labs/finsync-server/internal/core/services"
	"github.com/finsync-labs/finsync-server/internal/logger"
	"github.com/finsync-labs/finsync-server/internal/splitter"
)

// app holds the wired application services.
type app struct {
	cfg       *config.Config
	store     *sqlite.Store
	engine    *bleveadapter.Engine
	vectors   *flat.Index
	embedder  driven.EmbeddingService
	agent     *services.AgentService
	ingest    *services.IngestService
	retrieval *services.RetrievalService
	documents *services.DocumentService
	memory    *services.SessionMemory
}

// buildApp constructs the full service graph from configuration.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	dataDir, err := cfg.DataDir()
	if err != nil {
		return nil, err
	}

	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		store.Close()
		return nil, err
	}

	vectors, err := flat.NewIndex(filepath.Join(dataDir, "index"), embedder.Dimensions(), embedder.ModelName())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	engine, err := bleveadapter.NewEngine()
	if err != nil {
		vectors.Close()
		store.Close()
		return nil, fmt.Errorf("creating keyword index: %w", err)
	}

	// The keyword index lives in memory; rebuild it from the durable
	// fragment corpus.
	fragments, err := store.ListFragments(ctx)
	if err != nil {
		engine.Close()
		vectors.Close()
		store.Close()
		return nil, fmt.Errorf("loading fragments: %w", err)
	}
	for _, fragment := range fragments {
		if err := engine.Index(ctx, fragment); err != nil {
			engine.Close()
			vectors.Close()
			store.Close()
			return nil, fmt.Errorf("rebuilding keyword index: %w", err)
		}
	}
	if len(fragments) > 0 {
		logger.Info("Rebuilt keyword index with %d fragments", len(fragments))
	}

	llm, err := llmopenai.NewLLMService(llmopenai.LLMConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
	})
	if err != nil {
		engine.Close()
		vectors.Close()
		store.Close()
		return nil, fmt.Errorf("creating LLM service: %w", err)
	}

	var web driven.WebSearcher
	if cfg.WebSearch.APIKey != "" {
		web, err = tavily.NewClient(tavily.Config{APIKey: cfg.WebSearch.APIKey})
		if err != nil {
			engine.Close()
			vectors.Close()
			store.Close()
			return nil, fmt.Errorf("creating web search client: %w", err)
		}
	} else {
		logger.Debug("TAVILY_API_KEY not set, web search disabled")
	}

	fusion := services.FusionConfig{
		SemanticWeight: cfg.Retrieval.SemanticWeight,
		LexicalWeight:  cfg.Retrieval.LexicalWeight,
		RRFK:           cfg.Retrieval.RRFK,
	}

	retrieval := services.NewRetrievalService(store, engine, vectors, embedder, fusion)
	memory := services.NewSessionMemory(cfg.Agent.MemoryWindow)
	agent := services.NewAgentService(llm, retrieval, web, store, memory,
		services.WithMaxRounds(cfg.Agent.MaxRounds),
		services.WithRetrievalK(cfg.Retrieval.TopK),
	)

	extractors := []driven.TextExtractor{
		pdf.NewExtractor(pdf.ExecRunner{}),
		plaintext.NewExtractor(),
	}
	split := splitter.New(
		splitter.WithFragmentSize(cfg.Ingest.FragmentSize),
		splitter.WithOverlap(cfg.Ingest.Overlap),
	)
	ingest := services.NewIngestService(store, engine, vectors, embedder, extractors, split)

	return &app{
		cfg:       cfg,
		store:     store,
		engine:    engine,
		vectors:   vectors,
		embedder:  embedder,
		agent:     agent,
		ingest:    ingest,
		retrieval: retrieval,
		documents: services.NewDocumentService(store),
		memory:    memory,
	}, nil
}

// buildEmbedder selects the embedding backend from configuration.
func buildEmbedder(cfg *config.Config) (driven.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "huggingface":
		embedder, err := huggingface.NewEmbeddingService(huggingface.Config{
			APIToken: cfg.Embedding.APIKey,
			Model:    cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding service: %w", err)
		}
		return embedder, nil
	default:
		embedder, err := embeddingopenai.NewEmbeddingService(embeddingopenai.Config{
			APIKey: cfg.Embedding.APIKey,
			Model:  cfg.Embedding.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("creating embedding service: %w", err)
		}
		return embedder, nil
	}
}

// close releases all resources in reverse construction order.
func (a *app) close() {
	a.embedder.Close()
	a.engine.Close()
	a.vectors.Close()
	a.store.Close()
}
