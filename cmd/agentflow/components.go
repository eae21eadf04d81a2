package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/config"
	"github.com/hyperjump/agentflow/internal/embedding"
	"github.com/hyperjump/agentflow/internal/indexer"
	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/rag"
	"github.com/hyperjump/agentflow/internal/search"
	"github.com/hyperjump/agentflow/internal/storage"
	"github.com/hyperjump/agentflow/internal/tools"
	"github.com/hyperjump/agentflow/internal/tools/calendar"
	"github.com/hyperjump/agentflow/internal/tools/files"
	"github.com/hyperjump/agentflow/internal/tools/pushover"
	"github.com/hyperjump/agentflow/internal/tools/serper"
	"github.com/hyperjump/agentflow/internal/tools/wikipedia"
)

// Components holds everything a command needs.
type Components struct {
	Config    *config.Config
	Store     *rag.Store
	Embedder  embedding.Embedder
	Ingestor  *indexer.Ingestor
	Retriever *search.Retriever
	Toolset   *tools.Toolset
	Registry  *tools.Registry
	logger    *zap.Logger
	saveMu    sync.Mutex
}

// Save writes the vector index when persistence is configured.
func (c *Components) Save() error {
	if !c.Config.Storage.Persistent() {
		return nil
	}
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	return c.Store.Save(c.Config.Storage.IndexPath)
}

// Close saves and releases everything.
func (c *Components) Close() {
	if err := c.Save(); err != nil {
		c.logger.Warn("vector index save failed", zap.String("path", c.Config.Storage.IndexPath), zap.Error(err))
	}
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.NewEmbedder(&cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	var st storage.Storage
	if cfg.Storage.DatabasePath != "" {
		st, err = storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		if cfg.Storage.IndexPath == "" {
			logger.Warn("storage.database_path is set without storage.index_path; vectors will not survive a restart")
		}
	}

	kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	store := rag.NewStore(st,
		rag.WithIndexType(cfg.RAG.VectorIndex),
		rag.WithKeywordIndex(kw),
		rag.WithLogger(logger))
	if cfg.Storage.Persistent() {
		if err := store.Load(ctx, cfg.Storage.IndexPath, embedder.Dimensions()); err != nil {
			_ = store.Close()
			_ = embedder.Close()
			return nil, fmt.Errorf("failed to load vector index: %w", err)
		}
	}
	logger.Info("store ready",
		zap.String("vector_index", store.IndexType()),
		zap.Int("vectors", store.Size()),
		zap.Bool("persistent", cfg.Storage.Persistent()))

	chunker, err := indexer.NewChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, err
	}
	ingestor := indexer.NewIngestor(store, embedder, chunker, indexer.WithLogger(logger))
	retriever := search.NewRetriever(store, embedder,
		search.WithDefaultK(cfg.RAG.DefaultK),
		search.WithLogger(logger))

	ts, err := buildToolset(ctx, cfg, ingestor, retriever, logger)
	if err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, err
	}
	registry := tools.NewRegistry()
	if err := ts.Register(registry); err != nil {
		_ = store.Close()
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return &Components{
		Config:    cfg,
		Store:     store,
		Embedder:  embedder,
		Ingestor:  ingestor,
		Retriever: retriever,
		Toolset:   ts,
		Registry:  registry,
		logger:    logger,
	}, nil
}

// buildToolset enables each vendor tool whose credentials are configured.
func buildToolset(ctx context.Context, cfg *config.Config, ing *indexer.Ingestor, ret *search.Retriever, logger *zap.Logger) (*tools.Toolset, error) {
	tc := cfg.Tools
	ts := &tools.Toolset{Ingester: ing, Retriever: ret}

	kit, err := files.NewToolkit(tc.FileRoot)
	if err != nil {
		return nil, err
	}
	ts.Files = kit

	ts.Wikipedia = wikipedia.NewClient(tc.WikipediaURL, tc.WikipediaLang)

	if tc.PushoverToken != "" && tc.PushoverUser != "" {
		client, err := pushover.NewClient(tc.PushoverURL, tc.PushoverToken, tc.PushoverUser)
		if err != nil {
			return nil, err
		}
		ts.Pusher = client
	} else {
		logger.Info("send_push_notification disabled", zap.String("reason", "PUSHOVER_TOKEN and PUSHOVER_USER not set"))
	}

	if tc.SerperAPIKey != "" {
		client, err := serper.NewClient(tc.SerperURL, tc.SerperAPIKey)
		if err != nil {
			return nil, err
		}
		ts.Search = client
	} else {
		logger.Info("search disabled", zap.String("reason", "SERPER_API_KEY not set"))
	}

	if _, err := os.Stat(tc.CalendarTokenPath); err == nil {
		client, err := calendar.NewClient(ctx, tc.CalendarTokenPath, tc.CalendarID)
		if err != nil {
			logger.Warn("calendar tools disabled", zap.String("token_path", tc.CalendarTokenPath), zap.Error(err))
		} else {
			ts.Calendar = client
		}
	} else if errors.Is(err, os.ErrNotExist) {
		logger.Info("calendar tools disabled", zap.String("reason", "no token file"), zap.String("token_path", tc.CalendarTokenPath))
	}

	return ts, nil
}
