package embedding

import (
	"fmt"

	"github.com/hyperjump/agentflow/internal/config"
	"go.uber.org/zap"
)

// NewEmbedder builds the embedder selected by cfg.Provider. Every provider except
// hash is wrapped in an LRU cache of cfg.CacheSize entries.
func NewEmbedder(cfg *config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	var (
		inner Embedder
		err   error
	)
	switch cfg.Provider {
	case config.ProviderHash, "":
		return NewHashEmbedder(cfg.Dimensions), nil
	case config.ProviderONNX:
		inner, err = NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case config.ProviderOpenAI:
		inner, err = NewOpenAIEmbedder(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Dimensions)
	case config.ProviderOllama:
		inner = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("embedder ready",
			zap.String("provider", cfg.Provider),
			zap.String("model", ModelName(inner)),
			zap.Int("dimensions", inner.Dimensions()),
			zap.Int("cache_size", cfg.CacheSize))
	}
	return NewCachedEmbedder(inner, cfg.CacheSize), nil
}
