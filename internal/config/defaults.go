package config

import (
	"fmt"
	"os"
)

// Embedding providers.
const (
	ProviderHash   = "hash"
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Environment variables that override config values.
const (
	EnvPushoverToken = "PUSHOVER_TOKEN"
	EnvPushoverUser  = "PUSHOVER_USER"
	EnvSerperAPIKey  = "SERPER_API_KEY"
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvFileToolRoot  = "FILE_TOOL_ROOT"
	EnvGoogleToken   = "GOOGLE_TOKEN_PATH"
	EnvGoogleCalID   = "GOOGLE_CALENDAR_ID"
)

// ApplyDefaults sets default values for any zero values in cfg.
// A zero chunk_overlap counts as unset and gets the default of 50.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderHash
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 50
	}
	if cfg.RAG.DefaultK == 0 {
		cfg.RAG.DefaultK = 4
	}
	if cfg.RAG.VectorIndex == "" {
		cfg.RAG.VectorIndex = "memory"
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".pdf"}
	}
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
	if cfg.Tools.FileRoot == "" {
		cfg.Tools.FileRoot = "reports"
	}
	if cfg.Tools.PushoverURL == "" {
		cfg.Tools.PushoverURL = "https://api.pushover.net/1/messages.json"
	}
	if cfg.Tools.SerperURL == "" {
		cfg.Tools.SerperURL = "https://google.serper.dev/search"
	}
	if cfg.Tools.WikipediaLang == "" {
		cfg.Tools.WikipediaLang = "en"
	}
	if cfg.Tools.WikipediaURL == "" {
		cfg.Tools.WikipediaURL = fmt.Sprintf("https://%s.wikipedia.org/w/api.php", cfg.Tools.WikipediaLang)
	}
	if cfg.Tools.CalendarTokenPath == "" {
		cfg.Tools.CalendarTokenPath = "token.json"
	}
	if cfg.Tools.CalendarID == "" {
		cfg.Tools.CalendarID = "primary"
	}
}

// ApplyEnv overrides config values with non-empty environment variables.
func ApplyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Tools.PushoverToken, EnvPushoverToken)
	set(&cfg.Tools.PushoverUser, EnvPushoverUser)
	set(&cfg.Tools.SerperAPIKey, EnvSerperAPIKey)
	set(&cfg.Embedding.APIKey, EnvOpenAIAPIKey)
	set(&cfg.Tools.FileRoot, EnvFileToolRoot)
	set(&cfg.Tools.CalendarTokenPath, EnvGoogleToken)
	set(&cfg.Tools.CalendarID, EnvGoogleCalID)
}

// Validate checks settings that would otherwise fail later at first use.
func (c *Config) Validate() error {
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("rag.chunk_overlap must be in [0, %d), got %d", c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.DefaultK <= 0 {
		return fmt.Errorf("rag.default_k must be positive, got %d", c.RAG.DefaultK)
	}
	switch c.Embedding.Provider {
	case ProviderHash, ProviderONNX, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: hash, onnx, openai, ollama)", c.Embedding.Provider)
	}
	switch c.RAG.VectorIndex {
	case "memory", "faiss":
	default:
		return fmt.Errorf("unknown vector index: %s (supported: memory, faiss)", c.RAG.VectorIndex)
	}
	return nil
}
