// Package search answers top-k retrieval queries against the RAG store.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/embedding"
	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/rag"
	"github.com/hyperjump/agentflow/pkg/utils"
)

// ContextSeparator joins retrieved chunk texts.
const ContextSeparator = "\n\n"

// Retriever embeds queries and looks up the nearest chunks in a rag.Store.
type Retriever struct {
	store    *rag.Store
	embedder embedding.Embedder
	defaultK int
	logger   *zap.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) RetrieverOption {
	return func(r *Retriever) { r.logger = l }
}

// WithDefaultK sets the k used when a request does not ask for a positive one.
func WithDefaultK(k int) RetrieverOption {
	return func(r *Retriever) { r.defaultK = k }
}

// NewRetriever creates a retriever. embedder must be the one used for ingestion.
func NewRetriever(store *rag.Store, embedder embedding.Embedder, opts ...RetrieverOption) *Retriever {
	r := &Retriever{store: store, embedder: embedder, defaultK: models.DefaultK}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.LoggerOrNop(r.logger)
	return r
}

// Retrieve returns the contents of the k chunks most similar to query, closest
// first, joined by blank lines. Before anything has been ingested it returns
// rag.NoDataMessage for any query and k.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) (string, error) {
	resp, err := r.Search(ctx, &models.RetrieveRequest{Query: query, K: k})
	if err != nil {
		return "", err
	}
	return resp.Context, nil
}

// Search is the structured form of Retrieve.
func (r *Retriever) Search(ctx context.Context, req *models.RetrieveRequest) (*models.RetrieveResponse, error) {
	start := time.Now()
	req.Normalize(r.defaultK)
	if r.store.Empty() {
		return noData(req), nil
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, rag.ErrEmptyQuery
	}

	queryEmbedding, err := r.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", rag.ErrEmbeddingFailure, err)
	}
	results, err := r.store.Search(ctx, queryEmbedding, req.K)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("retrieved chunks",
		zap.String("query", utils.Truncate(req.Query, 80)),
		zap.Int("k", req.K),
		zap.Int("results", len(results)))
	return response(req, results, start), nil
}

// KeywordSearch ranks chunks by BM25 instead of embedding distance. The output
// contract matches Search.
func (r *Retriever) KeywordSearch(ctx context.Context, req *models.RetrieveRequest, opts *keyword.SearchOptions) (*models.RetrieveResponse, error) {
	start := time.Now()
	req.Normalize(r.defaultK)
	if r.store.Empty() {
		return noData(req), nil
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, rag.ErrEmptyQuery
	}
	results, err := r.store.KeywordSearch(ctx, req.Query, req.K, opts)
	if err != nil {
		return nil, err
	}
	return response(req, results, start), nil
}

func noData(req *models.RetrieveRequest) *models.RetrieveResponse {
	return &models.RetrieveResponse{
		Context: rag.NoDataMessage,
		Results: []*models.RetrievedChunk{},
		Query:   req.Query,
		K:       req.K,
	}
}

func response(req *models.RetrieveRequest, results []*models.RetrievedChunk, start time.Time) *models.RetrieveResponse {
	if results == nil {
		results = []*models.RetrievedChunk{}
	}
	return &models.RetrieveResponse{
		Context:   JoinContext(results),
		Results:   results,
		Query:     req.Query,
		K:         req.K,
		QueryTime: time.Since(start).Milliseconds(),
	}
}

// JoinContext joins the chunk contents of results in order.
func JoinContext(results []*models.RetrievedChunk) string {
	parts := make([]string, len(results))
	for i, res := range results {
		parts[i] = res.Chunk.Content
	}
	return strings.Join(parts, ContextSeparator)
}
