package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/storage"
	"github.com/hyperjump/agentflow/internal/vector"
	"github.com/hyperjump/agentflow/pkg/utils"
)

// newVectorIndex is swapped in tests.
var newVectorIndex = vector.NewVectorIndex

// Store is the similarity index. The vector index is created on the first
// Append (or Load) with the dimension of the embeddings it receives, and only
// grows after that. A Store is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	index     vector.VectorIndex
	indexType string
	storage   storage.Storage
	keyword   keyword.KeywordIndex
	logger    *zap.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIndexType selects the vector index implementation ("memory" or "faiss").
func WithIndexType(t string) StoreOption {
	return func(s *Store) { s.indexType = t }
}

// WithKeywordIndex mirrors appended chunks into a keyword index.
func WithKeywordIndex(k keyword.KeywordIndex) StoreOption {
	return func(s *Store) { s.keyword = k }
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// NewStore returns an empty store backed by st. A nil st uses in-memory storage.
func NewStore(st storage.Storage, opts ...StoreOption) *Store {
	if st == nil {
		st = storage.NewMemoryStorage()
	}
	s := &Store{
		indexType: string(vector.IndexTypeMemory),
		storage:   st,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.LoggerOrNop(s.logger)
	return s
}

// Append adds one document's chunks and their embeddings. embeddings[i] belongs
// to chunks[i]. Either every chunk becomes searchable or the call fails.
func (s *Store) Append(ctx context.Context, doc *models.Document, chunks []*models.Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to append")
	}
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.index
	if index == nil {
		idx, err := newVectorIndex(s.indexType, len(embeddings[0]))
		if err != nil {
			return fmt.Errorf("create vector index: %w", err)
		}
		index = idx
	}
	for i, emb := range embeddings {
		if len(emb) != index.Dimensions() {
			if s.index == nil {
				_ = index.Close()
			}
			return fmt.Errorf("embedding %d has %d dimensions, index has %d", i, len(emb), index.Dimensions())
		}
	}

	if err := s.storage.AddDocument(ctx, doc, chunks); err != nil {
		if s.index == nil {
			_ = index.Close()
		}
		return fmt.Errorf("store chunks: %w", err)
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := index.Add(ctx, ids, embeddings); err != nil {
		if s.index == nil {
			_ = index.Close()
		}
		if delErr := s.storage.DeleteDocument(ctx, doc.ID); delErr != nil {
			s.logger.Error("rollback of stored chunks failed",
				zap.String("document_id", doc.ID), zap.Error(delErr))
		}
		return fmt.Errorf("index vectors: %w", err)
	}
	if s.index == nil {
		s.index = index
		s.logger.Debug("vector index created",
			zap.String("type", index.Type()), zap.Int("dimensions", index.Dimensions()))
	}

	if s.keyword != nil {
		if err := s.keyword.Index(ctx, chunks); err != nil {
			s.logger.Warn("keyword index failed", zap.String("document_id", doc.ID), zap.Error(err))
		}
	}
	s.logger.Debug("chunks appended",
		zap.String("document_id", doc.ID), zap.Int("chunks", len(chunks)), zap.Int("index_size", index.Size()))
	return nil
}

// Search returns up to k chunks nearest to query, closest first. It returns nil
// when the store is empty.
func (s *Store) Search(ctx context.Context, query []float32, k int) ([]*models.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil || s.index.Size() == 0 || k <= 0 {
		return nil, nil
	}
	hits, err := s.index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	results, err := s.hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]float64, len(hits))
	for _, h := range hits {
		byID[h.ID] = h.Distance
	}
	for _, r := range results {
		r.Distance = byID[r.Chunk.ID]
	}
	return results, nil
}

// KeywordSearch returns up to k chunks matching query by BM25, best first.
func (s *Store) KeywordSearch(ctx context.Context, query string, k int, opts *keyword.SearchOptions) ([]*models.RetrievedChunk, error) {
	if s.keyword == nil {
		return nil, ErrKeywordSearchDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if k <= 0 {
		return nil, nil
	}
	hits, err := s.keyword.Search(ctx, query, k, opts)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
		scores[h.ID] = h.Score
	}
	results, err := s.hydrate(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, r := range results {
		r.Score = scores[r.Chunk.ID]
	}
	return results, nil
}

// hydrate loads chunk text and document names for ids, keeping their order.
// IDs without a stored chunk are skipped.
func (s *Store) hydrate(ctx context.Context, ids []string) ([]*models.RetrievedChunk, error) {
	chunks, err := s.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	names := make(map[string]string)
	results := make([]*models.RetrievedChunk, 0, len(ids))
	for _, id := range ids {
		ch, ok := chunks[id]
		if !ok {
			s.logger.Warn("indexed chunk missing from storage", zap.String("chunk_id", id))
			continue
		}
		name, ok := names[ch.DocumentID]
		if !ok {
			if doc, err := s.storage.GetDocument(ctx, ch.DocumentID); err == nil {
				name = doc.Name
			}
			names[ch.DocumentID] = name
		}
		results = append(results, &models.RetrievedChunk{
			Chunk:        ch,
			DocumentName: name,
			Rank:         len(results) + 1,
		})
	}
	return results, nil
}

// Size returns the number of embeddings in the index.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Size()
}

// Empty reports whether nothing has been ingested.
func (s *Store) Empty() bool {
	return s.Size() == 0
}

// Dimensions returns the index dimension, or 0 before the index exists.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Dimensions()
}

// IndexType returns the configured vector index type.
func (s *Store) IndexType() string {
	return s.indexType
}

// Documents lists ingested documents in ingestion order.
func (s *Store) Documents(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	return s.storage.ListDocuments(ctx, offset, limit)
}

// Counts returns the number of stored documents and chunks.
func (s *Store) Counts(ctx context.Context) (documents, chunks int64, err error) {
	documents, err = s.storage.CountDocuments(ctx)
	if err != nil {
		return 0, 0, err
	}
	chunks, err = s.storage.CountChunks(ctx)
	if err != nil {
		return 0, 0, err
	}
	return documents, chunks, nil
}

// Save writes the vector index to path. It is a no-op when path is empty or
// nothing has been ingested.
func (s *Store) Save(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if path == "" || s.index == nil {
		return nil
	}
	if err := s.index.Save(path); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	s.logger.Debug("vector index saved", zap.String("path", path), zap.Int("size", s.index.Size()))
	return nil
}

// Load restores a vector index saved at path, replacing any current index, and
// brings the keyword index up to date with storage. Nothing is loaded when no
// index has been saved at path. dimensions, when positive, must match the file.
func (s *Store) Load(ctx context.Context, path string, dimensions int) error {
	idx, err := vector.LoadVectorIndex(s.indexType, path, dimensions)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx != nil {
		if s.index != nil {
			_ = s.index.Close()
		}
		s.index = idx
		s.logger.Debug("vector index loaded", zap.String("path", path), zap.Int("size", idx.Size()))
	}
	return s.syncKeyword(ctx)
}

// syncKeyword reindexes every stored chunk when the keyword index holds fewer
// chunks than storage, for example an in-memory keyword index over a SQLite store.
func (s *Store) syncKeyword(ctx context.Context) error {
	if s.keyword == nil {
		return nil
	}
	indexed, err := s.keyword.DocCount()
	if err != nil {
		return fmt.Errorf("keyword doc count: %w", err)
	}
	stored, err := s.storage.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("count chunks: %w", err)
	}
	if int64(indexed) >= stored {
		return nil
	}
	chunks, err := s.storage.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("list chunks: %w", err)
	}
	if err := s.keyword.Index(ctx, chunks); err != nil {
		return fmt.Errorf("reindex keywords: %w", err)
	}
	s.logger.Debug("keyword index rebuilt", zap.Int("chunks", len(chunks)))
	return nil
}

// Close releases the vector index, keyword index, and storage.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	if s.index != nil {
		errs = append(errs, s.index.Close())
		s.index = nil
	}
	if s.keyword != nil {
		errs = append(errs, s.keyword.Close())
	}
	errs = append(errs, s.storage.Close())
	return errors.Join(errs...)
}
