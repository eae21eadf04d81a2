package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/hyperjump/agentflow/internal/models"
)

// MemoryStorage keeps documents and chunks in process memory.
type MemoryStorage struct {
	mu         sync.RWMutex
	docs       map[string]*models.Document
	docOrder   []string
	chunks     map[string]*models.Chunk
	chunkOrder []string
}

// NewMemoryStorage returns an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		docs:   make(map[string]*models.Document),
		chunks: make(map[string]*models.Chunk),
	}
}

// AddDocument stores doc and chunks. Fails without side effects if any ID already exists.
func (s *MemoryStorage) AddDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[doc.ID]; ok {
		return fmt.Errorf("document %s already exists", doc.ID)
	}
	for _, ch := range chunks {
		if _, ok := s.chunks[ch.ID]; ok {
			return fmt.Errorf("chunk %s already exists", ch.ID)
		}
	}
	d := *doc
	s.docs[doc.ID] = &d
	s.docOrder = append(s.docOrder, doc.ID)
	for _, ch := range chunks {
		c := *ch
		s.chunks[ch.ID] = &c
		s.chunkOrder = append(s.chunkOrder, ch.ID)
	}
	return nil
}

// DeleteDocument removes the document with id and its chunks.
func (s *MemoryStorage) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	delete(s.docs, id)
	s.docOrder = without(s.docOrder, func(d string) bool { return d == id })
	s.chunkOrder = without(s.chunkOrder, func(c string) bool {
		if s.chunks[c].DocumentID != id {
			return false
		}
		delete(s.chunks, c)
		return true
	})
	return nil
}

func without(ids []string, drop func(string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if !drop(id) {
			out = append(out, id)
		}
	}
	return out
}

// GetDocument returns a copy of the document with id.
func (s *MemoryStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	d := *doc
	return &d, nil
}

// ListDocuments returns documents in ingestion order.
func (s *MemoryStorage) ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := page(s.docOrder, offset, limit)
	out := make([]*models.Document, len(ids))
	for i, id := range ids {
		d := *s.docs[id]
		out[i] = &d
	}
	return out, nil
}

// GetChunks returns copies of the chunks with the given IDs.
func (s *MemoryStorage) GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*models.Chunk, len(ids))
	for _, id := range ids {
		if ch, ok := s.chunks[id]; ok {
			c := *ch
			out[id] = &c
		}
	}
	return out, nil
}

// ListChunks returns every chunk in insertion order.
func (s *MemoryStorage) ListChunks(ctx context.Context) ([]*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Chunk, len(s.chunkOrder))
	for i, id := range s.chunkOrder {
		c := *s.chunks[id]
		out[i] = &c
	}
	return out, nil
}

// CountDocuments returns the number of documents.
func (s *MemoryStorage) CountDocuments(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.docOrder)), nil
}

// CountChunks returns the number of chunks.
func (s *MemoryStorage) CountChunks(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.chunkOrder)), nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

// page applies offset/limit to ids. A non-positive limit means no limit.
func page(ids []string, offset, limit int) []string {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(ids) {
		return nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}
