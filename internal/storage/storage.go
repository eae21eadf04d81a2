// Package storage persists ingested document records and chunk text.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/agentflow/internal/models"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage holds documents and their chunks. Documents are only deleted to undo a failed ingestion.
type Storage interface {
	// AddDocument stores doc and its chunks atomically.
	AddDocument(ctx context.Context, doc *models.Document, chunks []*models.Chunk) error
	// DeleteDocument removes a document and its chunks. It undoes an AddDocument
	// whose vectors could not be indexed.
	DeleteDocument(ctx context.Context, id string) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocuments(ctx context.Context, offset, limit int) ([]*models.Document, error)

	// GetChunks returns the chunks with the given IDs keyed by ID. Unknown IDs are omitted.
	GetChunks(ctx context.Context, ids []string) (map[string]*models.Chunk, error)
	// ListChunks returns every chunk in insertion order.
	ListChunks(ctx context.Context) ([]*models.Chunk, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)

	Close() error
}
