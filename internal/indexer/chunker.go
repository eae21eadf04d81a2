// Package indexer splits extracted text into chunks and ingests documents into the RAG store.
package indexer

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hyperjump/agentflow/internal/models"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// Chunker splits text into fixed-size character windows. Consecutive windows
// share exactly overlap characters; only the last window may be shorter.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split returns the chunk texts for text. Characters are runes, so multi-byte
// text is never cut inside a character.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	parts := make([]string, 0, len(runes)/step+1)
	for start := 0; ; start += step {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return parts
}

// Chunk splits text into chunks owned by docID, numbered from zero.
func (c *Chunker) Chunk(docID, text string) []*models.Chunk {
	parts := c.Split(text)
	if len(parts) == 0 {
		return nil
	}
	chunks := make([]*models.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = &models.Chunk{
			ID:         uuid.New().String(),
			DocumentID: docID,
			Content:    part,
			Position:   i,
		}
	}
	return chunks
}
