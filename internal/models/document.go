// Package models defines core data structures for ingested documents, chunks, and retrieval results.
package models

import "time"

// Document records one ingested file. The file bytes are not retained.
type Document struct {
	ID         string    `json:"id" db:"id"`
	SourceID   string    `json:"source_id" db:"source_id"`
	Name       string    `json:"name" db:"name"`
	Path       string    `json:"path" db:"path"`
	Pages      int       `json:"pages" db:"pages"`
	Chunks     int       `json:"chunks" db:"chunks"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

// Chunk is a contiguous substring of a document's extracted text.
// Its embedding is owned by the vector index and keyed by ID.
type Chunk struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Content    string `json:"content" db:"content"`
	Position   int    `json:"position" db:"position"`
}
