// Package keyword provides BM25 keyword search over ingested chunk text.
package keyword

import (
	"context"

	"github.com/hyperjump/agentflow/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// PhraseBoost multiplies the score of chunks where the query appears as a phrase.
	// Values <= 1 disable the boost.
	PhraseBoost float64
	// FuzzyEnabled matches terms within Fuzziness edits of a query term.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance (1 or 2). Default is 1.
	Fuzziness int
}

// KeywordIndex is a full-text index of chunks keyed by chunk ID.
type KeywordIndex interface {
	// Index adds chunks. Indexing an existing chunk ID replaces it.
	Index(ctx context.Context, chunks []*models.Chunk) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	// DocCount returns the number of indexed chunks.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single keyword search hit. ID is the chunk ID.
type KeywordResult struct {
	ID    string
	Score float64
}
