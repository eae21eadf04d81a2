// Package vector provides append-only vector indexes with exact nearest-neighbour search.
package vector

import "context"

// VectorIndex stores embeddings by ID and returns nearest neighbours by squared
// Euclidean distance. Indexes only grow: there is no removal or update.
type VectorIndex interface {
	Add(ctx context.Context, ids []string, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Dimensions() int
	Type() string
	Close() error
}

// VectorResult is a single nearest-neighbour hit. ID is the chunk ID.
type VectorResult struct {
	ID       string
	Distance float64 // squared L2; lower is closer
}
