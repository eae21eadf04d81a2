package embedding

import (
	"context"
	"strings"

	"github.com/hyperjump/agentflow/pkg/utils"
)

// HashEmbedder is a deterministic, offline embedder using the hashing trick:
// each lower-cased token and each adjacent token pair adds a signed unit to a
// bucket, and the result is L2-normalized. Texts sharing vocabulary end up close,
// and identical texts always get identical vectors.
type HashEmbedder struct {
	dimensions int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of the given dimension (384 when not positive).
func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

// Embed returns the hashed embedding of text.
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	emb := make([]float32, e.dimensions)
	words := SplitWords(strings.ToLower(text))
	for i, w := range words {
		e.add(emb, w, 1)
		if i > 0 {
			e.add(emb, words[i-1]+" "+w, 0.5)
		}
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

func (e *HashEmbedder) add(emb []float32, token string, weight float32) {
	h := HashString(token)
	if h%2 == 1 {
		weight = -weight
	}
	emb[(h/2)%uint32(e.dimensions)] += weight
}

// EmbedBatch calls Embed for each text.
func (e *HashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, texts, e.Embed)
}

// Dimensions returns the embedding dimension.
func (e *HashEmbedder) Dimensions() int {
	return e.dimensions
}

// Model returns the provider name.
func (e *HashEmbedder) Model() string {
	return "hash"
}

// Close is a no-op for HashEmbedder.
func (e *HashEmbedder) Close() error {
	return nil
}
