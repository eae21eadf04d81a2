// Package embedding turns text into fixed-dimension vectors. Providers are a
// local hash embedder, an ONNX sentence model, and OpenAI-compatible or Ollama HTTP endpoints.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every vector returned by one
// Embedder has Dimensions() components.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Named is implemented by embedders that can report the model they use.
type Named interface {
	Model() string
}

// ModelName returns e's model name, or "unknown" when e does not report one.
func ModelName(e Embedder) string {
	if n, ok := e.(Named); ok {
		return n.Model()
	}
	return "unknown"
}

// embedEach calls embed for every text in order, stopping at the first error
// or when ctx is cancelled.
func embedEach(ctx context.Context, texts []string, embed func(context.Context, string) ([]float32, error)) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		emb, err := embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
