package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/agentflow/internal/embedding"
	"github.com/hyperjump/agentflow/internal/indexer"
	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/rag"
)

// seed appends one document whose chunks have the given contents.
func seed(t *testing.T, store *rag.Store, emb embedding.Embedder, contents ...string) {
	t.Helper()
	ctx := context.Background()
	docID := fmt.Sprintf("doc-%d", time.Now().UnixNano())
	chunks := make([]*models.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = &models.Chunk{ID: fmt.Sprintf("%s-%d", docID, i), DocumentID: docID, Content: c, Position: i}
	}
	embs, err := emb.EmbedBatch(ctx, contents)
	if err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{ID: docID, Name: "seed.pdf", Chunks: len(chunks), IngestedAt: time.Now()}
	if err := store.Append(ctx, doc, chunks, embs); err != nil {
		t.Fatal(err)
	}
}

func newRetriever(t *testing.T, opts ...rag.StoreOption) (*Retriever, *rag.Store, embedding.Embedder) {
	t.Helper()
	store := rag.NewStore(nil, opts...)
	t.Cleanup(func() { _ = store.Close() })
	emb := embedding.NewHashEmbedder(64)
	return NewRetriever(store, emb), store, emb
}

func TestRetrieve_NoData(t *testing.T) {
	r, _, _ := newRetriever(t)
	ctx := context.Background()
	for _, tc := range []struct {
		query string
		k     int
	}{{"anything", 4}, {"", 0}, {"   ", -3}, {"x", 100}} {
		got, err := r.Retrieve(ctx, tc.query, tc.k)
		if err != nil {
			t.Fatalf("Retrieve(%q, %d): %v", tc.query, tc.k, err)
		}
		if got != rag.NoDataMessage {
			t.Errorf("Retrieve(%q, %d) = %q, want %q", tc.query, tc.k, got, rag.NoDataMessage)
		}
	}
	resp, err := r.Search(ctx, &models.RetrieveRequest{Query: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Results == nil || len(resp.Results) != 0 || resp.K != models.DefaultK {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r, store, emb := newRetriever(t)
	seed(t, store, emb, "some content")
	_, err := r.Retrieve(context.Background(), " \t", 4)
	if !errors.Is(err, rag.ErrEmptyQuery) {
		t.Errorf("got %v, want ErrEmptyQuery", err)
	}
}

func TestRetrieve_ExactMatchFirst(t *testing.T) {
	r, store, emb := newRetriever(t)
	seed(t, store, emb,
		"the cat sat on the mat",
		"quarterly revenue increased by ten percent",
		"employees may work remotely on fridays",
	)
	resp, err := r.Search(context.Background(), &models.RetrieveRequest{
		Query: "quarterly revenue increased by ten percent", K: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	first := resp.Results[0]
	if first.Chunk.Content != "quarterly revenue increased by ten percent" || first.Distance > 1e-9 || first.Rank != 1 {
		t.Errorf("first = %+v (distance %g)", first.Chunk, first.Distance)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Distance < resp.Results[i-1].Distance {
			t.Errorf("results not ordered by distance at %d", i)
		}
	}
}

func TestRetrieve_FewerChunksThanK(t *testing.T) {
	r, store, emb := newRetriever(t)
	seed(t, store, emb, "alpha", "beta")
	got, err := r.Retrieve(context.Background(), "alpha", 10)
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(got, ContextSeparator)
	if len(parts) != 2 {
		t.Errorf("got %d chunk texts, want 2: %q", len(parts), got)
	}
}

func TestRetrieve_SeparatorCount(t *testing.T) {
	r, store, emb := newRetriever(t)
	seed(t, store, emb, "one", "two", "three", "four", "five", "six")
	for k := 1; k <= 6; k++ {
		got, err := r.Retrieve(context.Background(), "three", k)
		if err != nil {
			t.Fatal(err)
		}
		if n := strings.Count(got, ContextSeparator); n != k-1 {
			t.Errorf("k=%d: %d separators, want %d", k, n, k-1)
		}
	}
}

func TestRetrieve_DefaultK(t *testing.T) {
	r, store, emb := newRetriever(t)
	seed(t, store, emb, "a1", "a2", "a3", "a4", "a5", "a6")
	resp, err := r.Search(context.Background(), &models.RetrieveRequest{Query: "a1", K: 0})
	if err != nil {
		t.Fatal(err)
	}
	if resp.K != 4 || len(resp.Results) != 4 {
		t.Errorf("K=%d results=%d, want 4/4", resp.K, len(resp.Results))
	}

	r = NewRetriever(store, emb, WithDefaultK(2))
	resp, _ = r.Search(context.Background(), &models.RetrieveRequest{Query: "a1", K: -1})
	if len(resp.Results) != 2 {
		t.Errorf("WithDefaultK(2): got %d results", len(resp.Results))
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	r, store, emb := newRetriever(t)
	seed(t, store, emb, "red apples", "green pears", "red cherries", "yellow bananas")
	first, err := r.Retrieve(context.Background(), "red fruit", 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, _ := r.Retrieve(context.Background(), "red fruit", 3)
		if again != first {
			t.Fatalf("retrieval changed between calls: %q vs %q", first, again)
		}
	}
}

type brokenEmbedder struct{ embedding.Embedder }

func (brokenEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("boom")
}

func TestRetrieve_EmbeddingFailure(t *testing.T) {
	_, store, emb := newRetriever(t)
	seed(t, store, emb, "content")
	r := NewRetriever(store, brokenEmbedder{emb})
	_, err := r.Retrieve(context.Background(), "content", 1)
	if !errors.Is(err, rag.ErrEmbeddingFailure) {
		t.Errorf("got %v", err)
	}
}

func TestKeywordSearch(t *testing.T) {
	kw, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	r, store, emb := newRetriever(t, rag.WithKeywordIndex(kw))

	resp, err := r.KeywordSearch(context.Background(), &models.RetrieveRequest{Query: "invoice"}, nil)
	if err != nil || resp.Context != rag.NoDataMessage {
		t.Fatalf("empty store: %+v, %v", resp, err)
	}

	seed(t, store, emb, "invoice for march", "meeting notes", "overdue invoice reminder")
	resp, err = r.KeywordSearch(context.Background(), &models.RetrieveRequest{Query: "invoice", K: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("got %d results", len(resp.Results))
	}
	if strings.Count(resp.Context, ContextSeparator) != 1 {
		t.Errorf("context = %q", resp.Context)
	}
	if _, err := r.KeywordSearch(context.Background(), &models.RetrieveRequest{Query: "  "}, nil); !errors.Is(err, rag.ErrEmptyQuery) {
		t.Errorf("blank query: %v", err)
	}
}

func TestRetrieve_AfterIngest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handbook.txt")
	text := strings.Repeat("Vacation policy allows twenty days. ", 30)
	if err := os.WriteFile(path, []byte(text), 0600); err != nil {
		t.Fatal(err)
	}
	r, store, emb := newRetriever(t)
	chunker, err := indexer.NewChunker(indexer.DefaultChunkSize, indexer.DefaultChunkOverlap)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := indexer.NewIngestor(store, emb, chunker).Ingest(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	got, err := r.Retrieve(context.Background(), "vacation policy", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got == rag.NoDataMessage || !strings.Contains(got, "Vacation policy") {
		t.Errorf("got %q", got)
	}
}
