package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hyperjump/agentflow/internal/config"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func sqDist(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i] - b[i])
		s += d * d
	}
	return s
}

func TestHashEmbedder_DeterministicAndNormalized(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "The quick brown fox")
	b, _ := e.Embed(ctx, "The quick brown fox")
	if len(a) != 64 {
		t.Fatalf("len = %d", len(a))
	}
	if sqDist(a, b) != 0 {
		t.Error("same text should give identical vectors")
	}
	if n := norm(a); math.Abs(n-1) > 1e-5 {
		t.Errorf("norm = %f, want 1", n)
	}
}

func TestHashEmbedder_SharedVocabularyIsCloser(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()
	q, _ := e.Embed(ctx, "solar panel efficiency")
	near, _ := e.Embed(ctx, "the efficiency of a solar panel")
	far, _ := e.Embed(ctx, "medieval castle architecture")
	if sqDist(q, near) >= sqDist(q, far) {
		t.Errorf("expected overlapping text to be closer: near=%f far=%f", sqDist(q, near), sqDist(q, far))
	}
}

func TestHashEmbedder_EmptyTextAndCancel(t *testing.T) {
	e := NewHashEmbedder(0)
	if e.Dimensions() != 384 {
		t.Errorf("default dimensions = %d", e.Dimensions())
	}
	v, err := e.Embed(context.Background(), "")
	if err != nil || len(v) != 384 {
		t.Fatalf("empty text: %v, len %d", err, len(v))
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.EmbedBatch(ctx, []string{"a"}); err == nil {
		t.Error("expected context error")
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Prompt == "fail" {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaResponse{Embedding: []float64{0.5, float64(len(req.Prompt))}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL+"/", "test-model", 2)
	embs, err := e.EmbedBatch(context.Background(), []string{"ab", "abcd"})
	if err != nil {
		t.Fatal(err)
	}
	if embs[0][1] != 2 || embs[1][1] != 4 {
		t.Errorf("got %v", embs)
	}
	if _, err := e.Embed(context.Background(), "fail"); err == nil {
		t.Error("expected error for non-200 response")
	}
	if e.Model() != "test-model" {
		t.Errorf("Model = %s", e.Model())
	}

	wrongDims := NewOllamaEmbedder(srv.URL, "", 3)
	if _, err := wrongDims.Embed(context.Background(), "x"); err == nil {
		t.Error("expected dimension mismatch error")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		// Return items in reverse order to check that Index is honoured.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			data[i] = item{Object: "embedding", Index: j, Embedding: []float64{float64(len(req.Input[j])), float64(req.Dimensions)}}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("test-key", srv.URL+"/", "", 2)
	if err != nil {
		t.Fatal(err)
	}
	embs, err := e.EmbedBatch(context.Background(), []string{"a", "abc"})
	if err != nil {
		t.Fatal(err)
	}
	if embs[0][0] != 1 || embs[1][0] != 3 || embs[0][1] != 2 {
		t.Errorf("got %v", embs)
	}
	if e.Model() != DefaultOpenAIModel {
		t.Errorf("Model = %s", e.Model())
	}
}

func TestNewOpenAIEmbedder_RequiresKey(t *testing.T) {
	if _, err := NewOpenAIEmbedder("", "", "", 8); err == nil {
		t.Error("expected error without API key")
	}
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(&config.EmbeddingConfig{Provider: config.ProviderHash, Dimensions: 16}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*HashEmbedder); !ok {
		t.Errorf("hash provider should not be cached, got %T", e)
	}

	e, err = NewEmbedder(&config.EmbeddingConfig{Provider: config.ProviderOllama, Dimensions: 16, CacheSize: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("ollama provider should be cached, got %T", e)
	}

	if _, err := NewEmbedder(&config.EmbeddingConfig{Provider: "nope"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	}
}
