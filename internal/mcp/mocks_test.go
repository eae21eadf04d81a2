package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentflow/internal/embedding"
	"github.com/hyperjump/agentflow/internal/indexer"
	"github.com/hyperjump/agentflow/internal/keyword"
	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/rag"
	"github.com/hyperjump/agentflow/internal/search"
	"github.com/hyperjump/agentflow/internal/tools"
)

// ragToolset builds the real ingest and retrieve pipeline over an in-memory store.
func ragToolset(t *testing.T) (*tools.Toolset, *rag.Store) {
	t.Helper()
	kw, err := keyword.NewBleveIndex("")
	require.NoError(t, err)
	store := rag.NewStore(nil, rag.WithKeywordIndex(kw))
	t.Cleanup(func() { _ = store.Close() })

	emb := embedding.NewHashEmbedder(64)
	chunker, err := indexer.NewChunker(500, 50)
	require.NoError(t, err)
	return &tools.Toolset{
		Ingester:  indexer.NewIngestor(store, emb, chunker),
		Retriever: search.NewRetriever(store, emb),
	}, store
}

type mockPusher struct {
	messages []string
	err      error
}

func (m *mockPusher) Push(_ context.Context, msg string) error {
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)
	return nil
}

type mockWebSearch struct {
	result string
}

func (m *mockWebSearch) Search(_ context.Context, query string) (string, error) {
	return m.result, nil
}

type mockDocuments struct {
	docs []*models.Document
	err  error
}

func (m *mockDocuments) Documents(_ context.Context, _, _ int) ([]*models.Document, error) {
	return m.docs, m.err
}

func (m *mockDocuments) Counts(_ context.Context) (int64, int64, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	var chunks int64
	for _, d := range m.docs {
		chunks += int64(d.Chunks)
	}
	return int64(len(m.docs)), chunks, nil
}

var errBackend = errors.New("backend unavailable")
