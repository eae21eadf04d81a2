package mcp

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentflow/internal/tools"
)

func TestNewServer(t *testing.T) {
	t.Run("nil toolset returns error", func(t *testing.T) {
		server, err := NewServer(&Ports{})
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingToolset)
	})

	t.Run("toolset without RAG services returns error", func(t *testing.T) {
		_, err := NewServer(&Ports{Tools: &tools.Toolset{}})
		assert.ErrorIs(t, err, tools.ErrMissingRAG)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ts, _ := ragToolset(t)
		server, err := NewServer(&Ports{Tools: ts})
		require.NoError(t, err)
		assert.NotNil(t, server)
		assert.NotNil(t, server.Handler())
	})
}

// connect starts the server on an in-memory transport and returns a client session.
func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func TestServer_ListTools(t *testing.T) {
	ts, _ := ragToolset(t)
	ts.Pusher = &mockPusher{}
	s, err := NewServer(&Ports{Tools: ts})
	require.NoError(t, err)

	res, err := connect(t, s).ListTools(context.Background(), nil)
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"ingest_pdf_for_rag",
		"rag_retrieve",
		"rag_keyword_search",
		"send_push_notification",
	}, names)
}

func TestServer_CallTool(t *testing.T) {
	ts, _ := ragToolset(t)
	s, err := NewServer(&Ports{Tools: ts})
	require.NoError(t, err)
	cs := connect(t, s)
	ctx := context.Background()

	t.Run("retrieve before ingestion", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "rag_retrieve",
			Arguments: map[string]any{"query": "anything"},
		})
		require.NoError(t, err)
		assert.False(t, res.IsError)
		require.NotEmpty(t, res.Content)
		text, ok := res.Content[0].(*mcp.TextContent)
		require.True(t, ok)
		assert.Contains(t, text.Text, "No PDF data ingested yet.")
	})

	t.Run("missing file is a tool error", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "ingest_pdf_for_rag",
			Arguments: map[string]any{"path": "/does/not/exist.pdf"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}
