package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentflow/internal/models"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleDocumentsResource(t *testing.T) {
	ctx := context.Background()
	ts, _ := ragToolset(t)

	t.Run("lists documents", func(t *testing.T) {
		docs := &mockDocuments{docs: []*models.Document{
			{ID: "d1", Name: "a.pdf", Path: "/in/a.pdf", Pages: 2, Chunks: 3},
			{ID: "d2", Name: "b.pdf", Path: "/in/b.pdf", Pages: 1, Chunks: 1},
		}}
		server, err := NewServer(&Ports{Tools: ts, Documents: docs})
		require.NoError(t, err)

		res, err := server.handleDocumentsResource(ctx, readRequest("agentflow://documents"))
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "agentflow://documents", res.Contents[0].URI)
		assert.Equal(t, "application/json", res.Contents[0].MIMEType)

		var got []documentInfo
		require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "a.pdf", got[0].Name)
		assert.Equal(t, 3, got[0].Chunks)
	})

	t.Run("store error", func(t *testing.T) {
		server, err := NewServer(&Ports{Tools: ts, Documents: &mockDocuments{err: errBackend}})
		require.NoError(t, err)

		_, err = server.handleDocumentsResource(ctx, readRequest("agentflow://documents"))
		assert.ErrorIs(t, err, errBackend)
	})
}

func TestServer_handleStatusResource(t *testing.T) {
	ts, _ := ragToolset(t)
	docs := &mockDocuments{docs: []*models.Document{{ID: "d1", Chunks: 4}}}
	server, err := NewServer(&Ports{Tools: ts, Documents: docs})
	require.NoError(t, err)

	res, err := server.handleStatusResource(context.Background(), readRequest("agentflow://status"))
	require.NoError(t, err)

	var got map[string]int64
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &got))
	assert.Equal(t, int64(1), got["documents"])
	assert.Equal(t, int64(4), got["chunks"])
}
