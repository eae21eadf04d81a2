package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const uriScheme = "agentflow://"

// registerResources registers the document resources when a store is available.
func (s *Server) registerResources() {
	if s.ports.Documents == nil {
		return
	}

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "Documents ingested for retrieval",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Document and chunk counts",
		MIMEType:    "application/json",
	}, s.handleStatusResource)
}

type documentInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path"`
	Pages  int    `json:"pages"`
	Chunks int    `json:"chunks"`
}

// handleDocumentsResource lists every ingested document.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, err := s.ports.Documents.Documents(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, len(docs))
	for i, d := range docs {
		infos[i] = documentInfo{ID: d.ID, Name: d.Name, Path: d.Path, Pages: d.Pages, Chunks: d.Chunks}
	}
	return jsonResource(req.Params.URI, infos)
}

// handleStatusResource reports document and chunk counts.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	docs, chunks, err := s.ports.Documents.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting documents: %w", err)
	}
	return jsonResource(req.Params.URI, map[string]int64{
		"documents": docs,
		"chunks":    chunks,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
