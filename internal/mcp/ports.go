package mcp

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/models"
	"github.com/hyperjump/agentflow/internal/tools"
)

// DocumentStore lists what has been ingested.
type DocumentStore interface {
	Documents(ctx context.Context, offset, limit int) ([]*models.Document, error)
	Counts(ctx context.Context) (documents, chunks int64, err error)
}

// Ports aggregates what the MCP server needs.
type Ports struct {
	// Tools backs every MCP tool.
	Tools *tools.Toolset

	// Documents backs the document resources. Optional.
	Documents DocumentStore

	// Logger receives tool call logs. Stdout is the protocol channel in stdio
	// mode, so this logger must not write there.
	Logger *zap.Logger
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Tools == nil {
		return ErrMissingToolset
	}
	return p.Tools.Validate()
}
