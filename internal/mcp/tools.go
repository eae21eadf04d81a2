package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/agentflow/internal/tools"
)

// TextOutput is the output schema shared by every tool.
type TextOutput struct {
	Result string `json:"result"`
}

// registerTools registers the RAG tools and every configured vendor tool.
func (s *Server) registerTools() {
	ts := s.ports.Tools

	addTool(s, tools.DefIngestPDF, s.handleIngest)
	addTool(s, tools.DefRetrieve, s.handleRetrieve)
	addTool(s, tools.DefKeywordSearch, s.handleKeywordSearch)

	if ts.Files != nil {
		addTool(s, tools.DefReadFile, textTool(s, tools.DefReadFile.Name, ts.ReadFile))
		addTool(s, tools.DefWriteFile, textTool(s, tools.DefWriteFile.Name, ts.WriteFile))
		addTool(s, tools.DefListDirectory, textTool(s, tools.DefListDirectory.Name, ts.ListDirectory))
		addTool(s, tools.DefCopyFile, textTool(s, tools.DefCopyFile.Name, ts.CopyFile))
		addTool(s, tools.DefMoveFile, textTool(s, tools.DefMoveFile.Name, ts.MoveFile))
		addTool(s, tools.DefDeleteFile, textTool(s, tools.DefDeleteFile.Name, ts.DeleteFile))
		addTool(s, tools.DefFileSearch, textTool(s, tools.DefFileSearch.Name, ts.FileSearch))
	}
	if ts.Pusher != nil {
		addTool(s, tools.DefPush, textTool(s, tools.DefPush.Name, ts.Push))
	}
	if ts.Search != nil {
		addTool(s, tools.DefSearch, textTool(s, tools.DefSearch.Name, ts.WebSearch))
	}
	if ts.Wikipedia != nil {
		addTool(s, tools.DefWikipedia, textTool(s, tools.DefWikipedia.Name, ts.Wiki))
	}
	if ts.Calendar != nil {
		addTool(s, tools.DefCreateEvent, textTool(s, tools.DefCreateEvent.Name, ts.CreateEvent))
		addTool(s, tools.DefListEvents, textTool(s, tools.DefListEvents.Name, ts.ListEvents))
	}
}

func addTool[In any](s *Server, def tools.Definition, h mcp.ToolHandlerFor[In, TextOutput]) {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
	}, h)
}

// textTool adapts a toolset method. A returned error becomes an MCP tool error.
func textTool[In any](s *Server, name string, fn func(context.Context, In) (string, error)) mcp.ToolHandlerFor[In, TextOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in In) (*mcp.CallToolResult, TextOutput, error) {
		start := time.Now()
		out, err := fn(ctx, in)
		if err != nil {
			s.logger.Warn("Tool failed", zap.String("tool", name), zap.Error(err))
			return nil, TextOutput{}, err
		}
		s.logger.Debug("Tool called", zap.String("tool", name), zap.Duration("took", time.Since(start)))
		return nil, TextOutput{Result: out}, nil
	}
}

// handleIngest handles ingest_pdf_for_rag.
func (s *Server) handleIngest(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input tools.IngestInput,
) (*mcp.CallToolResult, TextOutput, error) {
	return textTool(s, tools.DefIngestPDF.Name, s.ports.Tools.IngestPDF)(ctx, req, input)
}

// handleRetrieve handles rag_retrieve.
func (s *Server) handleRetrieve(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input tools.RetrieveInput,
) (*mcp.CallToolResult, TextOutput, error) {
	return textTool(s, tools.DefRetrieve.Name, s.ports.Tools.Retrieve)(ctx, req, input)
}

// handleKeywordSearch handles rag_keyword_search.
func (s *Server) handleKeywordSearch(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input tools.KeywordSearchInput,
) (*mcp.CallToolResult, TextOutput, error) {
	return textTool(s, tools.DefKeywordSearch.Name, s.ports.Tools.KeywordSearch)(ctx, req, input)
}
