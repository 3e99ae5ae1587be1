package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/searcher"
)

const (
	// ServerName is the MCP server name
	ServerName = "codeindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// NotificationIndexingCompleted is sent to every client when a job ends
	NotificationIndexingCompleted = "notifications/indexing_completed"
)

// Searcher answers search_code calls
type Searcher interface {
	Search(ctx context.Context, req searcher.SearchRequest) (*searcher.SearchResponse, error)
}

// Project is the indexing surface of one project
type Project interface {
	Status(ctx context.Context) indexer.Status
	RunFull(ctx context.Context, trigger indexer.Trigger) (indexer.Completion, error)
	RunIncremental(ctx context.Context, trigger indexer.Trigger, addPaths, removePaths []string) (indexer.Completion, error)
	Cancel() bool
}

// Server exposes one indexed project over MCP
type Server struct {
	mcp      *server.MCPServer
	searcher Searcher
	project  Project
	root     string
	logger   *slog.Logger

	// jobs started by reindex outlive the tool call
	jobCtx context.Context
}

// NewServer registers the tools for the project rooted at root. Background
// reindex jobs run under ctx.
func NewServer(ctx context.Context, srch Searcher, project Project, root string, logger *slog.Logger) (*Server, error) {
	if srch == nil || project == nil {
		return nil, errors.New("mcp: searcher and project are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		searcher: srch,
		project:  project,
		root:     root,
		logger:   logger,
		jobCtx:   ctx,
	}
	s.registerTools()
	return s, nil
}

// Serve runs the MCP protocol over in and out until ctx is done.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	return stdio.Listen(ctx, in, out)
}

// IndexingCompleted forwards a job completion to every connected client.
func (s *Server) IndexingCompleted(c indexer.Completion) {
	s.mcp.SendNotificationToAllClients(NotificationIndexingCompleted, completionParams(c))
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(reindexTool(), s.handleReindex)
	s.mcp.AddTool(cancelIndexingTool(), s.handleCancelIndexing)
}

func completionParams(c indexer.Completion) map[string]any {
	params := map[string]any{
		"job_id":      c.JobID,
		"project":     c.Project,
		"kind":        string(c.Kind),
		"trigger":     string(c.Trigger),
		"files":       c.Files,
		"documents":   c.Documents,
		"removed":     c.Removed,
		"cancelled":   c.Cancelled,
		"succeeded":   c.Succeeded(),
		"duration_ms": c.Duration.Milliseconds(),
	}
	if c.Err != nil {
		params["error"] = c.Err.Error()
	}
	return params
}
