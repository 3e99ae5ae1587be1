package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codeindex/internal/indexer"
	"github.com/dshills/codeindex/internal/searcher"
	"github.com/dshills/codeindex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Project not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", searcher.MaxLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	searchMode := getStringDefault(args, "search_mode", string(searcher.SearchModeHybrid))
	switch searcher.SearchMode(searchMode) {
	case searcher.SearchModeHybrid, searcher.SearchModeVector, searcher.SearchModeKeyword:
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid search_mode", map[string]interface{}{
			"param":   "search_mode",
			"value":   searchMode,
			"allowed": []string{"hybrid", "vector", "keyword"},
		})
	}

	textWeight := getFloatDefault(args, "text_weight", 0)
	vectorWeight := getFloatDefault(args, "vector_weight", 0)
	if textWeight < 0 || vectorWeight < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "weights must not be negative", map[string]interface{}{
			"text_weight":   textWeight,
			"vector_weight": vectorWeight,
		})
	}

	if st := s.project.Status(ctx); st.Documents == 0 {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed yet", map[string]interface{}{
			"state":    string(st.State),
			"progress": st.Progress,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.SearchRequest{
		Query:        query,
		Symbols:      getStringSlice(args, "symbols"),
		Limit:        limit,
		Mode:         searcher.SearchMode(searchMode),
		TextWeight:   textWeight,
		VectorWeight: vectorWeight,
		UseCache:     true,
	})
	if errors.Is(err, searcher.ErrEmptyQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, err.Error(), nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"id":         r.ID,
			"name":       r.Name,
			"path":       r.Path,
			"start_line": r.StartLine,
			"end_line":   r.EndLine,
			"distance":   r.Distance,
			"content":    r.Content,
		})
	}

	response := map[string]interface{}{
		"results":       results,
		"total_results": resp.TotalResults,
		"search_mode":   string(resp.SearchMode),
		"duration_ms":   resp.Duration.Milliseconds(),
		"cache_hit":     resp.CacheHit,
		"reranked":      resp.Reranked,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.project.Status(ctx)

	response := map[string]interface{}{
		"project":   st.Project,
		"root":      s.root,
		"state":     string(st.State),
		"progress":  st.Progress,
		"indexed":   st.Documents > 0,
		"documents": st.Documents,
		"files":     st.Files,
	}
	if st.State == indexer.StateRunning {
		response["job"] = map[string]interface{}{
			"id":             st.JobID,
			"kind":           string(st.Job),
			"trigger":        string(st.Trigger),
			"files_embedded": st.Indexed,
		}
	}
	if st.LastJob != nil {
		response["last_job"] = completionParams(*st.LastJob)
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleReindex handles the reindex tool invocation
func (s *Server) handleReindex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := arguments(request)
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	mode := getStringDefault(args, "mode", string(indexer.JobFull))
	wait := getBoolDefault(args, "wait", false)

	var run func(context.Context) (indexer.Completion, error)
	switch indexer.JobKind(mode) {
	case indexer.JobFull:
		run = func(ctx context.Context) (indexer.Completion, error) {
			return s.project.RunFull(ctx, indexer.TriggerManual)
		}
	case indexer.JobIncremental:
		paths, err := s.resolvePaths(getStringSlice(args, "paths"))
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid paths", map[string]interface{}{
				"param":  "paths",
				"reason": err.Error(),
			})
		}
		run = func(ctx context.Context) (indexer.Completion, error) {
			return s.project.RunIncremental(ctx, indexer.TriggerManual, paths, nil)
		}
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{"full", "incremental"},
		})
	}

	if wait {
		c, err := run(ctx)
		if errors.Is(err, types.ErrSkipped) {
			return nil, errIndexingInProgress()
		}
		// Job failures are reported in the result, like the notification.
		return mcp.NewToolResultText(formatJSON(completionParams(c))), nil
	}

	if s.project.Status(ctx).State == indexer.StateRunning {
		return nil, errIndexingInProgress()
	}
	go func() {
		if _, err := run(s.jobCtx); errors.Is(err, types.ErrSkipped) {
			s.logger.Debug("reindex request skipped", "mode", mode)
		}
	}()

	response := map[string]interface{}{
		"accepted": true,
		"mode":     mode,
		"message":  "Indexing started; a " + NotificationIndexingCompleted + " notification is sent when it finishes.",
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleCancelIndexing handles the cancel_indexing tool invocation
func (s *Server) handleCancelIndexing(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"cancelled": s.project.Cancel(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// resolvePaths makes paths absolute against the project root and rejects
// paths outside it.
func (s *Server) resolvePaths(paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, errors.New("at least one path is required in incremental mode")
	}
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			return nil, errors.New("empty path")
		}
		abs := filepath.FromSlash(p)
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(s.root, abs)
		}
		abs = filepath.Clean(abs)
		rel, err := filepath.Rel(s.root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%s is outside the project root", p)
		}
		out = append(out, filepath.ToSlash(abs))
	}
	return out, nil
}

// Helper functions

func errIndexingInProgress() error {
	return newMCPError(ErrorCodeIndexingInProgress, "another indexing operation is already running", nil)
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// arguments returns the call arguments; a call without arguments yields an
// empty map.
func arguments(request mcp.CallToolRequest) (map[string]interface{}, bool) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, true
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	return args, ok
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter, skipping non-strings
func getStringSlice(args map[string]interface{}, key string) []string {
	switch val := args[key].(type) {
	case []string:
		return val
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, v := range val {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
