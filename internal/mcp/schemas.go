package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Search the indexed project with natural language, keywords or identifiers",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language, keywords or identifiers)",
				},
				"symbols": map[string]interface{}{
					"type":        "array",
					"description": "Identifiers to boost; derived from the query when omitted",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     10,
					"minimum":     1,
					"maximum":     50,
				},
				"search_mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: hybrid (vector + keyword), vector (semantic only), or keyword (full-text only)",
					"enum":        []string{"hybrid", "vector", "keyword"},
					"default":     "hybrid",
				},
				"text_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the full-text score in hybrid mode",
					"minimum":     0.0,
				},
				"vector_weight": map[string]interface{}{
					"type":        "number",
					"description": "Weight of the vector score in hybrid mode",
					"minimum":     0.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report indexing state, progress and index statistics",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// reindexTool returns the tool definition for reindex
func reindexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "reindex",
		Description: "Start a full rebuild or re-index specific files",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "full rebuilds the whole index; incremental re-indexes the given paths",
					"enum":        []string{"full", "incremental"},
					"default":     "full",
				},
				"paths": map[string]interface{}{
					"type":        "array",
					"description": "Files to re-index in incremental mode, absolute or relative to the project root",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"wait": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, block until the job finishes and return its result",
					"default":     false,
				},
			},
		},
	}
}

// cancelIndexingTool returns the tool definition for cancel_indexing
func cancelIndexingTool() mcp.Tool {
	return mcp.Tool{
		Name:        "cancel_indexing",
		Description: "Cancel a running full re-index; files already embedded are kept",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
