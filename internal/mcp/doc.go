// Package mcp implements the Model Context Protocol (MCP) server for codeindex.
//
// One server serves one project and exposes four tools:
//   - search_code: hybrid search over the project's index
//   - get_status: indexing state, progress and statistics
//   - reindex: start a full rebuild or re-index given files
//   - cancel_indexing: stop a running full rebuild
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server is started by the serve command and reads requests from stdin:
//
//	codeindex serve --root /path/to/project
//
// # Tool: search_code
//
//	Request:
//	{
//	  "name": "search_code",
//	  "arguments": {
//	    "query": "where is the HybridSearch fusion done",
//	    "limit": 5,
//	    "search_mode": "hybrid"
//	  }
//	}
//
//	Response:
//	{
//	  "results": [
//	    {
//	      "id": "/repo/internal/storage/search.go:1:60",
//	      "name": "search.go",
//	      "path": "/repo/internal/storage/search.go",
//	      "start_line": 1,
//	      "end_line": 60,
//	      "distance": 0.18,
//	      "content": "..."
//	    }
//	  ],
//	  "total_results": 1,
//	  "search_mode": "hybrid",
//	  "reranked": true
//	}
//
// Identifiers in the query (or in the optional "symbols" argument) boost
// chunks of files that declare matching classes, methods or fields.
//
// # Tool: reindex
//
// By default the job runs in the background and the call returns at once.
// When the job ends every client receives a notification:
//
//	{
//	  "method": "notifications/indexing_completed",
//	  "params": {
//	    "job_id": "6f1c...",
//	    "kind": "full",
//	    "trigger": "manual",
//	    "files": 247,
//	    "documents": 1210,
//	    "succeeded": true,
//	    "duration_ms": 35200
//	  }
//	}
//
// Periodic and file-change jobs send the same notification.
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32002: Indexing in progress
//   - -32003: Project not indexed
//   - -32004: Empty query
//
// # Logging
//
// The server logs to stderr; stdout is reserved for the protocol.
package mcp
