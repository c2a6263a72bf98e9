// Package api serves the MCP server over HTTP: the streamable endpoint
// plus a health check, behind the shared middleware chain.
package api

import (
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// NewHandler mounts the MCP streamable endpoint at /mcp and a health
// probe at /health.
func NewHandler(srv *mcp.Server, log zerolog.Logger) http.Handler {
	mcpHandler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return srv
	}, nil)

	mux := http.NewServeMux()
	mux.Handle("/mcp", mcpHandler)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// RequestID runs before the logger so request logs carry the id.
	return Recovery(log)(
		RequestID(
			RequestLogger(log)(
				CORS(mux),
			),
		),
	)
}
