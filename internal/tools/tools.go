// Package tools implements the six gateway operations exposed to agents:
// transaction creation, account and category upserts, account listing, and
// vector-similarity search over transactions and categories.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/avoronov/ledger-mcp/internal/embedding"
	"github.com/avoronov/ledger-mcp/internal/logger"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

// LedgerTools holds the collaborators every handler composes: the row
// store and the embedding provider, both behind interfaces so tests can
// substitute doubles without touching orchestration.
type LedgerTools struct {
	store    supabase.Store
	embedder embedding.Embedder
	log      zerolog.Logger
}

// New creates the tool set from its collaborators.
func New(store supabase.Store, embedder embedding.Embedder, log zerolog.Logger) *LedgerTools {
	return &LedgerTools{
		store:    store,
		embedder: embedder,
		log:      log,
	}
}

// begin binds a fresh invocation id into the logger and the context so
// store and embedder logs correlate with the tool call that caused them.
func (t *LedgerTools) begin(ctx context.Context, tool string) (context.Context, zerolog.Logger) {
	log := t.log.With().
		Str("invocation_id", uuid.NewString()).
		Str("tool", tool).
		Logger()
	return logger.WithContext(ctx, log), log
}

// result wraps a success payload in its single named key. The same
// envelope is returned as structured content and as pretty-printed text.
func result(key string, value any) (*mcp.CallToolResult, any, error) {
	payload := map[string]any{key: value}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, payload, nil
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

// invalidParams reports a caller-correctable input failure, naming the
// offending field.
func invalidParams(field, message string) *mcp.CallToolResult {
	return toolError("%s (field: %s)", message, field)
}

// internalError reports an upstream or integrity failure with the
// attempted action and the underlying cause.
func internalError(action string, err error) *mcp.CallToolResult {
	return toolError("Failed to %s: %v", action, err)
}
