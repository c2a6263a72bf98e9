// Package server assembles the MCP server: it wires the tool handlers to
// their registrations and owns the protocol-facing metadata.
package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/avoronov/ledger-mcp/internal/embedding"
	"github.com/avoronov/ledger-mcp/internal/supabase"
	"github.com/avoronov/ledger-mcp/internal/tools"
)

const (
	serverName    = "ledger-mcp"
	serverVersion = "0.1.0"
)

// New creates a fully configured MCP server with all tools registered.
func New(store supabase.Store, embedder embedding.Embedder, log zerolog.Logger) *mcp.Server {
	lt := tools.New(store, embedder, log)

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: serverVersion,
	}, &mcp.ServerOptions{
		Instructions: "Tools for managing accounts, transactions, and semantic search over Supabase data.",
	})

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_transaction",
		Description: "Insert a transaction row, automatically embedding the description.",
	}, lt.CreateTransaction)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_similar_transactions",
		Description: "Semantic nearest-neighbor search over historical transactions.",
	}, lt.SearchSimilarTransactions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "upsert_category",
		Description: "Create or update a category with embeddings for semantic search.",
	}, lt.UpsertCategory)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_similar_categories",
		Description: "Semantic search across categories by embedding query.",
	}, lt.SearchSimilarCategories)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_accounts",
		Description: "List accounts with optional filters by type or name substring.",
	}, lt.ListAccounts)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "upsert_account",
		Description: "Create or update an account keyed by name+type.",
	}, lt.UpsertAccount)

	return srv
}
