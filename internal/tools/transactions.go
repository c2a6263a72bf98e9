package tools

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avoronov/ledger-mcp/internal/domain"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

// CreateTransaction appends one transaction row. The description is
// embedded only when it carries text after trimming; blank descriptions
// persist with no embedding.
func (t *LedgerTools) CreateTransaction(ctx context.Context, _ *mcp.CallToolRequest, input domain.CreateTransactionInput) (*mcp.CallToolResult, any, error) {
	ctx, log := t.begin(ctx, "create_transaction")
	start := time.Now()
	log.Info().Str("account_id", input.AccountID).Msg("Creating transaction")

	if !input.Direction.Valid() {
		return invalidParams("direction", "direction must be income, expense or transfer"), nil, nil
	}

	vector, err := t.embedder.MaybeEmbed(ctx, input.Description)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate transaction embedding")
		return internalError("generate transaction embedding", err), nil, nil
	}

	record, err := t.store.InsertTransaction(ctx, &input, vector)
	if err != nil {
		log.Error().Err(err).Msg("Failed to insert transaction")
		return internalError("insert transaction", err), nil, nil
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Transaction created successfully")
	return result("transaction", record)
}

// SearchSimilarTransactions embeds the query and runs the nearest-neighbor
// stored function over transactions.
func (t *LedgerTools) SearchSimilarTransactions(ctx context.Context, _ *mcp.CallToolRequest, input domain.SearchSimilarInput) (*mcp.CallToolResult, any, error) {
	ctx, log := t.begin(ctx, "search_similar_transactions")
	start := time.Now()
	log.Info().Str("query", input.Query).Msg("Searching for similar transactions")

	query := strings.TrimSpace(input.Query)
	if query == "" {
		log.Warn().Msg("Empty query provided for transaction search")
		return invalidParams("query", "query must not be empty"), nil, nil
	}

	vector, err := t.embedder.Embed(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to embed query text")
		return internalError("embed query text", err), nil, nil
	}

	matches, err := t.store.SearchSimilarTransactions(ctx, vector, input.Limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search similar transactions")
		return internalError("search similar transactions", err), nil, nil
	}
	if matches == nil {
		matches = []supabase.Row{}
	}

	log.Info().Int("matches", len(matches)).Dur("duration", time.Since(start)).Msg("Transaction search completed")
	return result("matches", matches)
}
