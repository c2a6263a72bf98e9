package tools

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avoronov/ledger-mcp/internal/domain"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

// ListAccounts returns accounts ordered by name, optionally narrowed by
// account type and a case-insensitive name substring.
func (t *LedgerTools) ListAccounts(ctx context.Context, _ *mcp.CallToolRequest, input domain.ListAccountsInput) (*mcp.CallToolResult, any, error) {
	ctx, log := t.begin(ctx, "list_accounts")
	start := time.Now()
	log.Info().Str("type", string(input.Type)).Str("search", input.Search).Msg("Listing accounts")

	if input.Type != "" && !input.Type.Valid() {
		return invalidParams("type", "type must be onchain or offchain"), nil, nil
	}

	accounts, err := t.store.ListAccounts(ctx, &input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list accounts")
		return internalError("list accounts", err), nil, nil
	}
	if accounts == nil {
		accounts = []supabase.Row{}
	}

	log.Info().Int("accounts", len(accounts)).Dur("duration", time.Since(start)).Msg("Accounts listed successfully")
	return result("accounts", accounts)
}

// UpsertAccount creates or updates an account keyed by name and type.
func (t *LedgerTools) UpsertAccount(ctx context.Context, _ *mcp.CallToolRequest, input domain.UpsertAccountInput) (*mcp.CallToolResult, any, error) {
	ctx, log := t.begin(ctx, "upsert_account")
	start := time.Now()
	log.Info().Str("name", input.Name).Str("type", string(input.Type)).Msg("Upserting account")

	if !input.Type.Valid() {
		return invalidParams("type", "type must be onchain or offchain"), nil, nil
	}

	// The accounts table carries no embedding column, so the vector is
	// computed and dropped. A failing provider still fails the call.
	// TODO: persist account-name embeddings once the accounts table gains
	// an embedding column.
	if _, err := t.embedder.Embed(ctx, input.Name); err != nil {
		log.Error().Err(err).Msg("Failed to generate account embedding")
		return internalError("generate account embedding", err), nil, nil
	}

	record, err := t.store.UpsertAccount(ctx, &input)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upsert account")
		return internalError("upsert account", err), nil, nil
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Account upserted successfully")
	return result("account", record)
}
