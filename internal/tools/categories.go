package tools

import (
	"context"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/avoronov/ledger-mcp/internal/domain"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

// UpsertCategory creates or updates a category keyed by name. The
// embedding text is the description when one is given, the name
// otherwise, so every category gets a searchable vector.
func (t *LedgerTools) UpsertCategory(ctx context.Context, _ *mcp.CallToolRequest, input domain.UpsertCategoryInput) (*mcp.CallToolResult, any, error) {
	ctx, log := t.begin(ctx, "upsert_category")
	start := time.Now()
	log.Info().Str("name", input.Name).Msg("Upserting category")

	if input.Kind != "" && !input.Kind.Valid() {
		return invalidParams("kind", "kind must be income, expense or transfer"), nil, nil
	}

	embedText := input.Description
	if embedText == "" {
		embedText = input.Name
	}

	vector, err := t.embedder.Embed(ctx, embedText)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate category embedding")
		return internalError("generate category embedding", err), nil, nil
	}

	record, err := t.store.UpsertCategory(ctx, &input, vector)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upsert category")
		return internalError("upsert category", err), nil, nil
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Category upserted successfully")
	return result("category", record)
}

// SearchSimilarCategories embeds the query and runs the nearest-neighbor
// stored function over categories.
func (t *LedgerTools) SearchSimilarCategories(ctx context.Context, _ *mcp.CallToolRequest, input domain.SearchSimilarInput) (*mcp.CallToolResult, any, error) {
	ctx, log := t.begin(ctx, "search_similar_categories")
	start := time.Now()
	log.Info().Str("query", input.Query).Msg("Searching for similar categories")

	query := strings.TrimSpace(input.Query)
	if query == "" {
		log.Warn().Msg("Empty query provided for category search")
		return invalidParams("query", "query must not be empty"), nil, nil
	}

	vector, err := t.embedder.Embed(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("Failed to embed query text")
		return internalError("embed query text", err), nil, nil
	}

	matches, err := t.store.SearchSimilarCategories(ctx, vector, input.Limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to search similar categories")
		return internalError("search similar categories", err), nil, nil
	}
	if matches == nil {
		matches = []supabase.Row{}
	}

	log.Info().Int("matches", len(matches)).Dur("duration", time.Since(start)).Msg("Category search completed")
	return result("matches", matches)
}
