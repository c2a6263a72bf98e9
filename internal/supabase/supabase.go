// Package supabase translates domain operations into authenticated REST
// and RPC calls against the Supabase-hosted row store. The backend has no
// native upsert primitive, so create-or-update is a read-then-write
// sequence keyed by each entity's natural key.
package supabase

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/avoronov/ledger-mcp/internal/config"
	"github.com/avoronov/ledger-mcp/internal/domain"
	"github.com/avoronov/ledger-mcp/internal/logger"
)

// Row is the gateway's only view into persisted state: an opaque mapping
// of column name to value. Non-id columns are never interpreted, except
// for the client-side name filter in ListAccounts.
type Row map[string]any

var (
	// ErrMissingID is returned when a fetched row has no usable id column.
	ErrMissingID = errors.New("row missing id column")

	// ErrNoInsertID is returned when an insert response does not carry the
	// generated row identifier.
	ErrNoInsertID = errors.New("insert response missing row identifier")
)

// Store is the row-store surface the tool layer depends on.
type Store interface {
	InsertTransaction(ctx context.Context, input *domain.CreateTransactionInput, embedding []float32) (Row, error)
	UpsertCategory(ctx context.Context, input *domain.UpsertCategoryInput, embedding []float32) (Row, error)
	UpsertAccount(ctx context.Context, input *domain.UpsertAccountInput) (Row, error)
	ListAccounts(ctx context.Context, params *domain.ListAccountsInput) ([]Row, error)
	SearchSimilarTransactions(ctx context.Context, embedding []float32, limit *int) ([]Row, error)
	SearchSimilarCategories(ctx context.Context, embedding []float32, limit *int) ([]Row, error)
}

// Gateway implements Store over the PostgREST-style HTTP surface. It is
// immutable after construction and safe for concurrent use; the embedded
// http.Client is shared across invocations.
type Gateway struct {
	http       *http.Client
	restBase   string
	rpcBase    string
	serviceKey string
	schema     string
}

// NewGateway builds the production gateway from configuration. The HTTP
// client honors the configured TLS floor; disabling certificate
// verification is allowed but flagged loudly because it belongs only in
// test environments.
func NewGateway(cfg *config.AppConfig, log zerolog.Logger) *Gateway {
	log.Info().Str("supabase_url", cfg.SupabaseURL).Msg("Initializing Supabase gateway")

	tlsConfig := &tls.Config{MinVersion: cfg.TLSMinVersion}
	if cfg.AcceptInvalidCerts {
		log.Warn().Msg("WARNING: TLS certificate verification disabled - FOR TESTING ONLY")
		tlsConfig.InsecureSkipVerify = true
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	base := strings.TrimRight(cfg.SupabaseURL, "/")
	restBase := base + "/rest/v1"
	if cfg.NoRESTPrefix {
		restBase = base
	}

	return &Gateway{
		http:       &http.Client{Transport: transport},
		restBase:   restBase,
		rpcBase:    restBase + "/rpc",
		serviceKey: cfg.SupabaseServiceKey,
		schema:     "public",
	}
}

// InsertTransaction appends one transaction row. Transactions are never
// updated, so there is no natural-key lookup here.
func (g *Gateway) InsertTransaction(ctx context.Context, input *domain.CreateTransactionInput, embedding []float32) (Row, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Info().Str("account_id", input.AccountID).Msg("Inserting transaction into database")

	payload := Row{
		"account_id":  input.AccountID,
		"amount":      input.Amount,
		"currency":    input.Currency,
		"direction":   input.Direction,
		"occurred_at": input.OccurredAt,
		"description": nullableString(input.Description),
		"raw_source":  nullableString(input.RawSource),
		"embedding":   nullableVector(embedding),
	}

	record, err := g.insertAndFetch(ctx, "transactions", payload)
	if err != nil {
		return nil, err
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Transaction inserted successfully")
	return record, nil
}

// UpsertCategory creates or updates a category keyed by name. The stored
// payload always carries a kind (defaulting to expense) and a description
// (defaulting to the name) so every category stays searchable.
func (g *Gateway) UpsertCategory(ctx context.Context, input *domain.UpsertCategoryInput, embedding []float32) (Row, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Info().Str("name", input.Name).Msg("Upserting category in database")

	kind := input.Kind
	if kind == "" {
		kind = domain.CategoryKindExpense
	}
	description := input.Description
	if description == "" {
		description = input.Name
	}
	payload := Row{
		"name":        input.Name,
		"kind":        kind,
		"description": description,
		"embedding":   nullableVector(embedding),
	}

	existing, err := g.fetchFirst(ctx, "categories", map[string]string{"name": input.Name})
	if err != nil {
		return nil, err
	}

	var record Row
	if existing != nil {
		log.Debug().Msg("Updating existing category")
		id, err := extractID(existing)
		if err != nil {
			return nil, err
		}
		if err := g.update(ctx, "categories", id, payload); err != nil {
			return nil, fmt.Errorf("failed to update category: %w", err)
		}
		record, err = g.fetchByID(ctx, "categories", id)
		if err != nil {
			return nil, err
		}
	} else {
		log.Debug().Msg("Creating new category")
		record, err = g.insertAndFetch(ctx, "categories", payload)
		if err != nil {
			return nil, err
		}
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Category upserted successfully")
	return record, nil
}

// UpsertAccount creates or updates an account keyed by (name, type).
func (g *Gateway) UpsertAccount(ctx context.Context, input *domain.UpsertAccountInput) (Row, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Info().Str("name", input.Name).Str("type", string(input.Type)).Msg("Upserting account in database")

	payload := Row{
		"name":        input.Name,
		"type":        input.Type,
		"currency":    input.Currency,
		"network":     nullableString(input.Network),
		"institution": nullableString(input.Institution),
	}

	existing, err := g.fetchAccount(ctx, input.Name, input.Type)
	if err != nil {
		return nil, err
	}

	var record Row
	if existing != nil {
		log.Debug().Msg("Updating existing account")
		id, err := extractID(existing)
		if err != nil {
			return nil, err
		}
		if err := g.update(ctx, "accounts", id, payload); err != nil {
			return nil, fmt.Errorf("failed to update account: %w", err)
		}
		record, err = g.fetchByID(ctx, "accounts", id)
		if err != nil {
			return nil, err
		}
	} else {
		log.Debug().Msg("Creating new account")
		record, err = g.insertAndFetch(ctx, "accounts", payload)
		if err != nil {
			return nil, err
		}
	}

	log.Info().Dur("duration", time.Since(start)).Msg("Account upserted successfully")
	return record, nil
}

// ListAccounts retrieves accounts ordered by name. The type filter is an
// equality predicate at the store; the search filter is a case-insensitive
// substring match applied after retrieval, since the store surface has no
// contains predicate.
func (g *Gateway) ListAccounts(ctx context.Context, params *domain.ListAccountsInput) ([]Row, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Info().Msg("Listing accounts from database")

	query := url.Values{}
	query.Set("select", "*")
	query.Set("order", "name.asc")
	if params.Type != "" {
		query.Set("type", "eq."+string(params.Type))
	}

	rows, err := g.getRows(ctx, "accounts", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	needle := strings.ToLower(strings.TrimSpace(params.Search))
	if needle != "" {
		log.Debug().Str("search", needle).Msg("Filtering accounts by search term")
		filtered := make([]Row, 0, len(rows))
		for _, row := range rows {
			name, ok := row["name"].(string)
			if !ok {
				continue
			}
			if strings.Contains(strings.ToLower(name), needle) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	log.Info().Int("count", len(rows)).Dur("duration", time.Since(start)).Msg("Retrieved accounts")
	return rows, nil
}

// SearchSimilarTransactions runs the vector-similarity stored function
// over transactions.
func (g *Gateway) SearchSimilarTransactions(ctx context.Context, embedding []float32, limit *int) ([]Row, error) {
	return g.callRPC(ctx, "search_similar_transactions", Row{
		"query_embedding": embedding,
		"match_count":     resolveLimit(limit),
	})
}

// SearchSimilarCategories runs the vector-similarity stored function over
// categories.
func (g *Gateway) SearchSimilarCategories(ctx context.Context, embedding []float32, limit *int) ([]Row, error) {
	return g.callRPC(ctx, "search_similar_categories", Row{
		"query_embedding": embedding,
		"match_count":     resolveLimit(limit),
	})
}

// fetchFirst returns the first row matching the equality filters, or nil
// when nothing matches.
func (g *Gateway) fetchFirst(ctx context.Context, table string, filters map[string]string) (Row, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("limit", "1")
	for column, value := range filters {
		query.Set(column, "eq."+value)
	}

	rows, err := g.getRows(ctx, table, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (g *Gateway) fetchAccount(ctx context.Context, name string, accountType domain.AccountType) (Row, error) {
	return g.fetchFirst(ctx, "accounts", map[string]string{
		"name": name,
		"type": string(accountType),
	})
}

// fetchByID re-reads a row after a write; a miss here is a backend
// contract violation, not a normal empty result.
func (g *Gateway) fetchByID(ctx context.Context, table, id string) (Row, error) {
	row, err := g.fetchFirst(ctx, table, map[string]string{"id": id})
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("%s record %s was not found", table, id)
	}
	return row, nil
}

// insertAndFetch compensates for the backend returning only a generated
// identifier on insert: it inserts, then re-fetches the full row by id.
func (g *Gateway) insertAndFetch(ctx context.Context, table string, payload Row) (Row, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Debug().Str("table", table).Msg("Inserting record")

	id, err := g.insert(ctx, table, payload)
	if err != nil {
		return nil, err
	}

	record, err := g.fetchByID(ctx, table, normalizeID(id))
	if err != nil {
		return nil, err
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("Record inserted and fetched")
	return record, nil
}

// insert performs the raw insert and returns the generated identifier
// parsed from the Location header.
func (g *Gateway) insert(ctx context.Context, table string, payload Row) (string, error) {
	req, err := g.newRequest(ctx, http.MethodPost, g.restBase+"/"+table, payload)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	req.Header.Set("Prefer", "return=headers-only")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to insert into %s (%s): %s", table, resp.Status, strings.TrimSpace(string(body)))
	}

	id := idFromLocation(resp.Header.Get("Location"))
	if id == "" {
		return "", fmt.Errorf("failed to insert into %s: %w", table, ErrNoInsertID)
	}
	return id, nil
}

// update patches the row with the given id. The refreshed row is read
// back separately by the callers.
func (g *Gateway) update(ctx context.Context, table, id string, payload Row) error {
	query := url.Values{}
	query.Set("id", "eq."+id)

	req, err := g.newRequest(ctx, http.MethodPatch, g.restBase+"/"+table+"?"+query.Encode(), payload)
	if err != nil {
		return err
	}
	req.Header.Set("Prefer", "return=minimal")

	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("update %s (%s): %s", table, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// callRPC invokes a named stored function and expects an array of rows
// back.
func (g *Gateway) callRPC(ctx context.Context, function string, payload Row) ([]Row, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	log.Debug().Str("function", function).Msg("Calling RPC function")

	req, err := g.newRequest(ctx, http.MethodPost, g.rpcBase+"/"+function, payload)
	if err != nil {
		return nil, fmt.Errorf("RPC %s request failed: %w", function, err)
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC %s request failed: %w", function, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("RPC %s request failed: %w", function, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().Str("function", function).Str("status", resp.Status).Msg("RPC call failed")
		return nil, fmt.Errorf("RPC %s failed (%s): %s", function, resp.Status, strings.TrimSpace(string(body)))
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse RPC response: %w", err)
	}

	log.Debug().
		Str("function", function).
		Int("results", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("RPC completed")

	return rows, nil
}

func (g *Gateway) getRows(ctx context.Context, table string, query url.Values) ([]Row, error) {
	req, err := g.newRequest(ctx, http.MethodGet, g.restBase+"/"+table+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("request failed (%s): %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var rows []Row
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return rows, nil
}

// newRequest builds a request carrying the full authentication and
// schema-profile header set the backend requires.
func (g *Gateway) newRequest(ctx context.Context, method, rawURL string, payload Row) (*http.Request, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", g.serviceKey)
	req.Header.Set("Authorization", "Bearer "+g.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Profile", g.schema)
	req.Header.Set("Content-Profile", g.schema)
	return req, nil
}

func extractID(row Row) (string, error) {
	id, ok := row["id"].(string)
	if !ok || id == "" {
		return "", ErrMissingID
	}
	return id, nil
}

// normalizeID strips the quotes some backends wrap around returned
// identifiers.
func normalizeID(id string) string {
	return strings.Trim(id, `"`)
}

// idFromLocation parses the generated id out of a Location header shaped
// like /table?id=eq.<value>.
func idFromLocation(location string) string {
	if location == "" {
		return ""
	}
	parsed, err := url.Parse(location)
	if err != nil {
		return ""
	}
	value := parsed.Query().Get("id")
	return strings.TrimPrefix(value, "eq.")
}

// resolveLimit clamps the requested match count to 1..25; nil means the
// default of 5.
func resolveLimit(limit *int) int {
	value := 5
	if limit != nil {
		value = *limit
	}
	if value < 1 {
		return 1
	}
	if value > 25 {
		return 25
	}
	return value
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableVector(vector []float32) any {
	if vector == nil {
		return nil
	}
	return vector
}
