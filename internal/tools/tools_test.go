package tools

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/avoronov/ledger-mcp/internal/domain"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

// fakeEmbedder records every embedding request and serves a canned
// vector. MaybeEmbed mirrors the provider contract: blank text is
// skipped without a request.
type fakeEmbedder struct {
	vector []float32
	err    error
	calls  []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls = append(f.calls, text)
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) MaybeEmbed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return f.Embed(ctx, text)
}

type searchCall struct {
	vector []float32
	limit  *int
}

// fakeStore records every write and search and serves configurable rows.
type fakeStore struct {
	insertedTransactions []domain.CreateTransactionInput
	transactionVectors   [][]float32
	upsertedCategories   []domain.UpsertCategoryInput
	categoryVectors      [][]float32
	upsertedAccounts     []domain.UpsertAccountInput
	listCalls            []domain.ListAccountsInput
	transactionSearches  []searchCall
	categorySearches     []searchCall

	row  supabase.Row
	rows []supabase.Row
	err  error
}

func (f *fakeStore) InsertTransaction(_ context.Context, input *domain.CreateTransactionInput, embedding []float32) (supabase.Row, error) {
	f.insertedTransactions = append(f.insertedTransactions, *input)
	f.transactionVectors = append(f.transactionVectors, embedding)
	if f.err != nil {
		return nil, f.err
	}
	return f.row, nil
}

func (f *fakeStore) UpsertCategory(_ context.Context, input *domain.UpsertCategoryInput, embedding []float32) (supabase.Row, error) {
	f.upsertedCategories = append(f.upsertedCategories, *input)
	f.categoryVectors = append(f.categoryVectors, embedding)
	if f.err != nil {
		return nil, f.err
	}
	return f.row, nil
}

func (f *fakeStore) UpsertAccount(_ context.Context, input *domain.UpsertAccountInput) (supabase.Row, error) {
	f.upsertedAccounts = append(f.upsertedAccounts, *input)
	if f.err != nil {
		return nil, f.err
	}
	return f.row, nil
}

func (f *fakeStore) ListAccounts(_ context.Context, params *domain.ListAccountsInput) ([]supabase.Row, error) {
	f.listCalls = append(f.listCalls, *params)
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeStore) SearchSimilarTransactions(_ context.Context, embedding []float32, limit *int) ([]supabase.Row, error) {
	f.transactionSearches = append(f.transactionSearches, searchCall{vector: embedding, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func (f *fakeStore) SearchSimilarCategories(_ context.Context, embedding []float32, limit *int) ([]supabase.Row, error) {
	f.categorySearches = append(f.categorySearches, searchCall{vector: embedding, limit: limit})
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func newTestTools(store *fakeStore, embedder *fakeEmbedder) *LedgerTools {
	return New(store, embedder, zerolog.Nop())
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("expected exactly one content item, got %#v", res)
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return text.Text
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	cases := []struct {
		name string
		call func(*LedgerTools, context.Context, domain.SearchSimilarInput) (*mcp.CallToolResult, any, error)
	}{
		{"transactions", func(lt *LedgerTools, ctx context.Context, in domain.SearchSimilarInput) (*mcp.CallToolResult, any, error) {
			return lt.SearchSimilarTransactions(ctx, nil, in)
		}},
		{"categories", func(lt *LedgerTools, ctx context.Context, in domain.SearchSimilarInput) (*mcp.CallToolResult, any, error) {
			return lt.SearchSimilarCategories(ctx, nil, in)
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			embedder := &fakeEmbedder{vector: []float32{0.1}}

			res, payload, err := tc.call(newTestTools(store, embedder), context.Background(), domain.SearchSimilarInput{Query: "   "})
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if payload != nil {
				t.Errorf("expected no structured payload, got %v", payload)
			}
			if !res.IsError {
				t.Fatal("expected error result for blank query")
			}
			if got, want := resultText(t, res), "query must not be empty (field: query)"; got != want {
				t.Errorf("message = %q, want %q", got, want)
			}
			if len(embedder.calls) != 0 {
				t.Errorf("blank query must not be embedded, got calls %v", embedder.calls)
			}
			if len(store.transactionSearches)+len(store.categorySearches) != 0 {
				t.Error("blank query must not reach the store")
			}
		})
	}
}

func TestSearchSimilarTransactionsTrimsQueryAndForwardsLimit(t *testing.T) {
	store := &fakeStore{rows: []supabase.Row{
		{"id": "tx-1", "description": "Coffee at Blue Bottle"},
		{"id": "tx-2", "description": "Espresso bar"},
	}}
	embedder := &fakeEmbedder{vector: []float32{0.25, 0.5}}
	limit := 7

	res, payload, err := newTestTools(store, embedder).SearchSimilarTransactions(context.Background(), nil,
		domain.SearchSimilarInput{Query: "  coffee shops  ", Limit: &limit})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if want := []string{"coffee shops"}; !reflect.DeepEqual(embedder.calls, want) {
		t.Errorf("embedded texts = %v, want %v", embedder.calls, want)
	}
	if len(store.transactionSearches) != 1 {
		t.Fatalf("expected 1 search, got %d", len(store.transactionSearches))
	}
	call := store.transactionSearches[0]
	if call.limit == nil || *call.limit != 7 {
		t.Errorf("limit = %v, want 7", call.limit)
	}
	if !reflect.DeepEqual(call.vector, embedder.vector) {
		t.Errorf("search vector = %v, want %v", call.vector, embedder.vector)
	}
	matches, ok := payload.(map[string]any)["matches"]
	if !ok {
		t.Fatalf("payload missing matches key: %v", payload)
	}
	if !reflect.DeepEqual(matches, store.rows) {
		t.Errorf("matches = %v, want %v", matches, store.rows)
	}
	if text := resultText(t, res); !strings.Contains(text, "tx-1") {
		t.Errorf("text content should carry the rows, got %q", text)
	}
}

func TestSearchSimilarCategoriesEmptyResultIsList(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{vector: []float32{0.1}}

	res, payload, err := newTestTools(store, embedder).SearchSimilarCategories(context.Background(), nil,
		domain.SearchSimilarInput{Query: "utilities"})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	matches, ok := payload.(map[string]any)["matches"].([]supabase.Row)
	if !ok {
		t.Fatalf("payload missing matches list: %v", payload)
	}
	if matches == nil || len(matches) != 0 {
		t.Errorf("matches = %v, want empty non-nil list", matches)
	}
	if text := resultText(t, res); !strings.Contains(text, `"matches": []`) {
		t.Errorf("text content should show an empty list, got %q", text)
	}
}

func TestSearchSimilarTransactionsFailures(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		store := &fakeStore{}
		embedder := &fakeEmbedder{err: errors.New("provider unavailable")}

		res, _, err := newTestTools(store, embedder).SearchSimilarTransactions(context.Background(), nil,
			domain.SearchSimilarInput{Query: "coffee"})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected error result")
		}
		if got, want := resultText(t, res), "Failed to embed query text: provider unavailable"; got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
		if len(store.transactionSearches) != 0 {
			t.Error("failed embedding must not reach the store")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeStore{err: errors.New("RPC search_similar_transactions failed (500 Internal Server Error): boom")}
		embedder := &fakeEmbedder{vector: []float32{0.1}}

		res, _, err := newTestTools(store, embedder).SearchSimilarTransactions(context.Background(), nil,
			domain.SearchSimilarInput{Query: "coffee"})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if !res.IsError {
			t.Fatal("expected error result")
		}
		want := "Failed to search similar transactions: RPC search_similar_transactions failed (500 Internal Server Error): boom"
		if got := resultText(t, res); got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
	})
}

func TestCreateTransactionDescriptionEmbedding(t *testing.T) {
	cases := []struct {
		name        string
		description string
		wantCalls   []string
		wantVector  bool
	}{
		{"embeds present description", "Coffee at Blue Bottle", []string{"Coffee at Blue Bottle"}, true},
		{"skips absent description", "", nil, false},
		{"skips blank description", "   ", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{row: supabase.Row{"id": "tx-9"}}
			embedder := &fakeEmbedder{vector: []float32{0.3, 0.6}}

			input := domain.CreateTransactionInput{
				AccountID:   "acc-1",
				Amount:      -4.5,
				Currency:    "USD",
				Direction:   domain.DirectionExpense,
				OccurredAt:  "2025-04-01T09:30:00Z",
				Description: tc.description,
			}
			res, payload, err := newTestTools(store, embedder).CreateTransaction(context.Background(), nil, input)
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if res.IsError {
				t.Fatalf("unexpected error result: %s", resultText(t, res))
			}
			if !reflect.DeepEqual(embedder.calls, tc.wantCalls) {
				t.Errorf("embedded texts = %v, want %v", embedder.calls, tc.wantCalls)
			}
			if len(store.insertedTransactions) != 1 {
				t.Fatalf("expected 1 insert, got %d", len(store.insertedTransactions))
			}
			vector := store.transactionVectors[0]
			if tc.wantVector && !reflect.DeepEqual(vector, embedder.vector) {
				t.Errorf("stored vector = %v, want %v", vector, embedder.vector)
			}
			if !tc.wantVector && vector != nil {
				t.Errorf("stored vector = %v, want none", vector)
			}
			record, ok := payload.(map[string]any)["transaction"]
			if !ok {
				t.Fatalf("payload missing transaction key: %v", payload)
			}
			if !reflect.DeepEqual(record, store.row) {
				t.Errorf("transaction = %v, want %v", record, store.row)
			}
		})
	}
}

func TestCreateTransactionRejectsUnknownDirection(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{vector: []float32{0.1}}

	res, _, err := newTestTools(store, embedder).CreateTransaction(context.Background(), nil, domain.CreateTransactionInput{
		AccountID:  "acc-1",
		Amount:     10,
		Currency:   "USD",
		Direction:  domain.Direction("sideways"),
		OccurredAt: "2025-04-01T09:30:00Z",
	})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got, want := resultText(t, res), "direction must be income, expense or transfer (field: direction)"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if len(embedder.calls) != 0 || len(store.insertedTransactions) != 0 {
		t.Error("invalid direction must fail before embedding or inserting")
	}
}

func TestCreateTransactionFailures(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		store := &fakeStore{}
		embedder := &fakeEmbedder{err: errors.New("embedding request failed: timeout")}

		res, _, err := newTestTools(store, embedder).CreateTransaction(context.Background(), nil, domain.CreateTransactionInput{
			AccountID:   "acc-1",
			Amount:      10,
			Currency:    "USD",
			Direction:   domain.DirectionIncome,
			OccurredAt:  "2025-04-01T09:30:00Z",
			Description: "Salary",
		})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if got, want := resultText(t, res), "Failed to generate transaction embedding: embedding request failed: timeout"; got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
		if len(store.insertedTransactions) != 0 {
			t.Error("failed embedding must not insert a row")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeStore{err: errors.New("failed to insert into transactions: 409 Conflict")}
		embedder := &fakeEmbedder{vector: []float32{0.1}}

		res, _, err := newTestTools(store, embedder).CreateTransaction(context.Background(), nil, domain.CreateTransactionInput{
			AccountID:  "acc-1",
			Amount:     10,
			Currency:   "USD",
			Direction:  domain.DirectionIncome,
			OccurredAt: "2025-04-01T09:30:00Z",
		})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		want := "Failed to insert transaction: failed to insert into transactions: 409 Conflict"
		if got := resultText(t, res); got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
	})
}

func TestUpsertCategoryEmbedsDescriptionOverName(t *testing.T) {
	cases := []struct {
		name      string
		input     domain.UpsertCategoryInput
		wantCalls []string
	}{
		{
			name:      "description present",
			input:     domain.UpsertCategoryInput{Name: "Food", Description: "Restaurants, groceries and snacks"},
			wantCalls: []string{"Restaurants, groceries and snacks"},
		},
		{
			name:      "description absent",
			input:     domain.UpsertCategoryInput{Name: "Food"},
			wantCalls: []string{"Food"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{row: supabase.Row{"id": "cat-1", "name": "Food"}}
			embedder := &fakeEmbedder{vector: []float32{0.4}}

			res, payload, err := newTestTools(store, embedder).UpsertCategory(context.Background(), nil, tc.input)
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if res.IsError {
				t.Fatalf("unexpected error result: %s", resultText(t, res))
			}
			if !reflect.DeepEqual(embedder.calls, tc.wantCalls) {
				t.Errorf("embedded texts = %v, want %v", embedder.calls, tc.wantCalls)
			}
			if len(store.upsertedCategories) != 1 {
				t.Fatalf("expected 1 upsert, got %d", len(store.upsertedCategories))
			}
			if got := store.upsertedCategories[0]; !reflect.DeepEqual(got, tc.input) {
				t.Errorf("upserted input = %+v, want %+v", got, tc.input)
			}
			if !reflect.DeepEqual(store.categoryVectors[0], embedder.vector) {
				t.Errorf("stored vector = %v, want %v", store.categoryVectors[0], embedder.vector)
			}
			if _, ok := payload.(map[string]any)["category"]; !ok {
				t.Fatalf("payload missing category key: %v", payload)
			}
		})
	}
}

func TestUpsertCategoryRejectsUnknownKind(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{vector: []float32{0.1}}

	res, _, err := newTestTools(store, embedder).UpsertCategory(context.Background(), nil,
		domain.UpsertCategoryInput{Name: "Food", Kind: domain.CategoryKind("weird")})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got, want := resultText(t, res), "kind must be income, expense or transfer (field: kind)"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if len(embedder.calls) != 0 || len(store.upsertedCategories) != 0 {
		t.Error("invalid kind must fail before embedding or upserting")
	}
}

func TestUpsertCategoryFailures(t *testing.T) {
	t.Run("embedding failure", func(t *testing.T) {
		store := &fakeStore{}
		embedder := &fakeEmbedder{err: errors.New("quota exceeded")}

		res, _, err := newTestTools(store, embedder).UpsertCategory(context.Background(), nil,
			domain.UpsertCategoryInput{Name: "Food"})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		if got, want := resultText(t, res), "Failed to generate category embedding: quota exceeded"; got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
		if len(store.upsertedCategories) != 0 {
			t.Error("failed embedding must not upsert a row")
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeStore{err: errors.New("failed to update category: 500 Internal Server Error")}
		embedder := &fakeEmbedder{vector: []float32{0.1}}

		res, _, err := newTestTools(store, embedder).UpsertCategory(context.Background(), nil,
			domain.UpsertCategoryInput{Name: "Food"})
		if err != nil {
			t.Fatalf("handler returned error: %v", err)
		}
		want := "Failed to upsert category: failed to update category: 500 Internal Server Error"
		if got := resultText(t, res); got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
	})
}

func TestUpsertAccountEmbedsNameOnce(t *testing.T) {
	store := &fakeStore{row: supabase.Row{"id": "acc-1", "name": "Checking"}}
	embedder := &fakeEmbedder{vector: []float32{0.9}}

	input := domain.UpsertAccountInput{
		Name:        "Checking",
		Type:        domain.AccountTypeOffchain,
		Currency:    "USD",
		Institution: "Test Bank",
	}
	res, payload, err := newTestTools(store, embedder).UpsertAccount(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if want := []string{"Checking"}; !reflect.DeepEqual(embedder.calls, want) {
		t.Errorf("embedded texts = %v, want %v", embedder.calls, want)
	}
	if len(store.upsertedAccounts) != 1 {
		t.Fatalf("expected 1 upsert, got %d", len(store.upsertedAccounts))
	}
	if got := store.upsertedAccounts[0]; !reflect.DeepEqual(got, input) {
		t.Errorf("upserted input = %+v, want %+v", got, input)
	}
	if _, ok := payload.(map[string]any)["account"]; !ok {
		t.Fatalf("payload missing account key: %v", payload)
	}
}

func TestUpsertAccountEmbedFailureStopsUpsert(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{err: errors.New("provider unavailable")}

	res, _, err := newTestTools(store, embedder).UpsertAccount(context.Background(), nil, domain.UpsertAccountInput{
		Name:     "Checking",
		Type:     domain.AccountTypeOffchain,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if got, want := resultText(t, res), "Failed to generate account embedding: provider unavailable"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if len(store.upsertedAccounts) != 0 {
		t.Error("failed embedding must not upsert a row")
	}
}

func TestUpsertAccountRejectsUnknownType(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{vector: []float32{0.1}}

	res, _, err := newTestTools(store, embedder).UpsertAccount(context.Background(), nil, domain.UpsertAccountInput{
		Name:     "Checking",
		Type:     domain.AccountType("paper"),
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got, want := resultText(t, res), "type must be onchain or offchain (field: type)"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if len(embedder.calls) != 0 {
		t.Error("invalid type must fail before embedding")
	}
}

func TestListAccountsForwardsFilters(t *testing.T) {
	store := &fakeStore{rows: []supabase.Row{
		{"id": "acc-1", "name": "Savings"},
	}}
	embedder := &fakeEmbedder{}

	input := domain.ListAccountsInput{Type: domain.AccountTypeOnchain, Search: "sav"}
	res, payload, err := newTestTools(store, embedder).ListAccounts(context.Background(), nil, input)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	if len(store.listCalls) != 1 {
		t.Fatalf("expected 1 list call, got %d", len(store.listCalls))
	}
	if got := store.listCalls[0]; !reflect.DeepEqual(got, input) {
		t.Errorf("list params = %+v, want %+v", got, input)
	}
	accounts, ok := payload.(map[string]any)["accounts"]
	if !ok {
		t.Fatalf("payload missing accounts key: %v", payload)
	}
	if !reflect.DeepEqual(accounts, store.rows) {
		t.Errorf("accounts = %v, want %v", accounts, store.rows)
	}
	if len(embedder.calls) != 0 {
		t.Error("listing accounts must not call the embedder")
	}
}

func TestListAccountsEmptyResultIsList(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}

	res, payload, err := newTestTools(store, embedder).ListAccounts(context.Background(), nil, domain.ListAccountsInput{})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected error result: %s", resultText(t, res))
	}
	accounts, ok := payload.(map[string]any)["accounts"].([]supabase.Row)
	if !ok {
		t.Fatalf("payload missing accounts list: %v", payload)
	}
	if accounts == nil || len(accounts) != 0 {
		t.Errorf("accounts = %v, want empty non-nil list", accounts)
	}
}

func TestListAccountsRejectsUnknownType(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}

	res, _, err := newTestTools(store, embedder).ListAccounts(context.Background(), nil,
		domain.ListAccountsInput{Type: domain.AccountType("paper")})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected error result")
	}
	if got, want := resultText(t, res), "type must be onchain or offchain (field: type)"; got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
	if len(store.listCalls) != 0 {
		t.Error("invalid type must fail before querying the store")
	}
}

func TestListAccountsStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("failed to list accounts: 503 Service Unavailable")}
	embedder := &fakeEmbedder{}

	res, _, err := newTestTools(store, embedder).ListAccounts(context.Background(), nil, domain.ListAccountsInput{})
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	want := "Failed to list accounts: failed to list accounts: 503 Service Unavailable"
	if got := resultText(t, res); got != want {
		t.Errorf("message = %q, want %q", got, want)
	}
}
