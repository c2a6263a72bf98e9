// Seeds a Supabase project with realistic sample accounts, categories,
// and transactions so the search tools have data to match against.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"

	"github.com/avoronov/ledger-mcp/internal/config"
	"github.com/avoronov/ledger-mcp/internal/domain"
	"github.com/avoronov/ledger-mcp/internal/embedding"
	"github.com/avoronov/ledger-mcp/internal/logger"
	"github.com/avoronov/ledger-mcp/internal/supabase"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = log.Level(cfg.LogLevel)

	// Create context with timeout so the CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := supabase.NewGateway(cfg, log)
	embedder := embedding.NewOpenAIService(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, log)

	log.Info().Msg("Seeding accounts")
	accountIDs, err := seedAccounts(ctx, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding accounts failed")
	}

	log.Info().Msg("Seeding categories")
	if err := seedCategories(ctx, store, embedder); err != nil {
		log.Fatal().Err(err).Msg("Seeding categories failed")
	}

	log.Info().Msg("Seeding transactions")
	count, err := seedTransactions(ctx, store, embedder, accountIDs)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding transactions failed")
	}

	log.Info().Int("transactions", count).Msg("Seed data in place")
	fmt.Println("Seeding completed successfully.")
}

func seedAccounts(ctx context.Context, store supabase.Store) (map[string]string, error) {
	accounts := []domain.UpsertAccountInput{
		{Name: "Main Checking Account", Type: domain.AccountTypeOffchain, Currency: "USD", Institution: "Chase Bank"},
		{Name: "Savings Account", Type: domain.AccountTypeOffchain, Currency: "USD", Institution: "Chase Bank"},
		{Name: "EUR Bank Account", Type: domain.AccountTypeOffchain, Currency: "EUR", Institution: "Deutsche Bank"},
		{Name: "Ethereum Wallet", Type: domain.AccountTypeOnchain, Currency: "ETH", Network: "ethereum"},
		{Name: "Bitcoin Wallet", Type: domain.AccountTypeOnchain, Currency: "BTC", Network: "bitcoin"},
		{Name: "Solana Wallet", Type: domain.AccountTypeOnchain, Currency: "SOL", Network: "solana"},
	}

	log := logger.FromContext(ctx)
	ids := make(map[string]string, len(accounts))
	for i := range accounts {
		row, err := store.UpsertAccount(ctx, &accounts[i])
		if err != nil {
			return nil, fmt.Errorf("upserting account %s: %w", accounts[i].Name, err)
		}
		id, _ := row["id"].(string)
		ids[accounts[i].Name] = id
		log.Info().Str("name", accounts[i].Name).Str("id", id).Msg("Account ready")
	}
	return ids, nil
}

func seedCategories(ctx context.Context, store supabase.Store, embedder embedding.Embedder) error {
	categories := []domain.UpsertCategoryInput{
		{Name: "Groceries", Kind: domain.CategoryKindExpense, Description: "Food and grocery shopping"},
		{Name: "Transportation", Kind: domain.CategoryKindExpense, Description: "Taxi, public transport, gas"},
		{Name: "Restaurants", Kind: domain.CategoryKindExpense, Description: "Dining out, cafes, bars"},
		{Name: "Utilities", Kind: domain.CategoryKindExpense, Description: "Electricity, water, internet, phone bills"},
		{Name: "Rent", Kind: domain.CategoryKindExpense, Description: "Housing rent or mortgage payments"},
		{Name: "Salary", Kind: domain.CategoryKindIncome, Description: "Monthly salary from employer"},
		{Name: "Freelance", Kind: domain.CategoryKindIncome, Description: "Freelance work and consulting income"},
		{Name: "Account Transfer", Kind: domain.CategoryKindTransfer, Description: "Transfers between accounts"},
	}

	log := logger.FromContext(ctx)
	for i := range categories {
		// Same embedding text rule as the upsert tool.
		text := categories[i].Description
		if text == "" {
			text = categories[i].Name
		}
		vector, err := embedder.Embed(ctx, text)
		if err != nil {
			return fmt.Errorf("embedding category %s: %w", categories[i].Name, err)
		}

		row, err := store.UpsertCategory(ctx, &categories[i], vector)
		if err != nil {
			return fmt.Errorf("upserting category %s: %w", categories[i].Name, err)
		}
		log.Info().Str("name", categories[i].Name).Interface("id", row["id"]).Msg("Category ready")
	}
	return nil
}

func seedTransactions(ctx context.Context, store supabase.Store, embedder embedding.Embedder, accountIDs map[string]string) (int, error) {
	now := time.Now()
	daysAgo := func(n int) string {
		return now.AddDate(0, 0, -n).Format(time.RFC3339)
	}

	type seedTx struct {
		account string
		input   domain.CreateTransactionInput
	}
	transactions := []seedTx{
		{"Main Checking Account", domain.CreateTransactionInput{
			Amount: 5000.00, Currency: "USD", Direction: domain.DirectionIncome,
			OccurredAt: daysAgo(5), Description: "Monthly salary payment from Tech Corp",
			RawSource: "bank_statement_2024_01",
		}},
		{"Main Checking Account", domain.CreateTransactionInput{
			Amount: 1200.00, Currency: "USD", Direction: domain.DirectionIncome,
			OccurredAt: daysAgo(15), Description: "Freelance project payment - Web Development",
			RawSource: "invoice_2024_001",
		}},
		{"Ethereum Wallet", domain.CreateTransactionInput{
			Amount: 0.5, Currency: "ETH", Direction: domain.DirectionIncome,
			OccurredAt: daysAgo(10), Description: "Ethereum mining reward",
			RawSource: "blockchain_tx_0x123abc",
		}},
		{"Main Checking Account", domain.CreateTransactionInput{
			Amount: 125.50, Currency: "USD", Direction: domain.DirectionExpense,
			OccurredAt: daysAgo(1), Description: "Whole Foods Market - Grocery shopping",
			RawSource: "card_payment_visa_789",
		}},
		{"Main Checking Account", domain.CreateTransactionInput{
			Amount: 45.00, Currency: "USD", Direction: domain.DirectionExpense,
			OccurredAt: daysAgo(2), Description: "Uber ride to airport",
			RawSource: "uber_receipt_2024_01_15",
		}},
		{"EUR Bank Account", domain.CreateTransactionInput{
			Amount: 62.40, Currency: "EUR", Direction: domain.DirectionExpense,
			OccurredAt: daysAgo(3), Description: "Dinner at Italian restaurant",
		}},
		{"Main Checking Account", domain.CreateTransactionInput{
			Amount: 85.30, Currency: "USD", Direction: domain.DirectionExpense,
			OccurredAt: daysAgo(4), Description: "Electricity bill payment",
		}},
		{"Savings Account", domain.CreateTransactionInput{
			Amount: 500.00, Currency: "USD", Direction: domain.DirectionTransfer,
			OccurredAt: daysAgo(6), Description: "Transfer from checking to savings",
		}},
	}

	log := logger.FromContext(ctx)
	for i := range transactions {
		id, ok := accountIDs[transactions[i].account]
		if !ok || id == "" {
			return i, fmt.Errorf("no account id for %s", transactions[i].account)
		}
		input := transactions[i].input
		input.AccountID = id

		vector, err := embedder.MaybeEmbed(ctx, input.Description)
		if err != nil {
			return i, fmt.Errorf("embedding transaction %q: %w", input.Description, err)
		}

		row, err := store.InsertTransaction(ctx, &input, vector)
		if err != nil {
			return i, fmt.Errorf("inserting transaction %q: %w", input.Description, err)
		}
		log.Info().Interface("id", row["id"]).Str("description", input.Description).Msg("Transaction ready")
	}
	return len(transactions), nil
}
