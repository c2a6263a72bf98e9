package domain

// Tool input payloads. These are constructed from validated inbound JSON,
// live for the duration of one invocation, and are never persisted
// themselves; the row store assigns identifiers.

// CreateTransactionInput describes one transaction to append. Transactions
// are insert-only; there is no update path.
type CreateTransactionInput struct {
	AccountID   string    `json:"account_id" jsonschema:"Identifier of the account the transaction belongs to"`
	Amount      float64   `json:"amount" jsonschema:"Signed amount in the account currency"`
	Currency    string    `json:"currency" jsonschema:"ISO currency code, e.g. USD"`
	Direction   Direction `json:"direction" jsonschema:"Money flow: income, expense or transfer"`
	OccurredAt  string    `json:"occurred_at" jsonschema:"Timestamp of the transaction (ISO 8601 string)"`
	Description string    `json:"description,omitempty" jsonschema:"Free-text description, embedded for semantic search when present"`
	RawSource   string    `json:"raw_source,omitempty" jsonschema:"Original source line or payload the transaction was derived from"`
}

// SearchSimilarInput is shared by both similarity searches.
type SearchSimilarInput struct {
	Query string `json:"query" jsonschema:"Free-text query to embed and match against stored rows"`
	Limit *int   `json:"limit,omitempty" jsonschema:"Maximum number of matches, 1-25, default 5"`
}

// UpsertCategoryInput creates or updates a category keyed by name.
type UpsertCategoryInput struct {
	Name        string       `json:"name" jsonschema:"Category name, the natural key"`
	Kind        CategoryKind `json:"kind,omitempty" jsonschema:"Category kind: income, expense or transfer (default expense)"`
	Description string       `json:"description,omitempty" jsonschema:"Optional description, used as the embedding text when present"`
}

// ListAccountsInput filters the account listing.
type ListAccountsInput struct {
	Type   AccountType `json:"type,omitempty" jsonschema:"Filter by account type: onchain or offchain"`
	Search string      `json:"search,omitempty" jsonschema:"Case-insensitive substring match on the account name"`
}

// UpsertAccountInput creates or updates an account keyed by (name, type).
type UpsertAccountInput struct {
	Name        string      `json:"name" jsonschema:"Account name, half of the natural key"`
	Type        AccountType `json:"type" jsonschema:"Account type: onchain or offchain"`
	Currency    string      `json:"currency" jsonschema:"ISO currency code the account is denominated in"`
	Network     string      `json:"network,omitempty" jsonschema:"Chain or network name for onchain accounts"`
	Institution string      `json:"institution,omitempty" jsonschema:"Holding institution for offchain accounts"`
}
