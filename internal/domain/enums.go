package domain

// AccountType classifies where an account is held.
type AccountType string

const (
	AccountTypeOnchain  AccountType = "onchain"
	AccountTypeOffchain AccountType = "offchain"
)

// Valid reports whether the value is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeOnchain, AccountTypeOffchain:
		return true
	}
	return false
}

// Direction is the money flow of a transaction.
type Direction string

const (
	DirectionIncome   Direction = "income"
	DirectionExpense  Direction = "expense"
	DirectionTransfer Direction = "transfer"
)

// Valid reports whether the value is a known direction.
func (d Direction) Valid() bool {
	switch d {
	case DirectionIncome, DirectionExpense, DirectionTransfer:
		return true
	}
	return false
}

// CategoryKind mirrors Direction for categories. Categories default to
// expense when the caller leaves the kind out.
type CategoryKind string

const (
	CategoryKindIncome   CategoryKind = "income"
	CategoryKindExpense  CategoryKind = "expense"
	CategoryKindTransfer CategoryKind = "transfer"
)

// Valid reports whether the value is a known category kind.
func (k CategoryKind) Valid() bool {
	switch k {
	case CategoryKindIncome, CategoryKindExpense, CategoryKindTransfer:
		return true
	}
	return false
}
