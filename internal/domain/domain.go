package domain

import (
	"cloud.google.com/go/civil"
)

// Store is a retail location. The set of stores is fixed at the
// configuration level; every ledger partition belongs to exactly one store.
type Store string

const (
	StoreKilimani Store = "Kilimani"
	StoreSouthC   Store = "South C"
	StoreObama    Store = "Obama"
	StoreHomaBay  Store = "Homa Bay"
)

// Stores returns the store enumeration in canonical order. The order is
// load-bearing: all-stores metrics results are returned in this order.
func Stores() []Store {
	return []Store{StoreKilimani, StoreSouthC, StoreObama, StoreHomaBay}
}

// StoreNames returns the display names of all stores, used for prompt
// building and validation error messages.
func StoreNames() []string {
	stores := Stores()
	names := make([]string, len(stores))
	for i, s := range stores {
		names[i] = string(s)
	}
	return names
}

// ParseStore resolves a display name to a Store. Matching is exact; casing
// and whitespace differences are rejected.
func ParseStore(name string) (Store, bool) {
	for _, s := range Stores() {
		if string(s) == name {
			return s, true
		}
	}
	return "", false
}

// TransactionType distinguishes money in from money out.
type TransactionType string

const (
	TypeRevenue TransactionType = "REVENUE"
	TypeExpense TransactionType = "EXPENSE"
)

// ParseTransactionType resolves a raw string to a TransactionType.
func ParseTransactionType(s string) (TransactionType, bool) {
	switch TransactionType(s) {
	case TypeRevenue, TypeExpense:
		return TransactionType(s), true
	}
	return "", false
}

// Operation is a ledger mutation kind carried by a parsed command.
type Operation string

const (
	OpAdd    Operation = "ADD"
	OpDelete Operation = "DELETE"
	OpUpdate Operation = "UPDATE"
)

// ParseOperation resolves a raw string to an Operation.
func ParseOperation(s string) (Operation, bool) {
	switch Operation(s) {
	case OpAdd, OpDelete, OpUpdate:
		return Operation(s), true
	}
	return "", false
}

// Metric is an analytics measure over a store's ledger.
type Metric string

const (
	MetricRevenue Metric = "REVENUE"
	MetricExpense Metric = "EXPENSE"
	MetricProfit  Metric = "PROFIT"
)

// Timeframe is an enumerated relative period resolved to a concrete
// date range at query time.
type Timeframe string

const (
	TimeframeSpecificDate Timeframe = "SPECIFIC_DATE"
	TimeframeToday        Timeframe = "TODAY"
	TimeframeThisWeek     Timeframe = "THIS_WEEK"
	TimeframeThisMonth    Timeframe = "THIS_MONTH"
	TimeframeAllTime      Timeframe = "ALL_TIME"
)

var revenueCategories = []string{
	"Sales",
	"Delivery",
	"Deposits",
	"Rental",
	"Other Income",
}

var expenseCategories = []string{
	"Transport",
	"Maintenance",
	"Utilities",
	"Salary",
	"Supplies",
	"Marketing",
	"Rent",
	"Equipment",
	"Other Expense",
}

// Categories returns the category vocabulary for a transaction type.
func Categories(t TransactionType) []string {
	if t == TypeExpense {
		return expenseCategories
	}
	return revenueCategories
}

// ValidCategory reports whether name belongs to the vocabulary selected by
// the transaction type. Matching is exact.
func ValidCategory(t TransactionType, name string) bool {
	for _, c := range Categories(t) {
		if c == name {
			return true
		}
	}
	return false
}

// Transaction is one persisted ledger record. The ID is assigned at creation
// and immutable; Amount is the only field mutable after creation (via an
// UPDATE command).
type Transaction struct {
	ID          string          `json:"id"`
	Date        civil.Date      `json:"date"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
}
