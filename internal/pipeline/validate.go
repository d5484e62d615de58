package pipeline

import (
	"github.com/calmzest/waterdash/internal/domain"
)

// ValidateResult enforces the domain rules on whatever shape the oracle
// produced. Validation order is fixed so the first violated rule is the one
// reported: store, type, operation, amount, category, confidence.
func ValidateResult(res ParsedResult) error {
	switch v := res.(type) {
	case *AnalyticsQuery:
		return validateAnalytics(v)
	case *ParsedTransaction:
		return ValidateTransaction(v)
	case *BatchResult:
		return validateBatch(v)
	}
	return nil
}

func validateAnalytics(q *AnalyticsQuery) error {
	// Store is optional on analytics queries; when present it must be a
	// member of the enumeration.
	if q.Store == nil {
		return nil
	}
	if s, ok := stringField(q.Store); !ok || !isStore(s) {
		return &ValidationError{Kind: ErrInvalidStore, Field: "store", Value: q.Store, Allowed: domain.StoreNames()}
	}
	return nil
}

func isStore(s string) bool {
	_, ok := domain.ParseStore(s)
	return ok
}

// ValidateTransaction checks one transaction command against the taxonomy.
func ValidateTransaction(t *ParsedTransaction) error {
	store, ok := stringField(t.Store)
	if !ok || !isStore(store) {
		return &ValidationError{Kind: ErrInvalidStore, Field: "store", Value: t.Store, Allowed: domain.StoreNames()}
	}

	opStr, _ := stringField(t.Operation)

	typeStr, typeOK := stringField(t.Type)
	txType, typeValid := domain.ParseTransactionType(typeStr)
	if !typeValid {
		// The type narrows the match key for DELETE but is optional there;
		// everywhere else it is required.
		if !(t.Type == nil && !typeOK && opStr == string(domain.OpDelete)) {
			return &ValidationError{Kind: ErrInvalidType, Field: "type", Value: t.Type, Allowed: []string{string(domain.TypeRevenue), string(domain.TypeExpense)}}
		}
	}

	op, opValid := domain.ParseOperation(opStr)
	if !opValid {
		return &ValidationError{Kind: ErrInvalidOperation, Field: "operation", Value: t.Operation, Allowed: []string{string(domain.OpAdd), string(domain.OpDelete), string(domain.OpUpdate)}}
	}

	if op == domain.OpAdd || op == domain.OpUpdate {
		amount, ok := numberField(t.Amount)
		if !ok || amount <= 0 {
			return &ValidationError{Kind: ErrInvalidAmount, Field: "amount", Value: t.Amount}
		}
	}

	if op == domain.OpAdd {
		category, ok := stringField(t.Category)
		if !ok || !domain.ValidCategory(txType, category) {
			return &ValidationError{Kind: ErrInvalidCategory, Field: "category", Value: t.Category, Allowed: domain.Categories(txType)}
		}
	}

	confidence, ok := numberField(t.Confidence)
	if !ok || confidence < 0 || confidence > 1 {
		return &ValidationError{Kind: ErrInvalidConfidence, Field: "confidence", Value: t.Confidence}
	}

	return nil
}

// validateBatch pre-validates every element; the batch is rejected as a
// whole on the first failing member. Execution later is per-item
// best-effort, but nothing is mutated unless the entire batch validates.
func validateBatch(b *BatchResult) error {
	for _, t := range b.Transactions {
		if err := ValidateTransaction(t); err != nil {
			return err
		}
	}
	return nil
}
