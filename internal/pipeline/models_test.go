package pipeline

import (
	"errors"
	"testing"
)

func TestDecodeResult_Transaction(t *testing.T) {
	res, err := DecodeResult([]byte(`{
		"store": "Kilimani",
		"type": "REVENUE",
		"operation": "ADD",
		"amount": 5000,
		"description": "water refills",
		"category": "Sales",
		"confidence": 0.95
	}`))
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}

	tx, ok := res.(*ParsedTransaction)
	if !ok {
		t.Fatalf("expected *ParsedTransaction, got %T", res)
	}
	if tx.StoreName() != "Kilimani" || tx.OperationName() != "ADD" {
		t.Errorf("unexpected fields: store=%q op=%q", tx.StoreName(), tx.OperationName())
	}
	if amount, ok := tx.AmountValue(); !ok || amount != 5000 {
		t.Errorf("AmountValue = %v, %v", amount, ok)
	}
	if len(tx.Raw()) == 0 {
		t.Error("Raw() is empty")
	}
}

func TestDecodeResult_Analytics(t *testing.T) {
	res, err := DecodeResult([]byte(`{
		"type": "ANALYTICS",
		"store": "Obama",
		"metric": "PROFIT",
		"timeframe": "THIS_MONTH",
		"confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}

	q, ok := res.(*AnalyticsQuery)
	if !ok {
		t.Fatalf("expected *AnalyticsQuery, got %T", res)
	}
	if q.StoreName() != "Obama" || q.MetricName() != "PROFIT" || q.TimeframeName() != "THIS_MONTH" {
		t.Errorf("unexpected fields: %+v", q)
	}
}

func TestDecodeResult_Batch(t *testing.T) {
	res, err := DecodeResult([]byte(`{
		"type": "BATCH",
		"transactions": [
			{"store": "Kilimani", "type": "REVENUE", "operation": "ADD", "amount": 100, "category": "Sales", "confidence": 1},
			{"store": "South C", "type": "EXPENSE", "operation": "ADD", "amount": 40, "category": "Transport", "confidence": 1}
		],
		"confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}

	b, ok := res.(*BatchResult)
	if !ok {
		t.Fatalf("expected *BatchResult, got %T", res)
	}
	if len(b.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(b.Transactions))
	}
	if b.Transactions[1].StoreName() != "South C" {
		t.Errorf("second element store = %q", b.Transactions[1].StoreName())
	}
	if len(b.Transactions[0].Raw()) == 0 {
		t.Error("batch element Raw() is empty")
	}
}

func TestDecodeResult_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":              `oops`,
		"array":                 `[1,2,3]`,
		"string":                `"hello"`,
		"batch no transactions": `{"type": "BATCH"}`,
		"batch non-array":       `{"type": "BATCH", "transactions": "x"}`,
		"batch non-object item": `{"type": "BATCH", "transactions": [42]}`,
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResult([]byte(input))
			var mErr *MalformedResponseError
			if !errors.As(err, &mErr) {
				t.Fatalf("expected MalformedResponseError, got %v", err)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	want := `{"store": "Kilimani"}`
	tests := []struct {
		name string
		raw  string
	}{
		{"bare", `{"store": "Kilimani"}`},
		{"bare with whitespace", "\n  {\"store\": \"Kilimani\"}\n"},
		{"json fence", "```json\n{\"store\": \"Kilimani\"}\n```"},
		{"plain fence", "```\n{\"store\": \"Kilimani\"}\n```"},
		{"fence with prose", "Here is the result:\n```json\n{\"store\": \"Kilimani\"}\n```\nLet me know!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.raw); got != want {
				t.Errorf("ExtractJSON = %q, want %q", got, want)
			}
		})
	}
}
