package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/calmzest/waterdash/internal/domain"
	"github.com/calmzest/waterdash/internal/ledger"
	"github.com/calmzest/waterdash/internal/metrics"
)

func newTestReconciler(t *testing.T) (*Reconciler, *ledger.Service) {
	t.Helper()
	log := zerolog.Nop()
	svc := ledger.NewService(ledger.NewMemoryBackend(), time.Minute, log)
	return NewReconciler(svc, metrics.New(svc, log), func() civil.Date { return fixedToday }, log), svc
}

func mustDecode(t *testing.T, s string) ParsedResult {
	t.Helper()
	res, err := DecodeResult([]byte(s))
	if err != nil {
		t.Fatalf("DecodeResult: %v", err)
	}
	return res
}

func seed(t *testing.T, svc *ledger.Service, store domain.Store, day int, txType domain.TransactionType, amount float64) {
	t.Helper()
	err := svc.Append(context.Background(), store, domain.Transaction{
		ID:       "seed",
		Date:     civil.Date{Year: 2024, Month: time.June, Day: day},
		Type:     txType,
		Amount:   amount,
		Category: "Sales",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestExecute_AddDefaultsToToday(t *testing.T) {
	rec, svc := newTestReconciler(t)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "Kilimani", "type": "REVENUE", "operation": "ADD",
		"amount": 5000, "description": "water refills", "category": "Sales", "confidence": 0.95
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	txOut, ok := out.(*TransactionOutcome)
	if !ok {
		t.Fatalf("expected *TransactionOutcome, got %T", out)
	}
	if txOut.Operation != domain.OpAdd || txOut.Store != domain.StoreKilimani {
		t.Errorf("unexpected outcome: %+v", txOut)
	}
	if txOut.Transaction.ID == "" {
		t.Error("transaction was not assigned an ID")
	}
	if txOut.Transaction.Date != fixedToday {
		t.Errorf("date = %s, want today %s", txOut.Transaction.Date, fixedToday)
	}

	rows, err := svc.Query(context.Background(), domain.StoreKilimani, ledger.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 5000 {
		t.Errorf("ledger rows = %+v", rows)
	}
}

func TestExecute_AddResolvesRelativeDate(t *testing.T) {
	rec, _ := newTestReconciler(t)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "Obama", "type": "EXPENSE", "operation": "ADD",
		"amount": 800, "category": "Transport", "date": "yesterday", "confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	want := civil.Date{Year: 2024, Month: time.June, Day: 14}
	if got := out.(*TransactionOutcome).Transaction.Date; got != want {
		t.Errorf("date = %s, want %s", got, want)
	}
}

func TestExecute_AddUnresolvableDate(t *testing.T) {
	rec, _ := newTestReconciler(t)

	_, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "Obama", "type": "EXPENSE", "operation": "ADD",
		"amount": 800, "category": "Transport", "date": "whenever", "confidence": 0.9
	}`))
	assertValidationKind(t, err, ErrInvalidDate)
}

func TestExecute_UpdateRequiresDate(t *testing.T) {
	rec, _ := newTestReconciler(t)

	_, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "Kilimani", "type": "REVENUE", "operation": "UPDATE",
		"amount": 250, "confidence": 0.9
	}`))
	assertValidationKind(t, err, ErrMissingRequiredField)
}

func TestExecute_UpdateFirstMatch(t *testing.T) {
	rec, svc := newTestReconciler(t)
	seed(t, svc, domain.StoreKilimani, 10, domain.TypeRevenue, 100)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "Kilimani", "type": "REVENUE", "operation": "UPDATE",
		"amount": 250, "date": "2024-06-10", "confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.(*TransactionOutcome).Transaction.Amount; got != 250 {
		t.Errorf("amount = %v, want 250", got)
	}
}

func TestExecute_DeleteNoMatch(t *testing.T) {
	rec, _ := newTestReconciler(t)

	_, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "Homa Bay", "operation": "DELETE", "date": "today", "confidence": 1
	}`))
	if !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExecute_DeleteAllMatchingType(t *testing.T) {
	rec, svc := newTestReconciler(t)
	seed(t, svc, domain.StoreSouthC, 15, domain.TypeExpense, 100)
	seed(t, svc, domain.StoreSouthC, 15, domain.TypeExpense, 200)
	seed(t, svc, domain.StoreSouthC, 15, domain.TypeRevenue, 900)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"store": "South C", "type": "EXPENSE", "operation": "DELETE",
		"date": "today", "confidence": 1
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := out.(*TransactionOutcome).Deleted; got != 2 {
		t.Errorf("deleted = %d, want 2", got)
	}

	rows, err := svc.Query(context.Background(), domain.StoreSouthC, ledger.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 || rows[0].Type != domain.TypeRevenue {
		t.Errorf("remaining rows = %+v", rows)
	}
}

func TestExecute_AnalyticsSingleStore(t *testing.T) {
	rec, svc := newTestReconciler(t)
	seed(t, svc, domain.StoreKilimani, 14, domain.TypeRevenue, 500)
	seed(t, svc, domain.StoreKilimani, 15, domain.TypeRevenue, 200)
	seed(t, svc, domain.StoreKilimani, 15, domain.TypeExpense, 100)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"type": "ANALYTICS", "store": "Kilimani", "metric": "PROFIT",
		"timeframe": "THIS_MONTH", "confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a := out.(*AnalyticsOutcome)
	if a.Store != "Kilimani" || a.Metric != domain.MetricProfit {
		t.Errorf("unexpected outcome: %+v", a)
	}
	if a.Value == nil || *a.Value != 600 {
		t.Errorf("value = %v, want 600", a.Value)
	}
	if a.Period.StartDate == nil || a.Period.StartDate.Day != 1 || a.Period.EndDate.Day != 30 {
		t.Errorf("period = %+v", a.Period)
	}
}

func TestExecute_AnalyticsDefaultsToRevenue(t *testing.T) {
	rec, svc := newTestReconciler(t)
	seed(t, svc, domain.StoreObama, 15, domain.TypeRevenue, 700)
	seed(t, svc, domain.StoreObama, 15, domain.TypeExpense, 50)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"type": "ANALYTICS", "store": "Obama", "timeframe": "TODAY", "confidence": 0.8
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a := out.(*AnalyticsOutcome)
	if a.Metric != domain.MetricRevenue {
		t.Errorf("metric = %s, want REVENUE", a.Metric)
	}
	if a.Value == nil || *a.Value != 700 {
		t.Errorf("value = %v, want 700", a.Value)
	}
}

func TestExecute_AnalyticsAllStores(t *testing.T) {
	rec, svc := newTestReconciler(t)
	seed(t, svc, domain.StoreKilimani, 15, domain.TypeRevenue, 300)
	seed(t, svc, domain.StoreHomaBay, 15, domain.TypeExpense, 120)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"type": "ANALYTICS", "timeframe": "TODAY", "metric": "REVENUE", "confidence": 0.8
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	a := out.(*AnalyticsOutcome)
	if len(a.Stores) != len(domain.Stores()) {
		t.Fatalf("snapshots = %d, want %d", len(a.Stores), len(domain.Stores()))
	}
	for i, store := range domain.Stores() {
		if a.Stores[i].Store != store {
			t.Errorf("snapshot %d is %s, want %s", i, a.Stores[i].Store, store)
		}
	}
	if a.Stores[0].Revenue != 300 || a.Stores[3].Expenses != 120 {
		t.Errorf("snapshots = %+v", a.Stores)
	}
	if a.Stores[3].Profit != -120 {
		t.Errorf("profit = %v, want -120", a.Stores[3].Profit)
	}
}

func TestExecute_BatchPartialFailure(t *testing.T) {
	rec, svc := newTestReconciler(t)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"type": "BATCH",
		"transactions": [
			{"store": "Kilimani", "type": "REVENUE", "operation": "ADD", "amount": 100, "category": "Sales", "confidence": 1},
			{"store": "Obama", "operation": "DELETE", "date": "today", "confidence": 1}
		],
		"confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	b := out.(*BatchOutcome)
	if b.Success {
		t.Error("expected partial failure")
	}
	if len(b.Results) != 1 || len(b.Errors) != 1 {
		t.Fatalf("results=%d errors=%d", len(b.Results), len(b.Errors))
	}
	if b.Errors[0].Index != 1 || b.Errors[0].Store != "Obama" {
		t.Errorf("error = %+v", b.Errors[0])
	}
	if b.Message != "Processed 1 of 2 transactions, 1 failed" {
		t.Errorf("message = %q", b.Message)
	}

	// The first element's mutation stands despite the second failing.
	rows, err := svc.Query(context.Background(), domain.StoreKilimani, ledger.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestExecute_BatchAllSucceed(t *testing.T) {
	rec, _ := newTestReconciler(t)

	out, err := rec.Execute(context.Background(), mustDecode(t, `{
		"type": "BATCH",
		"transactions": [
			{"store": "Kilimani", "type": "REVENUE", "operation": "ADD", "amount": 100, "category": "Sales", "confidence": 1},
			{"store": "South C", "type": "EXPENSE", "operation": "ADD", "amount": 40, "category": "Transport", "confidence": 1}
		],
		"confidence": 0.9
	}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	b := out.(*BatchOutcome)
	if !b.Success || b.Message != "Processed 2 transactions" {
		t.Errorf("outcome = %+v", b)
	}
}
