package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calmzest/waterdash/internal/domain"
	"github.com/calmzest/waterdash/internal/ledger"
)

type stubModel struct {
	out string
	err error
}

func (s stubModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	return s.out, s.err
}

func TestInterpret_Transaction(t *testing.T) {
	model := stubModel{out: "```json\n" + `{
		"store": "Kilimani", "type": "REVENUE", "operation": "ADD",
		"amount": 5000, "category": "Sales", "confidence": 0.95
	}` + "\n```"}
	interp := NewInterpreter(model, zerolog.Nop())

	res, err := interp.Interpret(context.Background(), "sold 5000 worth of water at kilimani")
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if _, ok := res.(*ParsedTransaction); !ok {
		t.Fatalf("expected *ParsedTransaction, got %T", res)
	}
}

func TestInterpret_OracleFailure(t *testing.T) {
	interp := NewInterpreter(stubModel{err: errors.New("quota exceeded")}, zerolog.Nop())

	_, err := interp.Interpret(context.Background(), "anything")
	var oErr *OracleUnavailableError
	if !errors.As(err, &oErr) {
		t.Fatalf("expected OracleUnavailableError, got %v", err)
	}
}

func TestInterpret_MalformedOutput(t *testing.T) {
	interp := NewInterpreter(stubModel{out: "I could not find a transaction in that."}, zerolog.Nop())

	_, err := interp.Interpret(context.Background(), "hello")
	var mErr *MalformedResponseError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if mErr.Raw == "" {
		t.Error("raw text was not retained")
	}
}

func TestInterpret_ValidationFailure(t *testing.T) {
	interp := NewInterpreter(stubModel{out: `{
		"store": "Westlands", "type": "REVENUE", "operation": "ADD",
		"amount": 5000, "category": "Sales", "confidence": 0.95
	}`}, zerolog.Nop())

	_, err := interp.Interpret(context.Background(), "sold water at westlands")
	assertValidationKind(t, err, ErrInvalidStore)
}

func TestRunner_EndToEnd(t *testing.T) {
	rec, svc := newTestReconciler(t)
	model := stubModel{out: `{
		"store": "Homa Bay", "type": "EXPENSE", "operation": "ADD",
		"amount": 300, "category": "Transport", "confidence": 0.9
	}`}
	runner := NewRunner(NewInterpreter(model, zerolog.Nop()), rec)

	out, err := runner.Run(context.Background(), "spent 300 on transport at homa bay")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, ok := out.(*TransactionOutcome); !ok {
		t.Fatalf("expected *TransactionOutcome, got %T", out)
	}

	rows, err := svc.Query(context.Background(), domain.StoreHomaBay, ledger.Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(rows) != 1 || rows[0].Amount != 300 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("sold 20 bottles")

	if !strings.Contains(prompt, "sold 20 bottles") {
		t.Error("prompt does not embed the input")
	}
	for _, store := range domain.StoreNames() {
		if !strings.Contains(prompt, store) {
			t.Errorf("prompt does not mention store %q", store)
		}
	}
	if strings.Contains(prompt, "{input}") {
		t.Error("input placeholder was not replaced")
	}
}
