package domain

import "testing"

func TestParseStore(t *testing.T) {
	tests := []struct {
		name string
		want Store
		ok   bool
	}{
		{"Kilimani", StoreKilimani, true},
		{"South C", StoreSouthC, true},
		{"Obama", StoreObama, true},
		{"Homa Bay", StoreHomaBay, true},
		{"kilimani", "", false},
		{"SOUTH C", "", false},
		{" Obama", "", false},
		{"Westlands", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseStore(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseStore(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseTransactionType(t *testing.T) {
	if _, ok := ParseTransactionType("REVENUE"); !ok {
		t.Error("REVENUE rejected")
	}
	if _, ok := ParseTransactionType("EXPENSE"); !ok {
		t.Error("EXPENSE rejected")
	}
	for _, s := range []string{"revenue", "INCOME", ""} {
		if _, ok := ParseTransactionType(s); ok {
			t.Errorf("ParseTransactionType(%q) unexpectedly accepted", s)
		}
	}
}

func TestParseOperation(t *testing.T) {
	for _, s := range []string{"ADD", "DELETE", "UPDATE"} {
		if _, ok := ParseOperation(s); !ok {
			t.Errorf("%s rejected", s)
		}
	}
	for _, s := range []string{"add", "REMOVE", ""} {
		if _, ok := ParseOperation(s); ok {
			t.Errorf("ParseOperation(%q) unexpectedly accepted", s)
		}
	}
}

func TestValidCategory(t *testing.T) {
	tests := []struct {
		txType   TransactionType
		category string
		want     bool
	}{
		{TypeRevenue, "Sales", true},
		{TypeRevenue, "Other Income", true},
		{TypeRevenue, "Transport", false},
		{TypeExpense, "Transport", true},
		{TypeExpense, "Other Expense", true},
		{TypeExpense, "Sales", false},
		{TypeRevenue, "sales", false},
		{TypeRevenue, "", false},
	}
	for _, tt := range tests {
		if got := ValidCategory(tt.txType, tt.category); got != tt.want {
			t.Errorf("ValidCategory(%s, %q) = %v, want %v", tt.txType, tt.category, got, tt.want)
		}
	}
}

func TestCategories_VocabulariesDisjoint(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range Categories(TypeRevenue) {
		seen[c] = true
	}
	for _, c := range Categories(TypeExpense) {
		if seen[c] {
			t.Errorf("category %q appears in both vocabularies", c)
		}
	}
}

func TestStores_OrderIsStable(t *testing.T) {
	want := []Store{StoreKilimani, StoreSouthC, StoreObama, StoreHomaBay}
	got := Stores()
	if len(got) != len(want) {
		t.Fatalf("Stores() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Stores()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
