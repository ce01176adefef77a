package core

import (
	"reflect"
	"testing"
)

func sampleTxs() []Transaction {
	return []Transaction{
		{ID: "1", Type: Expense, Category: "Food", Date: ParseDate("2024-06-01"), Amount: Money{Cents: 10000}, Note: "Lunch with team"},
		{ID: "2", Type: Income, Category: "Salary", Date: ParseDate("2024-06-01"), Amount: Money{Cents: 5000000}},
		{ID: "3", Type: Expense, Category: "Transport", Wallet: Bank, Date: ParseDate("2024-05-20"), Amount: Money{Cents: 2500}, Note: "train ticket"},
		{ID: "4", Category: "Food", Date: Date{}, Amount: Money{Cents: 700}, Note: "dateless"},
	}
}

func ids(txs []Transaction) []string {
	out := make([]string, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func TestApplyFiltersANDComposition(t *testing.T) {
	txs := []Transaction{
		{ID: "a", Type: Expense, Category: "Food", Date: ParseDate("2024-06-01"), Amount: Money{Cents: 10000}},
		{ID: "b", Type: Income, Category: "Salary", Date: ParseDate("2024-06-01"), Amount: Money{Cents: 5000000}},
	}
	got := ApplyFilters(txs, Filter{Type: "expense", Category: "all"})
	if len(got) != 1 || got[0].ID != "a" {
		t.Fatalf("expected only the expense record, got %v", ids(got))
	}
}

func TestApplyFiltersPredicates(t *testing.T) {
	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"empty filter matches all", Filter{}, []string{"1", "2", "3", "4"}},
		{"all wildcards", Filter{Type: "all", Category: "all"}, []string{"1", "2", "3", "4"}},
		{"type income", Filter{Type: "income"}, []string{"2"}},
		{"missing type counts as expense", Filter{Type: "expense"}, []string{"1", "3", "4"}},
		{"category exact", Filter{Category: "Food"}, []string{"1", "4"}},
		{"search case-insensitive substring", Filter{Search: "LUNCH"}, []string{"1"}},
		{"search never matches empty note", Filter{Search: "salary"}, nil},
		{"from bound inclusive", Filter{From: ParseDate("2024-06-01")}, []string{"1", "2"}},
		{"to bound inclusive", Filter{To: ParseDate("2024-05-20")}, []string{"3"}},
		{"bounds exclude dateless records", Filter{From: ParseDate("2024-01-01"), To: ParseDate("2024-12-31")}, []string{"1", "2", "3"}},
		{"combined", Filter{Type: "expense", Category: "Food", From: ParseDate("2024-06-01")}, []string{"1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(ApplyFilters(sampleTxs(), tc.f))
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestApplyFiltersDoesNotMutateInput(t *testing.T) {
	txs := sampleTxs()
	snapshot := make([]Transaction, len(txs))
	copy(snapshot, txs)

	ApplyFilters(txs, Filter{Type: "income", Search: "x"})

	if !reflect.DeepEqual(txs, snapshot) {
		t.Error("input slice was mutated")
	}
}

func TestFilterKeyStable(t *testing.T) {
	f := Filter{Type: "expense", Category: "Food", Search: "Lunch", From: ParseDate("2024-06-01")}
	if f.Key() != f.Key() {
		t.Fatal("Key must be deterministic")
	}
	if f.Key() == (Filter{}).Key() {
		t.Error("distinct filters must produce distinct keys")
	}
}
