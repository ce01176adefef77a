package core

import (
	"reflect"
	"testing"
)

func TestTotalsByTypeDefaultsMissingType(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Amount: Money{Cents: 1000}},
		{Type: Expense, Amount: Money{Cents: 300}},
		{Amount: Money{Cents: 200}}, // no type: counts as expense
	}
	got := TotalsByType(txs)
	want := Totals{Income: Money{Cents: 1000}, Expense: Money{Cents: 500}, Balance: Money{Cents: 500}}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestTotalsByTypeEmptyInput(t *testing.T) {
	if got := TotalsByType(nil); got != (Totals{}) {
		t.Fatalf("empty input should yield zero totals, got %+v", got)
	}
}

func TestTotalsByWallet(t *testing.T) {
	txs := []Transaction{
		{Type: Income, Wallet: Bank, Amount: Money{Cents: 900}},
		{Type: Expense, Wallet: Bank, Amount: Money{Cents: 400}},
		{Type: Expense, Amount: Money{Cents: 100}}, // no wallet: cash
		{Type: Income, Wallet: Cash, Amount: Money{Cents: 50}},
	}
	got := TotalsByWallet(txs)
	if got.Bank.Income.Cents != 900 || got.Bank.Expense.Cents != 400 || got.Bank.Balance.Cents != 500 {
		t.Errorf("bank totals wrong: %+v", got.Bank)
	}
	if got.Cash.Income.Cents != 50 || got.Cash.Expense.Cents != 100 || got.Cash.Balance.Cents != -50 {
		t.Errorf("cash totals wrong: %+v", got.Cash)
	}
}

func TestGroupByCategory(t *testing.T) {
	txs := []Transaction{
		{Type: Expense, Category: "Food", Amount: Money{Cents: 300}},
		{Type: Expense, Category: "Transport", Amount: Money{Cents: 500}},
		{Type: Expense, Category: "Food", Amount: Money{Cents: 400}},
		{Type: Income, Category: "Salary", Amount: Money{Cents: 9000}},
	}
	got := GroupByCategory(txs, "expense")
	want := []CategoryAmount{
		{Name: "Food", Amount: Money{Cents: 700}},
		{Name: "Transport", Amount: Money{Cents: 500}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGroupByCategoryOmitsNonMatching(t *testing.T) {
	// "Salary" exists in the list but has no expense record, so it must
	// not appear at all, not even with a zero sum.
	txs := []Transaction{
		{Type: Income, Category: "Salary", Amount: Money{Cents: 9000}},
		{Type: Expense, Category: "Food", Amount: Money{Cents: 100}},
	}
	for _, c := range GroupByCategory(txs, "expense") {
		if c.Name == "Salary" {
			t.Fatal("category with no matching transactions must be absent")
		}
	}
}

func TestGroupByCategoryTieBreakStable(t *testing.T) {
	txs := []Transaction{
		{Type: Expense, Category: "B", Amount: Money{Cents: 100}},
		{Type: Expense, Category: "A", Amount: Money{Cents: 100}},
	}
	first := GroupByCategory(txs, "expense")
	for i := 0; i < 10; i++ {
		if got := GroupByCategory(txs, "expense"); !reflect.DeepEqual(got, first) {
			t.Fatal("tied categories must keep a stable order across calls")
		}
	}
	// First-encounter order wins on ties.
	if first[0].Name != "B" || first[1].Name != "A" {
		t.Errorf("expected encounter order [B A], got %v", first)
	}
}

func TestGroupByMonth(t *testing.T) {
	txs := []Transaction{
		{Type: Expense, Date: ParseDate("2024-06-10"), Amount: Money{Cents: 200}},
		{Type: Expense, Date: ParseDate("2024-04-01"), Amount: Money{Cents: 100}},
		{Type: Expense, Date: ParseDate("2024-06-20"), Amount: Money{Cents: 300}},
		{Type: Expense, Date: Date{}, Amount: Money{Cents: 999}}, // dateless: skipped
		{Type: Income, Date: ParseDate("2024-05-05"), Amount: Money{Cents: 50}},
	}
	got := GroupByMonth(txs, "expense")
	want := []MonthAmount{
		{Month: "2024-04", Amount: Money{Cents: 100}},
		{Month: "2024-06", Amount: Money{Cents: 500}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestAggregationIdempotent(t *testing.T) {
	txs := sampleTxs()
	if !reflect.DeepEqual(TotalsByType(txs), TotalsByType(txs)) {
		t.Error("TotalsByType not idempotent")
	}
	if !reflect.DeepEqual(GroupByCategory(txs, "all"), GroupByCategory(txs, "all")) {
		t.Error("GroupByCategory not idempotent")
	}
	if !reflect.DeepEqual(GroupByMonth(txs, "all"), GroupByMonth(txs, "all")) {
		t.Error("GroupByMonth not idempotent")
	}
}

func TestAggregationOrderIndependent(t *testing.T) {
	txs := sampleTxs()
	reversed := make([]Transaction, len(txs))
	for i, tx := range txs {
		reversed[len(txs)-1-i] = tx
	}
	if TotalsByType(txs) != TotalsByType(reversed) {
		t.Error("totals depend on input order")
	}
	if !reflect.DeepEqual(GroupByMonth(txs, "all"), GroupByMonth(reversed, "all")) {
		t.Error("month buckets depend on input order")
	}
}
