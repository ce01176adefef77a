package core

import "testing"

func TestDeriveBudgetStatusOverBudget(t *testing.T) {
	got := DeriveBudgetStatus(Money{Cents: 1000000}, Money{Cents: 1200000})
	if !got.IsSet {
		t.Error("budget > 0 must be set")
	}
	if got.Remaining.Cents != -200000 {
		t.Errorf("remaining = %d, want -200000", got.Remaining.Cents)
	}
	if got.SpentRatio != 1 {
		t.Errorf("spent ratio = %v, want 1 (clamped)", got.SpentRatio)
	}
	if got.Percent != 100 {
		t.Errorf("percent = %d, want 100", got.Percent)
	}
	if !got.OverBudget {
		t.Error("expected over budget")
	}
}

func TestDeriveBudgetStatusPartial(t *testing.T) {
	got := DeriveBudgetStatus(Money{Cents: 1000}, Money{Cents: 250})
	if got.Remaining.Cents != 750 || got.SpentRatio != 0.25 || got.Percent != 25 || got.OverBudget {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestDeriveBudgetStatusUnset(t *testing.T) {
	for _, cents := range []int64{0, -100} {
		got := DeriveBudgetStatus(Money{Cents: cents}, Money{Cents: 500})
		if got != (BudgetStatus{}) {
			t.Errorf("budget %d should yield the zero status, got %+v", cents, got)
		}
	}
}

func TestDeriveSavings(t *testing.T) {
	totals := Totals{Balance: Money{Cents: 750000}}

	got := DeriveSavings(nil, totals)
	if got.Value.Cents != 750000 || got.Manual {
		t.Errorf("fallback savings wrong: %+v", got)
	}

	manual := Money{Cents: 2000000}
	got = DeriveSavings(&manual, totals)
	if got.Value.Cents != 2000000 || !got.Manual {
		t.Errorf("manual savings wrong: %+v", got)
	}

	// A manual zero still counts as manual.
	zero := Money{}
	got = DeriveSavings(&zero, totals)
	if got.Value.Cents != 0 || !got.Manual {
		t.Errorf("manual zero savings wrong: %+v", got)
	}
}

func TestBuildMonthlyArchive(t *testing.T) {
	txs := []Transaction{
		{Type: Expense, Category: "Food", Date: ParseDate("2024-06-01"), Amount: Money{Cents: 200}},
		{Type: Expense, Category: "Food", Date: ParseDate("2024-06-02"), Amount: Money{Cents: 300}},
		{Type: Income, Category: "Salary", Date: ParseDate("2024-06-25"), Amount: Money{Cents: 90000}},
		{Type: Expense, Category: "Rent", Date: ParseDate("2024-05-01"), Amount: Money{Cents: 999}},
	}
	a := BuildMonthlyArchive(txs, 2024, 6, ParseDate("2024-07-01").Time)
	if a.ID != "2024-06" {
		t.Errorf("id = %q", a.ID)
	}
	if a.TransactionCount != 3 {
		t.Errorf("count = %d, want 3", a.TransactionCount)
	}
	if a.Totals.Expense.Cents != 500 || a.Totals.Income.Cents != 90000 {
		t.Errorf("totals wrong: %+v", a.Totals)
	}
	if a.DaysWithSpending != 2 {
		t.Errorf("days with spending = %d, want 2", a.DaysWithSpending)
	}
	if len(a.ByCategory) != 1 || a.ByCategory[0].Name != "Food" {
		t.Errorf("expense categories wrong: %+v", a.ByCategory)
	}
}
