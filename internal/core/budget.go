package core

import "math"

// Settings is the per-deployment singleton. The store creates it lazily
// with zero values on first read.
type Settings struct {
	// SavingAmount, when set, overrides the computed savings figure.
	// nil means "derive from the balance".
	SavingAmount *Money `json:"saving_amount"`
	// MonthlyBudget is the expense ceiling for the current calendar
	// month. Zero or negative means no budget is set.
	MonthlyBudget Money `json:"monthly_budget"`
}

// BudgetStatus is the derived state of the monthly budget.
type BudgetStatus struct {
	IsSet      bool    `json:"is_set"`
	Remaining  Money   `json:"remaining"`
	SpentRatio float64 `json:"spent_ratio"`
	Percent    int     `json:"percent"`
	OverBudget bool    `json:"over_budget"`
}

// Savings is the derived savings figure with its provenance.
type Savings struct {
	Value  Money `json:"value"`
	Manual bool  `json:"manual"`
}

// DeriveBudgetStatus computes the budget figures for the current month.
// An unset budget (<= 0) yields the zero status with IsSet false.
func DeriveBudgetStatus(monthlyBudget, monthlyExpense Money) BudgetStatus {
	if monthlyBudget.Cents <= 0 {
		return BudgetStatus{}
	}
	ratio := float64(monthlyExpense.Cents) / float64(monthlyBudget.Cents)
	ratio = math.Min(math.Max(ratio, 0), 1)
	remaining := monthlyBudget.Sub(monthlyExpense)
	return BudgetStatus{
		IsSet:      true,
		Remaining:  remaining,
		SpentRatio: ratio,
		Percent:    int(math.Round(ratio * 100)),
		OverBudget: remaining.Cents < 0,
	}
}

// DeriveSavings prefers the manual override from settings and falls
// back to the income-minus-expense balance.
func DeriveSavings(manual *Money, totals Totals) Savings {
	if manual != nil {
		return Savings{Value: *manual, Manual: true}
	}
	return Savings{Value: totals.Balance}
}
