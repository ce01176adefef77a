package core

import "time"

// MonthlyArchive is a frozen summary of one calendar month, built by
// the worker after the month closes and persisted alongside the live
// records.
type MonthlyArchive struct {
	ID               string           `json:"id"` // YYYY-MM
	Year             int              `json:"year"`
	Month            int              `json:"month"`
	Totals           Totals           `json:"totals"`
	ByCategory       []CategoryAmount `json:"by_category"`
	TransactionCount int              `json:"transaction_count"`
	DaysWithSpending int              `json:"days_with_spending"`
	ArchivedAt       time.Time        `json:"archived_at"`
}

// BuildMonthlyArchive summarizes the transactions dated in the given
// month. Expense categories only, matching the dashboard breakdown.
func BuildMonthlyArchive(txs []Transaction, year, month int, now time.Time) MonthlyArchive {
	var inMonth []Transaction
	spendingDays := make(map[int]struct{})
	for _, t := range txs {
		if !t.Date.InMonth(year, month) {
			continue
		}
		inMonth = append(inMonth, t)
		if t.EffectiveType() == Expense {
			spendingDays[t.Date.Day()] = struct{}{}
		}
	}
	return MonthlyArchive{
		ID:               NewDate(year, month, 1).MonthKey(),
		Year:             year,
		Month:            month,
		Totals:           TotalsByType(inMonth),
		ByCategory:       GroupByCategory(inMonth, string(Expense)),
		TransactionCount: len(inMonth),
		DaysWithSpending: len(spendingDays),
		ArchivedAt:       now,
	}
}
