package core

import "time"

// DayAmount is one point of a dense single-valued daily series.
type DayAmount struct {
	Date   Date  `json:"date"`
	Amount Money `json:"amount"`
}

// DayFlow is one point of a dense daily series carrying both directions.
type DayFlow struct {
	Date    Date  `json:"date"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Net     Money `json:"net"`
}

// DaysInMonth returns the number of calendar days in the given month,
// leap-year aware.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month+1), 0, 0, 0, 0, 0, time.UTC).Day()
}

// DailySeriesForMonth buckets matching transactions by day over one
// calendar month. The result is dense: exactly one entry per day from
// the 1st through the last day of the month, zero-filled where nothing
// matched.
func DailySeriesForMonth(txs []Transaction, year, month int, typeFilter string) []DayAmount {
	days := DaysInMonth(year, month)
	sums := make(map[int]Money, days)
	for _, t := range txs {
		if !matchesType(t, typeFilter) || !t.Date.InMonth(year, month) {
			continue
		}
		sums[t.Date.Day()] = sums[t.Date.Day()].Add(t.Amount)
	}
	out := make([]DayAmount, days)
	for day := 1; day <= days; day++ {
		out[day-1] = DayAmount{Date: NewDate(year, month, day), Amount: sums[day]}
	}
	return out
}

// RollingWindowSeries buckets transactions into a dense window of
// exactly windowDays calendar days ending at ref inclusive, oldest
// first. The filter is applied before bucketing, so a record outside
// the filter's own date bounds never contributes even when its date
// falls inside the window.
func RollingWindowSeries(txs []Transaction, windowDays int, ref Date, f Filter) []DayFlow {
	if windowDays <= 0 || ref.IsZero() {
		return []DayFlow{}
	}
	type flow struct{ income, expense Money }
	sums := make(map[string]flow)
	for _, t := range ApplyFilters(txs, f) {
		key := t.Date.Key()
		if key == "" {
			continue
		}
		fl := sums[key]
		if t.EffectiveType() == Income {
			fl.income = fl.income.Add(t.Amount)
		} else {
			fl.expense = fl.expense.Add(t.Amount)
		}
		sums[key] = fl
	}
	out := make([]DayFlow, windowDays)
	for i := 0; i < windowDays; i++ {
		day := ref.AddDays(i - windowDays + 1)
		fl := sums[day.Key()]
		out[i] = DayFlow{
			Date:    day,
			Income:  fl.income,
			Expense: fl.expense,
			Net:     fl.income.Sub(fl.expense),
		}
	}
	return out
}

// MonthlyExpense sums expense amounts dated in the same calendar month
// as ref, over the unfiltered list. Budget tracking always means "this
// month" no matter what view filters are active. Dateless records are
// excluded.
func MonthlyExpense(txs []Transaction, ref Date) Money {
	var sum Money
	for _, t := range txs {
		if t.EffectiveType() != Expense || !t.Date.SameMonth(ref) {
			continue
		}
		sum = sum.Add(t.Amount)
	}
	return sum
}
