package core

import "sort"

// Totals aggregates amounts by transaction direction.
type Totals struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
	Balance Money `json:"balance"`
}

// WalletTotals splits Totals by effective wallet.
type WalletTotals struct {
	Cash Totals `json:"cash"`
	Bank Totals `json:"bank"`
}

// CategoryAmount is an amount aggregated under a category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthAmount is an amount aggregated under a YYYY-MM month key.
type MonthAmount struct {
	Month  string `json:"month"`
	Amount Money  `json:"amount"`
}

// TotalsByType sums amounts per effective type over the whole list.
func TotalsByType(txs []Transaction) Totals {
	var t Totals
	for _, tx := range txs {
		if tx.EffectiveType() == Income {
			t.Income = t.Income.Add(tx.Amount)
		} else {
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// TotalsByWallet partitions by effective wallet first, then sums per type.
func TotalsByWallet(txs []Transaction) WalletTotals {
	var cash, bank []Transaction
	for _, tx := range txs {
		if tx.EffectiveWallet() == Bank {
			bank = append(bank, tx)
		} else {
			cash = append(cash, tx)
		}
	}
	return WalletTotals{Cash: TotalsByType(cash), Bank: TotalsByType(bank)}
}

func matchesType(t Transaction, typeFilter string) bool {
	return typeFilter == "" || typeFilter == TypeAll || string(t.EffectiveType()) == typeFilter
}

// GroupByCategory sums amounts per category over transactions of the
// given type. The result is sparse: categories with no matching
// transaction are absent. Order is descending by amount; exact ties
// keep first-encounter order, so repeated calls on the same input are
// stable.
func GroupByCategory(txs []Transaction, typeFilter string) []CategoryAmount {
	index := make(map[string]int)
	out := []CategoryAmount{}
	for _, t := range txs {
		if !matchesType(t, typeFilter) {
			continue
		}
		i, ok := index[t.Category]
		if !ok {
			i = len(out)
			index[t.Category] = i
			out = append(out, CategoryAmount{Name: t.Category})
		}
		out[i].Amount = out[i].Amount.Add(t.Amount)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.Cents > out[j].Amount.Cents
	})
	return out
}

// GroupByMonth sums amounts per YYYY-MM bucket over transactions of
// the given type, ascending chronologically. Buckets are derived from
// the date field; dateless records are skipped. Sparse: only months
// with at least one matching transaction appear.
func GroupByMonth(txs []Transaction, typeFilter string) []MonthAmount {
	sums := make(map[string]Money)
	for _, t := range txs {
		if !matchesType(t, typeFilter) {
			continue
		}
		key := t.Date.MonthKey()
		if key == "" {
			continue
		}
		sums[key] = sums[key].Add(t.Amount)
	}
	out := make([]MonthAmount, 0, len(sums))
	for key, sum := range sums {
		out = append(out, MonthAmount{Month: key, Amount: sum})
	}
	// YYYY-MM sorts chronologically as plain strings.
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}
