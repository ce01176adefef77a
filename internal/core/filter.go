package core

import "strings"

// Filter narrows a transaction list before aggregation or export.
// Every predicate left at its zero value matches everything; set
// predicates are ANDed.
type Filter struct {
	// Type is "all", "income" or "expense". Empty behaves like "all".
	Type string
	// Category is "all" or an exact category name. Empty behaves like "all".
	Category string
	// Search is a case-insensitive substring matched against the note.
	Search string
	// From and To bound the transaction date, inclusive on both ends.
	// A zero Date leaves that side unbounded.
	From Date
	To   Date
}

// Matches reports whether a single transaction passes every predicate.
// Date comparison uses the transaction's date field, never createdAt;
// a dateless record fails any set date bound.
func (f Filter) Matches(t Transaction) bool {
	if f.Type != "" && f.Type != TypeAll && string(t.EffectiveType()) != f.Type {
		return false
	}
	if f.Category != "" && f.Category != TypeAll && t.Category != f.Category {
		return false
	}
	if f.Search != "" {
		if t.Note == "" || !strings.Contains(strings.ToLower(t.Note), strings.ToLower(f.Search)) {
			return false
		}
	}
	if !f.From.IsZero() {
		if t.Date.IsZero() || t.Date.Before(f.From.Time) {
			return false
		}
	}
	if !f.To.IsZero() {
		if t.Date.IsZero() || t.Date.After(f.To.Time) {
			return false
		}
	}
	return true
}

// ApplyFilters returns the transactions passing the filter, in input
// order. The input slice is never modified.
func ApplyFilters(txs []Transaction, f Filter) []Transaction {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// Key renders the filter as a stable cache-key fragment.
func (f Filter) Key() string {
	return strings.Join([]string{
		f.Type, f.Category, strings.ToLower(f.Search), f.From.Key(), f.To.Key(),
	}, "|")
}
