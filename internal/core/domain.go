package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"

	Cash Wallet = "cash"
	Bank Wallet = "bank"

	// TypeAll is the wildcard accepted wherever a type filter is expected.
	TypeAll = "all"
)

type (
	// TxType is the direction of a transaction. The empty value is
	// treated as Expense everywhere.
	TxType string

	// Wallet is the sub-account a transaction is attributed to. The
	// empty value is treated as Cash everywhere.
	Wallet string

	// Date is a calendar date at day granularity, stored as UTC
	// midnight. The zero Date means "no usable date": records whose date
	// failed to parse carry a zero Date and are excluded from
	// date-bucketed aggregations.
	Date struct {
		time.Time
	}

	// Transaction is a single recorded income or expense event.
	Transaction struct {
		ID        string    `json:"id"`
		Amount    Money     `json:"amount"`
		Type      TxType    `json:"type"`
		Category  string    `json:"category"`
		Wallet    Wallet    `json:"wallet"`
		Note      string    `json:"note,omitempty"`
		Date      Date      `json:"date"`
		CreatedAt time.Time `json:"created_at"`
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidType   = errors.New("invalid transaction type")
	ErrInvalidWallet = errors.New("invalid wallet")
	ErrEmptyCategory = errors.New("empty category")
	ErrNoteTooLong   = errors.New("note too long (max 200 characters)")
	ErrEmptyName     = errors.New("empty name")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar date in UTC.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

// ParseDate parses a YYYY-MM-DD string. Unparseable input yields the
// zero Date rather than an error: a bad date degrades the record to
// "dateless", it never fails an operation.
func ParseDate(s string) Date {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}
	}
	return Date{Time: t.UTC()}
}

// Key returns the canonical YYYY-MM-DD form, or "" for the zero Date.
func (d Date) Key() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// MonthKey returns the YYYY-MM bucket key, or "" for the zero Date.
func (d Date) MonthKey() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// InMonth reports whether the date falls in the given year and month.
// The zero Date is in no month.
func (d Date) InMonth(year, month int) bool {
	if d.IsZero() {
		return false
	}
	return d.Year() == year && int(d.Month()) == month
}

// SameMonth reports whether both dates fall in the same year and month.
func (d Date) SameMonth(o Date) bool {
	if o.IsZero() {
		return false
	}
	return d.InMonth(o.Year(), int(o.Month()))
}

// MarshalJSON emits the date as "YYYY-MM-DD", or null when zero.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// UnmarshalJSON accepts "YYYY-MM-DD" and degrades everything else
// (null, malformed strings, wrong types) to the zero Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	*d = ParseDate(s)
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Valid reports whether the type is one of the known values. The empty
// string is valid because it normalizes to Expense.
func (t TxType) Valid() bool {
	return t == "" || t == Income || t == Expense
}

// Valid reports whether the wallet is one of the known values. The
// empty string is valid because it normalizes to Cash.
func (w Wallet) Valid() bool {
	return w == "" || w == Cash || w == Bank
}

// EffectiveType returns the type with the missing-value default applied.
func (t Transaction) EffectiveType() TxType {
	if t.Type == Income {
		return Income
	}
	return Expense
}

// EffectiveWallet returns the wallet with the missing-value default applied.
func (t Transaction) EffectiveWallet() Wallet {
	if t.Wallet == Bank {
		return Bank
	}
	return Cash
}

// Normalized returns a copy with the type and wallet defaults made
// explicit. Stores normalize every record on read so downstream code
// never sees an empty type or wallet.
func (t Transaction) Normalized() Transaction {
	t.Type = t.EffectiveType()
	t.Wallet = t.EffectiveWallet()
	return t
}

// Validate checks a transaction submitted through the write path.
// Stored records are never re-validated: aggregation degrades bad
// fields instead of rejecting them.
func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Wallet.Valid() {
		return ErrInvalidWallet
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Note) > 200 {
		return ErrNoteTooLong
	}
	return t.Date.Validate()
}
