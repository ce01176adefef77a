package core

import (
	"testing"
	"time"
)

func TestParseDateDegradesToZero(t *testing.T) {
	if d := ParseDate("2024-06-15"); d.Key() != "2024-06-15" {
		t.Fatalf("expected 2024-06-15, got %q", d.Key())
	}
	for _, in := range []string{"", "not-a-date", "2024-13-40", "15/06/2024"} {
		if d := ParseDate(in); !d.IsZero() {
			t.Errorf("ParseDate(%q) should be zero, got %v", in, d)
		}
	}
}

func TestNormalizedDefaults(t *testing.T) {
	tx := Transaction{Amount: Money{Cents: 200}}
	n := tx.Normalized()
	if n.Type != Expense {
		t.Errorf("missing type should default to expense, got %q", n.Type)
	}
	if n.Wallet != Cash {
		t.Errorf("missing wallet should default to cash, got %q", n.Wallet)
	}
	// The original is untouched.
	if tx.Type != "" || tx.Wallet != "" {
		t.Error("Normalized must not mutate its receiver")
	}
}

func TestTransactionValidate(t *testing.T) {
	valid := Transaction{
		Amount:   Money{Cents: 10000},
		Type:     Expense,
		Category: "Food & Drink",
		Wallet:   Cash,
		Date:     NewDate(2024, 6, 1),
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid transaction rejected: %v", err)
	}

	zeroAmount := valid
	zeroAmount.Amount = Money{}
	if err := zeroAmount.Validate(); err != nil {
		t.Fatalf("zero amount is valid input: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"negative amount", func(tx *Transaction) { tx.Amount = Money{Cents: -5} }, ErrInvalidAmount},
		{"bad type", func(tx *Transaction) { tx.Type = "transfer" }, ErrInvalidType},
		{"bad wallet", func(tx *Transaction) { tx.Wallet = "crypto" }, ErrInvalidWallet},
		{"empty category", func(tx *Transaction) { tx.Category = "  " }, ErrEmptyCategory},
		{"zero date", func(tx *Transaction) { tx.Date = Date{} }, ErrInvalidDate},
	}
	for _, tc := range cases {
		tx := valid
		tc.mutate(&tx)
		if err := tx.Validate(); err != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 2, 29)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"2024-02-29"` {
		t.Fatalf("unexpected encoding %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatal(err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip mismatch: %v != %v", back, d)
	}

	var zero Date
	if err := zero.UnmarshalJSON([]byte(`"bogus"`)); err != nil {
		t.Fatalf("malformed date must not error: %v", err)
	}
	if !zero.IsZero() {
		t.Error("malformed date should decode to zero")
	}
}

func TestDateOfTruncates(t *testing.T) {
	instant := time.Date(2024, 6, 15, 23, 45, 12, 0, time.UTC)
	if got := DateOf(instant).Key(); got != "2024-06-15" {
		t.Errorf("DateOf = %q, want 2024-06-15", got)
	}
}
