package core

import (
	"strings"
	"time"
)

// WishlistItem is a checklist entry for a planned purchase.
type WishlistItem struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     Money     `json:"price"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"created_at"`
}

func (w WishlistItem) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyName
	}
	if len(w.Name) > 200 {
		return ErrNoteTooLong
	}
	if w.Price.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}
