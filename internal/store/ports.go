// Package store defines the persistence ports the rest of the
// application depends on. Backends live in subpackages; each one
// normalizes records on read so the aggregation code never sees an
// empty type or wallet.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"duit/internal/core"
)

// ErrNotFound is returned when a record id does not exist.
var ErrNotFound = errors.New("not found")

// Snapshot is an immutable view of the whole transaction list. Version
// increases on every mutation; consumers use it to invalidate caches.
type Snapshot struct {
	Version      uint64
	Transactions []core.Transaction
}

// SnapshotSource hands out snapshots and pushes change notifications.
type SnapshotSource interface {
	// Snapshot returns the current version and transaction list. The
	// returned slice is owned by the caller.
	Snapshot(ctx context.Context) (Snapshot, error)
	// Subscribe registers fn to run after every mutation. The returned
	// function unsubscribes; it is safe to call more than once.
	Subscribe(fn func(Snapshot)) (unsubscribe func())
}

// TransactionPatch is a partial update. Nil fields keep their stored
// value; a non-nil zero Date clears the date.
type TransactionPatch struct {
	Amount   *core.Money
	Type     *core.TxType
	Category *string
	Wallet   *core.Wallet
	Note     *string
	Date     *core.Date
}

// Apply returns the transaction with the set fields replaced.
func (p TransactionPatch) Apply(tx core.Transaction) core.Transaction {
	if p.Amount != nil {
		tx.Amount = *p.Amount
	}
	if p.Type != nil {
		tx.Type = *p.Type
	}
	if p.Category != nil {
		tx.Category = *p.Category
	}
	if p.Wallet != nil {
		tx.Wallet = *p.Wallet
	}
	if p.Note != nil {
		tx.Note = *p.Note
	}
	if p.Date != nil {
		tx.Date = *p.Date
	}
	return tx
}

type TransactionStore interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

type SettingsStore interface {
	// Settings returns the singleton, creating it with zero values on
	// first read.
	Settings(ctx context.Context) (core.Settings, error)
	SaveSettings(ctx context.Context, s core.Settings) error
}

type WishlistStore interface {
	ListWishlist(ctx context.Context) ([]core.WishlistItem, error)
	AddWishlistItem(ctx context.Context, item core.WishlistItem) (core.WishlistItem, error)
	ToggleWishlistItem(ctx context.Context, id string) (core.WishlistItem, error)
	DeleteWishlistItem(ctx context.Context, id string) error
}

type ArchiveStore interface {
	SaveArchive(ctx context.Context, a core.MonthlyArchive) error
	ListArchives(ctx context.Context) ([]core.MonthlyArchive, error)
}

// Store is the full backend surface the application wires up.
type Store interface {
	SnapshotSource
	TransactionStore
	SettingsStore
	WishlistStore
	ArchiveStore
	Close() error
}

// SortForListing orders transactions for display: newest date first,
// dateless records last, CreatedAt as tiebreak, then id so the order
// is fully deterministic.
func SortForListing(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		a, b := txs[i], txs[j]
		switch {
		case a.Date.IsZero() != b.Date.IsZero():
			return !a.Date.IsZero()
		case !a.Date.Equal(b.Date.Time):
			return a.Date.After(b.Date.Time)
		case !a.CreatedAt.Equal(b.CreatedAt):
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.ID > b.ID
		}
	})
}

// Notifier is the Subscribe half of SnapshotSource, shared by all
// backends.
type Notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Snapshot)
}

func (n *Notifier) Subscribe(fn func(Snapshot)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[int]func(Snapshot))
	}
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// Publish runs every subscriber with the snapshot, synchronously and
// outside any backend lock.
func (n *Notifier) Publish(s Snapshot) {
	n.mu.Lock()
	fns := make([]func(Snapshot), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}
