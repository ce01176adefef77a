// Package memory is an in-process backend used for tests and for
// running without external services.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"duit/internal/core"
	"duit/internal/store"
)

type Store struct {
	store.Notifier

	mu       sync.RWMutex
	version  uint64
	txs      map[string]core.Transaction
	settings core.Settings
	wishlist map[string]core.WishlistItem
	archives map[string]core.MonthlyArchive
}

func New() *Store {
	return &Store{
		txs:      make(map[string]core.Transaction),
		wishlist: make(map[string]core.WishlistItem),
		archives: make(map[string]core.MonthlyArchive),
	}
}

// Seed loads transactions without bumping the version or notifying.
func (s *Store) Seed(txs []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		s.txs[tx.ID] = tx.Normalized()
	}
}

func (s *Store) Snapshot(_ context.Context) (store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

func (s *Store) snapshotLocked() store.Snapshot {
	out := make([]core.Transaction, 0, len(s.txs))
	for _, tx := range s.txs {
		out = append(out, tx)
	}
	store.SortForListing(out)
	return store.Snapshot{Version: s.version, Transactions: out}
}

// bump must be called with the write lock held; it returns the
// snapshot to publish after the lock is released.
func (s *Store) bump() store.Snapshot {
	s.version++
	return s.snapshotLocked()
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Transactions, nil
}

func (s *Store) GetTransaction(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx = tx.Normalized()

	s.mu.Lock()
	s.txs[tx.ID] = tx
	snap := s.bump()
	s.mu.Unlock()

	s.Publish(snap)
	return tx, nil
}

func (s *Store) UpdateTransaction(_ context.Context, id string, patch store.TransactionPatch) (core.Transaction, error) {
	s.mu.Lock()
	tx, ok := s.txs[id]
	if !ok {
		s.mu.Unlock()
		return core.Transaction{}, store.ErrNotFound
	}
	tx = patch.Apply(tx).Normalized()
	s.txs[id] = tx
	snap := s.bump()
	s.mu.Unlock()

	s.Publish(snap)
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.txs[id]; !ok {
		s.mu.Unlock()
		return store.ErrNotFound
	}
	delete(s.txs, id)
	snap := s.bump()
	s.mu.Unlock()

	s.Publish(snap)
	return nil
}

func (s *Store) Settings(_ context.Context) (core.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings core.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *Store) ListWishlist(_ context.Context) ([]core.WishlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.WishlistItem, 0, len(s.wishlist))
	for _, item := range s.wishlist {
		out = append(out, item)
	}
	sortWishlist(out)
	return out, nil
}

func (s *Store) AddWishlistItem(_ context.Context, item core.WishlistItem) (core.WishlistItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wishlist[item.ID] = item
	return item, nil
}

func (s *Store) ToggleWishlistItem(_ context.Context, id string) (core.WishlistItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.wishlist[id]
	if !ok {
		return core.WishlistItem{}, store.ErrNotFound
	}
	item.Done = !item.Done
	s.wishlist[id] = item
	return item, nil
}

func (s *Store) DeleteWishlistItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wishlist[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.wishlist, id)
	return nil
}

func (s *Store) SaveArchive(_ context.Context, a core.MonthlyArchive) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[a.ID] = a
	return nil
}

func (s *Store) ListArchives(_ context.Context) ([]core.MonthlyArchive, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.MonthlyArchive, 0, len(s.archives))
	for _, a := range s.archives {
		out = append(out, a)
	}
	sortArchives(out)
	return out, nil
}

func (s *Store) Close() error { return nil }
