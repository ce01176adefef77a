// Package sqlite is the file-backed store. Dates are stored as
// YYYY-MM-DD text with "" meaning dateless, timestamps as RFC 3339.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"duit/internal/core"
	"duit/internal/store"
)

type Store struct {
	store.Notifier

	db *sql.DB

	// version counts mutations made through this process. The store is
	// the single writer in a deployment, so a process-local counter is
	// enough for cache invalidation.
	mu      sync.Mutex
	version uint64
}

func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// bump advances the version and publishes a fresh snapshot. Mutations
// call it after their write commits.
func (s *Store) bump(ctx context.Context) {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "snapshot after write failed", "error", err)
		return
	}
	s.Publish(snap)
}

func (s *Store) Snapshot(ctx context.Context) (store.Snapshot, error) {
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	txs, err := s.ListTransactions(ctx)
	if err != nil {
		return store.Snapshot{}, err
	}
	return store.Snapshot{Version: version, Transactions: txs}, nil
}

const txColumns = "id, amount_cents, type, category, wallet, note, tx_date, created_at"

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+txColumns+" FROM transactions")
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	store.SortForListing(out)
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+txColumns+" FROM transactions WHERE id = ?", id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, err
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx = tx.Normalized()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO transactions ("+txColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.Amount.Cents, string(tx.Type), tx.Category, string(tx.Wallet),
		tx.Note, tx.Date.Key(), tx.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "transaction saved",
		"id", tx.ID,
		"type", tx.Type,
		"category", tx.Category,
		"amount_cents", tx.Amount.Cents)

	s.bump(ctx)
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, id string, patch store.TransactionPatch) (core.Transaction, error) {
	current, err := s.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := patch.Apply(current).Normalized()

	_, err = s.db.ExecContext(ctx,
		`UPDATE transactions
		 SET amount_cents = ?, type = ?, category = ?, wallet = ?, note = ?, tx_date = ?
		 WHERE id = ?`,
		tx.Amount.Cents, string(tx.Type), tx.Category, string(tx.Wallet),
		tx.Note, tx.Date.Key(), id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.bump(ctx)
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}

	s.bump(ctx)
	return nil
}

func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT saving_amount_cents, monthly_budget_cents FROM settings WHERE id = 1")

	var saving sql.NullInt64
	var budget int64
	err := row.Scan(&saving, &budget)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	out := core.Settings{MonthlyBudget: core.Money{Cents: budget}}
	if saving.Valid {
		out.SavingAmount = &core.Money{Cents: saving.Int64}
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.Settings) error {
	var saving sql.NullInt64
	if settings.SavingAmount != nil {
		saving = sql.NullInt64{Int64: settings.SavingAmount.Cents, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (id, saving_amount_cents, monthly_budget_cents) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET saving_amount_cents = excluded.saving_amount_cents,
		                               monthly_budget_cents = excluded.monthly_budget_cents`,
		saving, settings.MonthlyBudget.Cents)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) ListWishlist(ctx context.Context) ([]core.WishlistItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, price_cents, done, created_at FROM wishlist ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer rows.Close()

	var out []core.WishlistItem
	for rows.Next() {
		var item core.WishlistItem
		var done int
		var createdAt string
		if err := rows.Scan(&item.ID, &item.Name, &item.Price.Cents, &done, &createdAt); err != nil {
			return nil, fmt.Errorf("scan wishlist item: %w", err)
		}
		item.Done = done != 0
		item.CreatedAt = parseTimestamp(createdAt)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) AddWishlistItem(ctx context.Context, item core.WishlistItem) (core.WishlistItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO wishlist (id, name, price_cents, done, created_at) VALUES (?, ?, ?, ?, ?)",
		item.ID, item.Name, item.Price.Cents, boolToInt(item.Done), item.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return core.WishlistItem{}, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

func (s *Store) ToggleWishlistItem(ctx context.Context, id string) (core.WishlistItem, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE wishlist SET done = NOT done WHERE id = ?", id)
	if err != nil {
		return core.WishlistItem{}, fmt.Errorf("toggle wishlist item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.WishlistItem{}, err
	} else if n == 0 {
		return core.WishlistItem{}, store.ErrNotFound
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, price_cents, done, created_at FROM wishlist WHERE id = ?", id)
	var item core.WishlistItem
	var done int
	var createdAt string
	if err := row.Scan(&item.ID, &item.Name, &item.Price.Cents, &done, &createdAt); err != nil {
		return core.WishlistItem{}, fmt.Errorf("reread wishlist item: %w", err)
	}
	item.Done = done != 0
	item.CreatedAt = parseTimestamp(createdAt)
	return item, nil
}

func (s *Store) DeleteWishlistItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM wishlist WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) SaveArchive(ctx context.Context, a core.MonthlyArchive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO monthly_archives (id, year, month, payload, archived_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, archived_at = excluded.archived_at`,
		a.ID, a.Year, a.Month, string(payload), a.ArchivedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

func (s *Store) ListArchives(ctx context.Context) ([]core.MonthlyArchive, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM monthly_archives ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var out []core.MonthlyArchive
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		var a core.MonthlyArchive
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("decode archive: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var tx core.Transaction
	var typ, wallet, date, createdAt string
	err := row.Scan(&tx.ID, &tx.Amount.Cents, &typ, &tx.Category, &wallet, &tx.Note, &date, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.Type = core.TxType(typ)
	tx.Wallet = core.Wallet(wallet)
	tx.Date = core.ParseDate(date)
	tx.CreatedAt = parseTimestamp(createdAt)
	return tx.Normalized(), nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
