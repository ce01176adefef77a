// Package mongo is the document-database backend. Transactions keep
// their wire shape (cents, YYYY-MM-DD date strings); ids are uuid
// strings stored as _id.
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"duit/internal/core"
	"duit/internal/store"
)

const (
	connectTimeout = 10 * time.Second
	pollInterval   = 30 * time.Second

	settingsID = "singleton"
)

type Store struct {
	store.Notifier

	client *mongo.Client
	db     *mongo.Database

	mu       sync.Mutex
	version  uint64
	lastHash uint64

	cancelWatch context.CancelFunc
	watchDone   chan struct{}
}

func New(ctx context.Context, uri, dbName string) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{
		client:    client,
		db:        client.Database(dbName),
		watchDone: make(chan struct{}),
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	s.cancelWatch = cancelWatch
	go s.watch(watchCtx)

	return s, nil
}

func (s *Store) Close() error {
	s.cancelWatch()
	<-s.watchDone
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) transactions() *mongo.Collection { return s.db.Collection("transactions") }
func (s *Store) settings() *mongo.Collection     { return s.db.Collection("settings") }
func (s *Store) wishlist() *mongo.Collection     { return s.db.Collection("wishlist") }
func (s *Store) archives() *mongo.Collection     { return s.db.Collection("monthly_archives") }

// watch follows the transactions change stream so writes from other
// processes invalidate local caches too. Standalone deployments have
// no oplog, so on error it degrades to polling.
func (s *Store) watch(ctx context.Context) {
	defer close(s.watchDone)

	stream, err := s.transactions().Watch(ctx, mongo.Pipeline{})
	if err != nil {
		slog.Warn("change streams unavailable, falling back to polling",
			"interval", pollInterval.String(), "error", err)
		s.poll(ctx)
		return
	}
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		s.bump(ctx)
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		slog.Warn("change stream closed, falling back to polling", "error", err)
		s.poll(ctx)
	}
}

func (s *Store) poll(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			txs, err := s.ListTransactions(ctx)
			if err != nil {
				slog.Warn("poll failed", "error", err)
				continue
			}
			h := hashTransactions(txs)
			s.mu.Lock()
			changed := h != s.lastHash
			s.lastHash = h
			s.mu.Unlock()
			if changed {
				s.bump(ctx)
			}
		}
	}
}

func hashTransactions(txs []core.Transaction) uint64 {
	h := fnv.New64a()
	for _, tx := range txs {
		fmt.Fprintf(h, "%s|%d|%s|%s|%s|%s|%s\n",
			tx.ID, tx.Amount.Cents, tx.Type, tx.Category, tx.Wallet, tx.Note, tx.Date.Key())
	}
	return h.Sum64()
}

func (s *Store) bump(ctx context.Context) {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		slog.WarnContext(ctx, "snapshot after change failed", "error", err)
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

type txDoc struct {
	ID          string    `bson:"_id"`
	AmountCents int64     `bson:"amount_cents"`
	Type        string    `bson:"type"`
	Category    string    `bson:"category"`
	Wallet      string    `bson:"wallet"`
	Note        string    `bson:"note,omitempty"`
	Date        string    `bson:"date,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func toDoc(tx core.Transaction) txDoc {
	return txDoc{
		ID:          tx.ID,
		AmountCents: tx.Amount.Cents,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Wallet:      string(tx.Wallet),
		Note:        tx.Note,
		Date:        tx.Date.Key(),
		CreatedAt:   tx.CreatedAt,
	}
}

func (d txDoc) toCore() core.Transaction {
	return core.Transaction{
		ID:        d.ID,
		Amount:    core.Money{Cents: d.AmountCents},
		Type:      core.TxType(d.Type),
		Category:  d.Category,
		Wallet:    core.Wallet(d.Wallet),
		Note:      d.Note,
		Date:      core.ParseDate(d.Date),
		CreatedAt: d.CreatedAt.UTC(),
	}.Normalized()
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	cur, err := s.transactions().Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer cur.Close(ctx)

	var docs []txDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]core.Transaction, len(docs))
	for i, d := range docs {
		out[i] = d.toCore()
	}
	store.SortForListing(out)
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	var d txDoc
	err := s.transactions().FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return d.toCore(), nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	tx = tx.Normalized()

	if _, err := s.transactions().InsertOne(ctx, toDoc(tx)); err != nil {
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

	res, err := s.transactions().ReplaceOne(ctx, bson.M{"_id": id}, toDoc(tx))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.Transaction{}, store.ErrNotFound
	}

	s.bump(ctx)
	return tx, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.transactions().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}

	s.bump(ctx)
	return nil
}

type settingsDoc struct {
	ID                 string `bson:"_id"`
	SavingAmountCents  *int64 `bson:"saving_amount_cents,omitempty"`
	MonthlyBudgetCents int64  `bson:"monthly_budget_cents"`
}

func (s *Store) Settings(ctx context.Context) (core.Settings, error) {
	var d settingsDoc
	err := s.settings().FindOne(ctx, bson.M{"_id": settingsID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Settings{}, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("read settings: %w", err)
	}

	out := core.Settings{MonthlyBudget: core.Money{Cents: d.MonthlyBudgetCents}}
	if d.SavingAmountCents != nil {
		out.SavingAmount = &core.Money{Cents: *d.SavingAmountCents}
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings core.Settings) error {
	d := settingsDoc{ID: settingsID, MonthlyBudgetCents: settings.MonthlyBudget.Cents}
	if settings.SavingAmount != nil {
		cents := settings.SavingAmount.Cents
		d.SavingAmountCents = &cents
	}
	_, err := s.settings().ReplaceOne(ctx, bson.M{"_id": settingsID}, d,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

type wishlistDoc struct {
	ID         string    `bson:"_id"`
	Name       string    `bson:"name"`
	PriceCents int64     `bson:"price_cents"`
	Done       bool      `bson:"done"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (s *Store) ListWishlist(ctx context.Context) ([]core.WishlistItem, error) {
	cur, err := s.wishlist().Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	defer cur.Close(ctx)

	var docs []wishlistDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}

	out := make([]core.WishlistItem, len(docs))
	for i, d := range docs {
		out[i] = core.WishlistItem{
			ID:        d.ID,
			Name:      d.Name,
			Price:     core.Money{Cents: d.PriceCents},
			Done:      d.Done,
			CreatedAt: d.CreatedAt.UTC(),
		}
	}
	return out, nil
}

func (s *Store) AddWishlistItem(ctx context.Context, item core.WishlistItem) (core.WishlistItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	_, err := s.wishlist().InsertOne(ctx, wishlistDoc{
		ID:         item.ID,
		Name:       item.Name,
		PriceCents: item.Price.Cents,
		Done:       item.Done,
		CreatedAt:  item.CreatedAt,
	})
	if err != nil {
		return core.WishlistItem{}, fmt.Errorf("add wishlist item: %w", err)
	}
	return item, nil
}

func (s *Store) ToggleWishlistItem(ctx context.Context, id string) (core.WishlistItem, error) {
	// Mongo has no boolean-flip update operator, so read then write;
	// the last writer wins, which is fine for a checklist.
	var d wishlistDoc
	err := s.wishlist().FindOne(ctx, bson.M{"_id": id}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.WishlistItem{}, store.ErrNotFound
	}
	if err != nil {
		return core.WishlistItem{}, fmt.Errorf("toggle wishlist item: %w", err)
	}
	d.Done = !d.Done
	if _, err := s.wishlist().ReplaceOne(ctx, bson.M{"_id": id}, d); err != nil {
		return core.WishlistItem{}, fmt.Errorf("toggle wishlist item: %w", err)
	}
	return core.WishlistItem{
		ID:        d.ID,
		Name:      d.Name,
		Price:     core.Money{Cents: d.PriceCents},
		Done:      d.Done,
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

func (s *Store) DeleteWishlistItem(ctx context.Context, id string) error {
	res, err := s.wishlist().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete wishlist item: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

type archiveDoc struct {
	ID         string    `bson:"_id"`
	Year       int       `bson:"year"`
	Month      int       `bson:"month"`
	Payload    string    `bson:"payload"`
	ArchivedAt time.Time `bson:"archived_at"`
}

func (s *Store) SaveArchive(ctx context.Context, a core.MonthlyArchive) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}
	_, err = s.archives().ReplaceOne(ctx, bson.M{"_id": a.ID}, archiveDoc{
		ID:         a.ID,
		Year:       a.Year,
		Month:      a.Month,
		Payload:    string(payload),
		ArchivedAt: a.ArchivedAt,
	}, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

func (s *Store) ListArchives(ctx context.Context) ([]core.MonthlyArchive, error) {
	cur, err := s.archives().Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer cur.Close(ctx)

	var docs []archiveDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode archives: %w", err)
	}

	out := make([]core.MonthlyArchive, len(docs))
	for i, d := range docs {
		var a core.MonthlyArchive
		if err := json.Unmarshal([]byte(d.Payload), &a); err != nil {
			return nil, fmt.Errorf("decode archive %s: %w", d.ID, err)
		}
		out[i] = a
	}
	return out, nil
}
