// Package http serves the JSON API the dashboard UI talks to. Read
// endpoints run the aggregation engine over the current store snapshot
// and memoize their marshaled responses; write endpoints go through the
// transaction service.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"duit/internal/cache"
	applog "duit/internal/log"
	"duit/internal/services"
	"duit/internal/store"
)

type Server struct {
	http.Server
	store       store.Store
	txs         *services.TransactionService
	logger      *applog.Logger
	rateLimiter *rateLimiter

	// statsCache holds marshaled responses keyed by endpoint, filter
	// and snapshot version. A version change makes every old key
	// unreachable, so the purge on publish only frees memory early.
	statsCache  *cache.LRUCache[[]byte]
	unsubscribe func()

	shutdownOnce sync.Once
}

// Options tunes the response cache. Zero values fall back to defaults
// suitable for tests.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
}

// NewServer wires routes and subscribes to the store so cached
// responses never outlive the data they were computed from.
func NewServer(addr string, st store.Store, txs *services.TransactionService, logger *applog.Logger, opts Options) *Server {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 256
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	mux := http.NewServeMux()
	s := &Server{
		Server:      http.Server{Addr: addr, Handler: mux},
		store:       st,
		txs:         txs,
		logger:      logger,
		rateLimiter: newRateLimiter(),
		statsCache:  cache.NewLRUCache[[]byte](opts.CacheSize, opts.CacheTTL),
	}
	s.unsubscribe = st.Subscribe(func(store.Snapshot) {
		s.statsCache.Purge()
	})

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.wrap(s.handleListTransactions))
	mux.HandleFunc("POST /api/transactions", s.wrap(s.handleCreateTransaction))
	mux.HandleFunc("GET /api/transactions/{id}", s.wrap(s.handleGetTransaction))
	mux.HandleFunc("PATCH /api/transactions/{id}", s.wrap(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /api/transactions/{id}", s.wrap(s.handleDeleteTransaction))

	mux.HandleFunc("GET /api/dashboard", s.wrap(s.handleDashboard))
	mux.HandleFunc("GET /api/stats/categories", s.wrap(s.handleStatsCategories))
	mux.HandleFunc("GET /api/stats/monthly", s.wrap(s.handleStatsMonthly))
	mux.HandleFunc("GET /api/stats/daily", s.wrap(s.handleStatsDaily))
	mux.HandleFunc("GET /api/stats/window", s.wrap(s.handleStatsWindow))

	mux.HandleFunc("GET /api/settings", s.wrap(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.wrap(s.handlePutSettings))

	mux.HandleFunc("GET /api/wishlist", s.wrap(s.handleListWishlist))
	mux.HandleFunc("POST /api/wishlist", s.wrap(s.handleAddWishlistItem))
	mux.HandleFunc("PATCH /api/wishlist/{id}", s.wrap(s.handleToggleWishlistItem))
	mux.HandleFunc("DELETE /api/wishlist/{id}", s.wrap(s.handleDeleteWishlistItem))

	mux.HandleFunc("GET /api/archives", s.wrap(s.handleListArchives))
	mux.HandleFunc("GET /api/export/csv", s.wrap(s.handleExportCSV))

	return s
}

// Handler exposes the routed handler for tests.
func (s *Server) Handler() http.Handler { return s.Server.Handler }

// RegisterCaches hands the response cache to a cleanup manager.
func (s *Server) RegisterCaches(m *cache.Manager) {
	m.Register(s.statsCache)
}

// Shutdown stops the rate limiter and detaches from the store before
// draining in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if _, err := s.store.Snapshot(ctx); err != nil {
		http.Error(w, "store not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
