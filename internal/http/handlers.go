package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"duit/internal/core"
	"duit/internal/export"
	applog "duit/internal/log"
	"duit/internal/store"
)

// respondCached serves a memoized read endpoint. The key carries the
// snapshot version, so stale entries are never served after a write.
func (s *Server) respondCached(w http.ResponseWriter, r *http.Request, key string, build func(store.Snapshot) any) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "snapshot read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	key = fmt.Sprintf("%s|v%d", key, snap.Version)
	if body, ok := s.statsCache.Get(key); ok {
		writeJSONRaw(w, http.StatusOK, body)
		return
	}

	body, err := json.Marshal(build(snap))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.statsCache.Set(key, body)
	writeJSONRaw(w, http.StatusOK, body)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r.URL.Query())
	s.respondCached(w, r, "transactions|"+f.Key(), func(snap store.Snapshot) any {
		txs := core.ApplyFilters(snap.Transactions, f)
		store.SortForListing(txs)
		return txs
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeBody(r, &tx); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	// Server-assigned fields.
	tx.ID = ""
	tx.CreatedAt = time.Time{}
	tx.Note = sanitizeInput(tx.Note)
	tx.Category = sanitizeInput(tx.Category)

	created, err := s.txs.Create(r.Context(), tx)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

type transactionPatchRequest struct {
	Amount   *core.Money  `json:"amount"`
	Type     *core.TxType `json:"type"`
	Category *string      `json:"category"`
	Wallet   *core.Wallet `json:"wallet"`
	Note     *string      `json:"note"`
	Date     *core.Date   `json:"date"`
}

func (p transactionPatchRequest) validate() error {
	if p.Amount != nil {
		if err := p.Amount.Validate(); err != nil {
			return err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return core.ErrInvalidType
	}
	if p.Wallet != nil && !p.Wallet.Valid() {
		return core.ErrInvalidWallet
	}
	if p.Category != nil && strings.TrimSpace(*p.Category) == "" {
		return core.ErrEmptyCategory
	}
	if p.Note != nil && len(*p.Note) > 200 {
		return core.ErrNoteTooLong
	}
	return nil
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionPatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.validate(); err != nil {
		writeStoreError(w, err)
		return
	}

	patch := store.TransactionPatch{
		Amount:   req.Amount,
		Type:     req.Type,
		Category: req.Category,
		Wallet:   req.Wallet,
		Note:     req.Note,
		Date:     req.Date,
	}
	updated, err := s.txs.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.txs.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type dashboardResponse struct {
	Totals     core.Totals           `json:"totals"`
	Wallets    core.WalletTotals     `json:"wallets"`
	Categories []core.CategoryAmount `json:"categories"`
	Budget     core.BudgetStatus     `json:"budget"`
	Savings    core.Savings          `json:"savings"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	f := filterFromQuery(r.URL.Query())
	today := core.DateOf(time.Now())

	// Settings and the calendar month feed the response, so both are
	// part of the key alongside the snapshot version.
	saving := int64(-1)
	if settings.SavingAmount != nil {
		saving = settings.SavingAmount.Cents
	}
	key := fmt.Sprintf("dashboard|%s|%s|b%d|s%d",
		f.Key(), today.MonthKey(), settings.MonthlyBudget.Cents, saving)

	s.respondCached(w, r, key, func(snap store.Snapshot) any {
		filtered := core.ApplyFilters(snap.Transactions, f)
		totals := core.TotalsByType(filtered)
		// Budget tracking always means the current calendar month over
		// the whole dataset, no matter what view filters are active.
		// Derived savings follow the filtered balance instead.
		monthly := core.MonthlyExpense(snap.Transactions, today)
		return dashboardResponse{
			Totals:     totals,
			Wallets:    core.TotalsByWallet(filtered),
			Categories: core.GroupByCategory(filtered, string(core.Expense)),
			Budget:     core.DeriveBudgetStatus(settings.MonthlyBudget, monthly),
			Savings:    core.DeriveSavings(settings.SavingAmount, totals),
		}
	})
}

func (s *Server) handleStatsCategories(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r.URL.Query())
	typeFilter := f.Type
	s.respondCached(w, r, "stats/categories|"+f.Key(), func(snap store.Snapshot) any {
		f := f
		f.Type = "" // the type filter is applied during grouping
		return core.GroupByCategory(core.ApplyFilters(snap.Transactions, f), typeFilter)
	})
}

func (s *Server) handleStatsMonthly(w http.ResponseWriter, r *http.Request) {
	f := filterFromQuery(r.URL.Query())
	typeFilter := f.Type
	s.respondCached(w, r, "stats/monthly|"+f.Key(), func(snap store.Snapshot) any {
		f := f
		f.Type = ""
		return core.GroupByMonth(core.ApplyFilters(snap.Transactions, f), typeFilter)
	})
}

func (s *Server) handleStatsDaily(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	year, month := now.Year(), int(now.Month())
	q := r.URL.Query()
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = m
	}
	typeFilter := strings.TrimSpace(q.Get("type"))

	key := fmt.Sprintf("stats/daily|%d-%d|%s", year, month, typeFilter)
	s.respondCached(w, r, key, func(snap store.Snapshot) any {
		return core.DailySeriesForMonth(snap.Transactions, year, month, typeFilter)
	})
}

func (s *Server) handleStatsWindow(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	days := 30
	if v := strings.TrimSpace(q.Get("days")); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 || d > 366 {
			writeError(w, http.StatusBadRequest, "invalid days")
			return
		}
		days = d
	}
	end := core.DateOf(time.Now())
	if v := strings.TrimSpace(q.Get("end")); v != "" {
		end = core.ParseDate(v)
		if end.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
	}
	f := filterFromQuery(q)

	key := fmt.Sprintf("stats/window|%d|%s|%s", days, end.Key(), f.Key())
	s.respondCached(w, r, key, func(snap store.Snapshot) any {
		return core.RollingWindowSeries(snap.Transactions, days, end, f)
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.Settings(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	prior, err := s.store.Settings(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var settings core.Settings
	if err := decodeBody(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if settings.MonthlyBudget.Cents < 0 ||
		(settings.SavingAmount != nil && settings.SavingAmount.Cents < 0) {
		writeError(w, http.StatusUnprocessableEntity, core.ErrInvalidAmount.Error())
		return
	}

	if err := s.store.SaveSettings(r.Context(), settings); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "settings save failed", "error", err)
		// The previous value still stands; return it so the client can
		// roll back its optimistic update.
		writeJSON(w, http.StatusBadGateway, prior)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleListWishlist(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListWishlist(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAddWishlistItem(w http.ResponseWriter, r *http.Request) {
	var item core.WishlistItem
	if err := decodeBody(r, &item); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	item.ID = ""
	item.Done = false
	item.Name = sanitizeInput(item.Name)
	if err := item.Validate(); err != nil {
		writeStoreError(w, err)
		return
	}

	created, err := s.store.AddWishlistItem(r.Context(), item)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleToggleWishlistItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.ToggleWishlistItem(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteWishlistItem(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteWishlistItem(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListArchives(w http.ResponseWriter, r *http.Request) {
	archives, err := s.store.ListArchives(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, archives)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	snap, err := s.store.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	txs := core.ApplyFilters(snap.Transactions, filterFromQuery(r.URL.Query()))
	store.SortForListing(txs)

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.CSVFilename(time.Now())+`"`)
	if err := export.WriteCSV(w, txs); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "csv export failed", "error", err)
	}
}

// sanitizeInput trims whitespace and strips control characters except
// tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
