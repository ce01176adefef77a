package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"duit/internal/core"
	"duit/internal/store"
)

// archiveSchedule fires shortly after midnight on the first of every
// month, summarizing the month that just closed.
const archiveSchedule = "15 0 1 * *"

// Archiver freezes a summary of each closed month into the archive
// store.
type Archiver struct {
	store store.Store
	now   func() time.Time
}

func NewArchiver(st store.Store) *Archiver {
	return &Archiver{store: st, now: time.Now}
}

// Run builds and persists the archive for the month before ref.
// Archives are upserts, so re-running for the same month is safe.
func (a *Archiver) Run(ctx context.Context, ref time.Time) error {
	prev := ref.UTC().AddDate(0, -1, -ref.UTC().Day()+1)
	year, month := prev.Year(), int(prev.Month())

	txs, err := a.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions for archive: %w", err)
	}

	archive := core.BuildMonthlyArchive(txs, year, month, a.now().UTC())
	if err := a.store.SaveArchive(ctx, archive); err != nil {
		return fmt.Errorf("save archive %s: %w", archive.ID, err)
	}

	slog.InfoContext(ctx, "monthly archive saved",
		"id", archive.ID,
		"transactions", archive.TransactionCount,
		"expense_cents", archive.Totals.Expense.Cents)
	return nil
}

// Schedule registers the monthly job on the cron runner. The caller
// owns starting and stopping the runner.
func (a *Archiver) Schedule(ctx context.Context, c *cron.Cron) (cron.EntryID, error) {
	return c.AddFunc(archiveSchedule, func() {
		if err := a.Run(ctx, a.now()); err != nil {
			slog.ErrorContext(ctx, "monthly archive failed", "error", err)
		}
	})
}
