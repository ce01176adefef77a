// Package worker runs the background half of the system: mirroring
// transactions to the spreadsheet and freezing monthly archives.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"duit/internal/amqp"
	"duit/internal/export"
	"duit/internal/store"
)

// SyncWorker consumes sync messages and applies them to the mirror.
// Messages carry only the id; the current record is always fetched
// fresh from the store, so a burst of edits collapses into the final
// state.
type SyncWorker struct {
	store  store.TransactionStore
	mirror export.Mirror
}

func NewSyncWorker(st store.TransactionStore, mirror export.Mirror) *SyncWorker {
	return &SyncWorker{store: st, mirror: mirror}
}

// HandleMessage processes one sync message. Returning an error
// requeues the message.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "processing sync message", "id", msg.ID, "action", msg.Action)

	switch msg.Action {
	case amqp.ActionDelete:
		if err := w.mirror.RemoveTransaction(ctx, msg.ID); err != nil {
			return fmt.Errorf("remove from mirror: %w", err)
		}
		return nil

	case amqp.ActionUpsert:
		tx, err := w.store.GetTransaction(ctx, msg.ID)
		if errors.Is(err, store.ErrNotFound) {
			// Deleted between publish and consume: the delete message
			// that follows will clean up the mirror.
			slog.WarnContext(ctx, "transaction vanished before sync", "id", msg.ID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		if err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			return fmt.Errorf("upsert to mirror: %w", err)
		}
		return nil

	default:
		// Unknown actions are dropped, not requeued.
		slog.WarnContext(ctx, "unknown sync action", "id", msg.ID, "action", msg.Action)
		return nil
	}
}

// StartupSync pushes every stored transaction to the mirror. Run once
// at worker startup to recover from missed messages or downtime.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	txs, err := w.store.ListTransactions(ctx)
	if err != nil {
		return fmt.Errorf("list transactions for startup sync: %w", err)
	}

	synced, failed := 0, 0
	for _, tx := range txs {
		if err := w.mirror.UpsertTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "startup sync failed for transaction",
				"id", tx.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "startup sync completed",
		"total", len(txs), "synced", synced, "errors", failed)
	return nil
}
