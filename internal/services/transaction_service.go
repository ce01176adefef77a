// Package services orchestrates the write path: persist first, then
// fan out side effects that must not fail the request.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"duit/internal/amqp"
	"duit/internal/core"
	"duit/internal/store"
)

// SyncPublisher is the slice of the AMQP client the service needs.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id, action string) error
}

// TransactionService validates and persists transactions, then
// publishes sync messages for the spreadsheet mirror. Publishing is
// best effort: the local write already succeeded.
type TransactionService struct {
	store     store.Store
	publisher SyncPublisher
}

func NewTransactionService(st store.Store, publisher SyncPublisher) *TransactionService {
	return &TransactionService{store: st, publisher: publisher}
}

func (s *TransactionService) Create(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, created.ID, amqp.ActionUpsert)
	return created, nil
}

func (s *TransactionService) Update(ctx context.Context, id string, patch store.TransactionPatch) (core.Transaction, error) {
	updated, err := s.store.UpdateTransaction(ctx, id, patch)
	if err != nil {
		return core.Transaction{}, err
	}

	s.publish(ctx, id, amqp.ActionUpsert)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, id, amqp.ActionDelete)
	return nil
}

func (s *TransactionService) publish(ctx context.Context, id, action string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionSync(ctx, id, action); err != nil {
		slog.ErrorContext(ctx, "failed to publish sync message",
			"id", id, "action", action, "error", err)
	}
}
