// Package backend builds the configured store and its companions so
// main functions stay small.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"duit/internal/amqp"
	"duit/internal/config"
	"duit/internal/store"
	"duit/internal/store/memory"
	mongostore "duit/internal/store/mongo"
	sqlitestore "duit/internal/store/sqlite"
)

// Result bundles everything the factory wired up. Publisher is nil
// when AMQP is not configured; Cleanup is never nil.
type Result struct {
	Store     store.Store
	Publisher *amqp.Client
	Cleanup   func() error
}

// Build creates the store selected by DATA_BACKEND plus the optional
// AMQP client. An unreachable broker logs a warning and disables sync
// instead of failing startup: the local write path must stay up.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Result, error) {
	st, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var publisher *amqp.Client
	if cfg.AMQPURL != "" {
		publisher, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without spreadsheet sync", "error", err)
			publisher = nil
		} else {
			logger.Info("AMQP client ready",
				"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	cleanup := func() error {
		var firstErr error
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				firstErr = fmt.Errorf("close amqp: %w", err)
			}
		}
		if err := st.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close store: %w", err)
		}
		return firstErr
	}

	return &Result{Store: st, Publisher: publisher, Cleanup: cleanup}, nil
}

func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		logger.Info("using in-memory backend")
		return memory.New(), nil

	case "sqlite":
		st, err := sqlitestore.New(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite backend: %w", err)
		}
		logger.Info("using sqlite backend", "db_path", cfg.SQLiteDBPath)
		return st, nil

	case "mongo":
		st, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("initialize mongo backend: %w", err)
		}
		logger.Info("using mongo backend", "database", cfg.MongoDatabase)
		return st, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.DataBackend)
	}
}
