package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/postgres"
	"finanzas/internal/services"
	"finanzas/internal/storage"
	"finanzas/internal/store"
	"finanzas/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	// dial opens the AMQP publisher; replaced in tests.
	dial func(url, exchange, queue string) (amqp.Publisher, error)
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
		dial: func(url, exchange, queue string) (amqp.Publisher, error) {
			return amqp.NewClient(url, exchange, queue)
		},
	}
}

// CreateBackend opens the configured store and, when AMQP is configured,
// wraps it so every committed write is published.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	st, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	var publisher amqp.Publisher
	if config.AMQPURL != "" {
		publisher, err = f.dial(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			publisher = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	if publisher == nil {
		return &BackendResult{Store: st, Cleanup: st.Close}, nil
	}
	svc := services.NewLedgerService(st, publisher)
	return &BackendResult{Store: svc, Publishing: true, Cleanup: svc.Close}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (store.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		return repo, nil

	case PostgresBackend:
		repo, err := postgres.Open(ctx, config.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.Info("Initialized Postgres backend")
		return repo, nil

	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
}
