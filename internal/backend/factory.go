package backend

import (
	"context"
	"fmt"
	"log/slog"

	"dompet/internal/amqp"
	"dompet/internal/services"
	"dompet/internal/storage"
	"dompet/internal/storage/memory"
	"dompet/internal/storage/postgres"
	"dompet/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend opens the configured store and wraps it in a ledger
// service. A broker that cannot be reached is logged and skipped.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	store, err := f.openStore(ctx, config)
	if err != nil {
		return nil, err
	}

	var publisher services.EventPublisher
	if client := f.connectAMQP(config); client != nil {
		publisher = client
	}

	ledger := services.NewLedgerService(store, publisher)
	f.logger.Info("Initialized backend",
		"type", config.Type,
		"amqp_enabled", publisher != nil)

	return &BackendResult{
		Store:   store,
		Ledger:  ledger,
		Cleanup: ledger.Close,
	}, nil
}

func (f *DefaultFactory) openStore(ctx context.Context, config Config) (storage.Store, error) {
	switch config.Type {
	case SQLiteBackend:
		store, err := sqlite.Open(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	case PostgresBackend:
		store, err := postgres.Open(ctx, config.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
		}
		return store, nil
	case MemoryBackend:
		f.logger.Warn("Using in-memory store, data is lost on restart")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

// connectAMQP returns nil when publishing is disabled or unavailable. The
// caller must not store a nil *amqp.Client in an interface.
func (f *DefaultFactory) connectAMQP(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client
}
