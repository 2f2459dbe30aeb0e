package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/log"
	"dompet/internal/storage"

	"github.com/shopspring/decimal"
)

const (
	entityTransaction = "transaction"
	entityGoal        = "goal"
	entityDebt        = "debt"
)

// ErrNoOwner is returned when an operation is called without an owner id.
var ErrNoOwner = errors.New("owner id is required")

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *amqp.LedgerEvent) error
}

// LedgerService validates input, applies it to the store and announces
// committed changes. Publishing is best effort: the store is authoritative.
type LedgerService struct {
	store     storage.Store
	publisher EventPublisher
	now       func() time.Time
}

// NewLedgerService wires a store and an optional publisher.
func NewLedgerService(store storage.Store, publisher EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *LedgerService) publish(ctx context.Context, event *amqp.LedgerEvent) {
	logger := log.FromContext(ctx)
	if s.publisher == nil {
		logger.DebugContext(ctx, "AMQP publisher not configured, skipping event", log.FieldEventKind, event.Kind)
		return
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		// the mutation has committed; the event is informational
		logger.WarnContext(ctx, "Failed to publish ledger event",
			log.FieldEventKind, event.Kind,
			log.FieldEntityID, event.EntityID,
			log.FieldError, err)
	}
}

// logMutation records a committed change on the request logger. amount may
// be nil for changes that move no money.
func logMutation(ctx context.Context, op, ownerID, entity string, id int64, amount *decimal.Decimal) {
	var fields log.LogFields
	if amount != nil {
		fields = log.NewFields().WithAmount(amount.String())
	}
	log.NewStructuredLogger(log.FromContext(ctx)).LogMutation(ctx, op, ownerID, entity, id, fields)
}

// Ping reports whether the store is reachable.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the store and the publisher when it can be closed.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}

	return errors.Join(errs...)
}

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return ErrNoOwner
	}
	return nil
}
