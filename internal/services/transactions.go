package services

import (
	"context"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
)

// CreateTransaction inserts a transaction. It never touches goal or debt
// balances, whatever the category.
func (s *LedgerService) CreateTransaction(ctx context.Context, ownerID string, in core.NewTransaction) (core.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Transaction{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}

	t, err := s.store.CreateTransaction(ctx, ownerID, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	logMutation(ctx, log.OpCreate, ownerID, entityTransaction, t.ID, &t.Amount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.TransactionCreated, ownerID, t.ID).
		WithLabel(string(t.Type)+"/"+string(t.Category)).
		WithAmounts(t.Amount, t.Amount))
	return t, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, ownerID)
}

func (s *LedgerService) GetTransaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Transaction{}, err
	}
	return s.store.GetTransaction(ctx, ownerID, id)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, ownerID string, id int64) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}
	logMutation(ctx, log.OpDelete, ownerID, entityTransaction, id, nil)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.TransactionDeleted, ownerID, id))
	return nil
}
