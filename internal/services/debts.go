package services

import (
	"context"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
)

func (s *LedgerService) CreateDebt(ctx context.Context, ownerID string, in core.NewDebt) (core.Debt, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Debt{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Debt{}, err
	}

	d, err := s.store.CreateDebt(ctx, ownerID, in)
	if err != nil {
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}

	logMutation(ctx, log.OpCreate, ownerID, entityDebt, d.ID, &d.TotalAmount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.DebtCreated, ownerID, d.ID).
		WithLabel(d.Name).
		WithAmounts(d.TotalAmount, d.RemainingAmount))
	return d, nil
}

func (s *LedgerService) ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListDebts(ctx, ownerID)
}

func (s *LedgerService) GetDebt(ctx context.Context, ownerID string, id int64) (core.Debt, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Debt{}, err
	}
	return s.store.GetDebt(ctx, ownerID, id)
}

// PayDebt lowers remainingAmount, floored at zero by the store.
func (s *LedgerService) PayDebt(ctx context.Context, ownerID string, id int64, m Movement) (core.Debt, *core.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Debt{}, nil, err
	}
	if err := m.validate(); err != nil {
		return core.Debt{}, nil, err
	}

	record, err := m.recordFor(core.DebtPaymentRecord)
	if err != nil {
		return core.Debt{}, nil, err
	}

	d, written, err := s.store.PayDebt(ctx, ownerID, id, m.Amount, record)
	if err != nil {
		return core.Debt{}, nil, err
	}

	logMutation(ctx, log.OpPay, ownerID, entityDebt, d.ID, &m.Amount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.DebtPaid, ownerID, d.ID).
		WithLabel(d.Name).
		WithAmounts(m.Amount, d.RemainingAmount))
	if written != nil {
		s.publish(ctx, amqp.NewLedgerEvent(amqp.TransactionCreated, ownerID, written.ID).
			WithLabel(string(written.Type)+"/"+string(written.Category)).
			WithAmounts(written.Amount, written.Amount))
	}
	return d, written, nil
}

func (s *LedgerService) DeleteDebt(ctx context.Context, ownerID string, id int64) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.store.DeleteDebt(ctx, ownerID, id); err != nil {
		return err
	}
	logMutation(ctx, log.OpDelete, ownerID, entityDebt, id, nil)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.DebtDeleted, ownerID, id))
	return nil
}
