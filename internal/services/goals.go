package services

import (
	"context"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"

	"github.com/shopspring/decimal"
)

// Movement is an amount applied to a goal or a debt. With Record set, a
// matching expense transaction is written in the same store transaction.
type Movement struct {
	Amount      decimal.Decimal `json:"amount"`
	Record      bool            `json:"record"`
	Description string          `json:"description"`
}

func (m Movement) validate() error {
	return core.ValidatePositive("amount", m.Amount)
}

// recordFor validates and returns the linked expense for m, or nil when m
// does not ask for one. The store fills an empty description from the
// goal or debt name, so a placeholder stands in for it here.
func (m Movement) recordFor(build func(decimal.Decimal, string) core.NewTransaction) (*core.NewTransaction, error) {
	if !m.Record {
		return nil, nil
	}
	rec := build(m.Amount, m.Description)
	if err := rec.WithDefaultDescription("linked record").Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *LedgerService) CreateGoal(ctx context.Context, ownerID string, in core.NewGoal) (core.Goal, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Goal{}, err
	}
	if err := in.Validate(); err != nil {
		return core.Goal{}, err
	}

	g, err := s.store.CreateGoal(ctx, ownerID, in)
	if err != nil {
		return core.Goal{}, fmt.Errorf("create goal: %w", err)
	}

	logMutation(ctx, log.OpCreate, ownerID, entityGoal, g.ID, &g.TargetAmount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.GoalCreated, ownerID, g.ID).
		WithLabel(g.Name).
		WithAmounts(g.TargetAmount, g.CurrentAmount))
	return g, nil
}

func (s *LedgerService) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.ListGoals(ctx, ownerID)
}

func (s *LedgerService) GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Goal{}, err
	}
	return s.store.GetGoal(ctx, ownerID, id)
}

// UpdateGoal is the only operation allowed to lower currentAmount.
func (s *LedgerService) UpdateGoal(ctx context.Context, ownerID string, id int64, u core.GoalUpdate) (core.Goal, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Goal{}, err
	}
	if err := u.Validate(); err != nil {
		return core.Goal{}, err
	}

	g, err := s.store.UpdateGoal(ctx, ownerID, id, u)
	if err != nil {
		return core.Goal{}, err
	}

	logMutation(ctx, log.OpUpdate, ownerID, entityGoal, g.ID, nil)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.GoalUpdated, ownerID, g.ID).
		WithLabel(g.Name).
		WithAmounts(g.TargetAmount, g.CurrentAmount))
	return g, nil
}

// ContributeToGoal adds to currentAmount. The returned transaction is nil
// unless m.Record is set.
func (s *LedgerService) ContributeToGoal(ctx context.Context, ownerID string, id int64, m Movement) (core.Goal, *core.Transaction, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Goal{}, nil, err
	}
	if err := m.validate(); err != nil {
		return core.Goal{}, nil, err
	}

	record, err := m.recordFor(core.SavingsRecord)
	if err != nil {
		return core.Goal{}, nil, err
	}

	g, written, err := s.store.ContributeToGoal(ctx, ownerID, id, m.Amount, record)
	if err != nil {
		return core.Goal{}, nil, err
	}

	logMutation(ctx, log.OpContribute, ownerID, entityGoal, g.ID, &m.Amount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.GoalContributed, ownerID, g.ID).
		WithLabel(g.Name).
		WithAmounts(m.Amount, g.CurrentAmount))
	if written != nil {
		s.publish(ctx, amqp.NewLedgerEvent(amqp.TransactionCreated, ownerID, written.ID).
			WithLabel(string(written.Type)+"/"+string(written.Category)).
			WithAmounts(written.Amount, written.Amount))
	}
	return g, written, nil
}

// ClaimGoal moves a fully funded goal into its terminal state.
func (s *LedgerService) ClaimGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Goal{}, err
	}

	g, err := s.store.ClaimGoal(ctx, ownerID, id, s.now())
	if err != nil {
		return core.Goal{}, err
	}

	logMutation(ctx, log.OpClaim, ownerID, entityGoal, g.ID, &g.CurrentAmount)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.GoalClaimed, ownerID, g.ID).
		WithLabel(g.Name).
		WithAmounts(g.CurrentAmount, g.CurrentAmount))
	return g, nil
}

func (s *LedgerService) DeleteGoal(ctx context.Context, ownerID string, id int64) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}
	if err := s.store.DeleteGoal(ctx, ownerID, id); err != nil {
		return err
	}
	logMutation(ctx, log.OpDelete, ownerID, entityGoal, id, nil)
	s.publish(ctx, amqp.NewLedgerEvent(amqp.GoalDeleted, ownerID, id))
	return nil
}
