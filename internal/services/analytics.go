package services

import (
	"context"
	"fmt"

	"dompet/internal/core"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// NetWorth loads the three entity sets concurrently and folds them. Any
// failed load fails the whole snapshot; nothing is cached.
func (s *LedgerService) NetWorth(ctx context.Context, ownerID string) (core.NetWorth, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.NetWorth{}, err
	}

	var (
		txs   []core.Transaction
		goals []core.Goal
		debts []core.Debt
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if txs, err = s.store.ListTransactions(gctx, ownerID); err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if goals, err = s.store.ListGoals(gctx, ownerID); err != nil {
			return fmt.Errorf("load goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if debts, err = s.store.ListDebts(gctx, ownerID); err != nil {
			return fmt.Errorf("load debts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return core.NetWorth{}, fmt.Errorf("compute net worth: %w", err)
	}

	return core.ComputeNetWorth(txs, goals, debts), nil
}

// Summary groups the owner's transactions by type and category.
func (s *LedgerService) Summary(ctx context.Context, ownerID string) (core.Summary, error) {
	if err := requireOwner(ownerID); err != nil {
		return core.Summary{}, err
	}
	txs, err := s.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return core.Summary{}, fmt.Errorf("compute summary: %w", err)
	}
	return core.Summarize(txs), nil
}

// Allocate is pure and needs no owner; it lives here so handlers have one
// entry point.
func (s *LedgerService) Allocate(income decimal.Decimal) (core.Allocation, error) {
	return core.Allocate(income)
}
