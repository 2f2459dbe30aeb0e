// Package storage defines the persistence contract for the ledger.
//
// Every method takes the owner id explicitly and every mutation filters on
// (id, owner) in a single statement. A row owned by somebody else is reported
// as core.ErrNotFound.
package storage

import (
	"context"
	"time"

	"dompet/internal/core"

	"github.com/shopspring/decimal"
)

type TransactionStore interface {
	CreateTransaction(ctx context.Context, ownerID string, in core.NewTransaction) (core.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID string, id int64) error
}

type GoalStore interface {
	CreateGoal(ctx context.Context, ownerID string, in core.NewGoal) (core.Goal, error)
	ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error)
	GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error)
	UpdateGoal(ctx context.Context, ownerID string, id int64, u core.GoalUpdate) (core.Goal, error)
	DeleteGoal(ctx context.Context, ownerID string, id int64) error

	// ContributeToGoal adds amount with a single relative update. When
	// record is non-nil the transaction is inserted in the same database
	// transaction and returned.
	ContributeToGoal(ctx context.Context, ownerID string, id int64, amount decimal.Decimal, record *core.NewTransaction) (core.Goal, *core.Transaction, error)

	// ClaimGoal marks a funded goal as claimed at the given time.
	ClaimGoal(ctx context.Context, ownerID string, id int64, at time.Time) (core.Goal, error)
}

type DebtStore interface {
	CreateDebt(ctx context.Context, ownerID string, in core.NewDebt) (core.Debt, error)
	ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error)
	GetDebt(ctx context.Context, ownerID string, id int64) (core.Debt, error)
	DeleteDebt(ctx context.Context, ownerID string, id int64) error

	// PayDebt lowers the remaining amount, floored at zero, with a single
	// relative update. record behaves as in ContributeToGoal.
	PayDebt(ctx context.Context, ownerID string, id int64, amount decimal.Decimal, record *core.NewTransaction) (core.Debt, *core.Transaction, error)
}

// Store is the full persistence collaborator.
type Store interface {
	TransactionStore
	GoalStore
	DebtStore
	Ping(ctx context.Context) error
	Close() error
}
