package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dompet/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const goalColumns = "id, owner_id, name, target_amount::text, current_amount::text, is_dump_bin, created_at, claimed_at"

func scanGoal(r pgx.Row) (core.Goal, error) {
	var (
		g               core.Goal
		target, current string
		claimed         *time.Time
	)
	if err := r.Scan(&g.ID, &g.OwnerID, &g.Name, &target, &current, &g.IsDumpBin, &g.CreatedAt, &claimed); err != nil {
		return core.Goal{}, err
	}
	var err error
	if g.TargetAmount, err = parseAmount(target); err != nil {
		return core.Goal{}, err
	}
	if g.CurrentAmount, err = parseAmount(current); err != nil {
		return core.Goal{}, err
	}
	g.CreatedAt = g.CreatedAt.UTC()
	if claimed != nil {
		at := claimed.UTC()
		g.ClaimedAt = &at
	}
	g.ResolveStatus()
	return g, nil
}

func (s *Store) CreateGoal(ctx context.Context, ownerID string, in core.NewGoal) (core.Goal, error) {
	row := s.db.QueryRow(ctx,
		"INSERT INTO goals (owner_id, name, target_amount, current_amount, is_dump_bin) VALUES ($1, $2, $3::text::numeric, 0, $4) RETURNING "+goalColumns,
		ownerID, in.Name, in.TargetAmount.StringFixed(2), in.IsDumpBin)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	rows, err := s.db.Query(ctx, "SELECT "+goalColumns+" FROM goals WHERE owner_id = $1 ORDER BY id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	return goals, nil
}

func (s *Store) GetGoal(ctx context.Context, ownerID string, id int64) (core.Goal, error) {
	row := s.db.QueryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = $1 AND owner_id = $2", id, ownerID)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, notFound(err, "get goal")
	}
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, ownerID string, id int64, u core.GoalUpdate) (core.Goal, error) {
	var g core.Goal
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `UPDATE goals SET
			name = COALESCE($1, name),
			target_amount = COALESCE($2::text::numeric, target_amount),
			current_amount = COALESCE($3::text::numeric, current_amount),
			is_dump_bin = COALESCE($4, is_dump_bin)
			WHERE id = $5 AND owner_id = $6 AND claimed_at IS NULL
			RETURNING `+goalColumns,
			u.Name, amountArg(u.TargetAmount), amountArg(u.CurrentAmount), u.IsDumpBin, id, ownerID)
		var err error
		g, err = scanGoal(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyGoal(ctx, tx, ownerID, id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update goal: %w", err)
		}
		return nil
	})
	return g, err
}

func (s *Store) DeleteGoal(ctx context.Context, ownerID string, id int64) error {
	return deleteOwned(ctx, s.db, "goals", ownerID, id)
}

func (s *Store) ContributeToGoal(ctx context.Context, ownerID string, id int64, amount decimal.Decimal, record *core.NewTransaction) (core.Goal, *core.Transaction, error) {
	var (
		g       core.Goal
		written *core.Transaction
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			"UPDATE goals SET current_amount = current_amount + $1::text::numeric WHERE id = $2 AND owner_id = $3 AND claimed_at IS NULL AND current_amount + $1::text::numeric < $4::text::numeric RETURNING "+goalColumns,
			amount.StringFixed(2), id, ownerID, core.MaxAmount.StringFixed(2))
		var err error
		g, err = scanGoal(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyGoal(ctx, tx, ownerID, id, core.ErrBalanceTooLarge)
		}
		if err != nil {
			return fmt.Errorf("contribute to goal: %w", err)
		}

		if record == nil {
			return nil
		}
		t, err := insertTransaction(ctx, tx, ownerID, record.WithDefaultDescription("Contribution to "+g.Name))
		if err != nil {
			return err
		}
		written = &t
		return nil
	})
	if err != nil {
		return core.Goal{}, nil, err
	}
	return g, written, nil
}

func (s *Store) ClaimGoal(ctx context.Context, ownerID string, id int64, at time.Time) (core.Goal, error) {
	var g core.Goal
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			"UPDATE goals SET claimed_at = $1 WHERE id = $2 AND owner_id = $3 AND claimed_at IS NULL AND current_amount >= target_amount RETURNING "+goalColumns,
			at.UTC(), id, ownerID)
		var err error
		g, err = scanGoal(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return classifyGoal(ctx, tx, ownerID, id, core.ErrGoalNotFunded)
		}
		if err != nil {
			return fmt.Errorf("claim goal: %w", err)
		}
		return nil
	})
	return g, err
}

// classifyGoal explains why a guarded goal update matched no row. An
// unclaimed goal owned by ownerID gets fallback.
func classifyGoal(ctx context.Context, q querier, ownerID string, id int64, fallback error) error {
	var claimed *time.Time
	err := q.QueryRow(ctx, "SELECT claimed_at FROM goals WHERE id = $1 AND owner_id = $2", id, ownerID).Scan(&claimed)
	if err != nil {
		return notFound(err, "classify goal")
	}
	if claimed != nil {
		return core.ErrGoalClaimed
	}
	return fallback
}
