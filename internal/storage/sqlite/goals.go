package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dompet/internal/core"

	"github.com/shopspring/decimal"
)

const goalColumns = "id, owner_id, name, target_cents, current_cents, is_dump_bin, created_at, claimed_at"

func scanGoal(r rowScanner) (core.Goal, error) {
	var (
		g                     core.Goal
		targetCents, curCents int64
		created               string
		claimed               sql.NullString
	)
	if err := r.Scan(&g.ID, &g.OwnerID, &g.Name, &targetCents, &curCents, &g.IsDumpBin, &created, &claimed); err != nil {
		return core.Goal{}, err
	}
	g.TargetAmount = core.FromCents(targetCents)
	g.CurrentAmount = core.FromCents(curCents)

	var err error
	if g.CreatedAt, err = parseTime(created); err != nil {
		return core.Goal{}, err
	}
	if claimed.Valid {
		at, err := parseTime(claimed.String)
		if err != nil {
			return core.Goal{}, err
		}
		g.ClaimedAt = &at
	}
	g.ResolveStatus()
	return g, nil
}

func (s *Store) CreateGoal(ctx context.Context, ownerID string, in core.NewGoal) (core.Goal, error) {
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO goals (owner_id, name, target_cents, current_cents, is_dump_bin, created_at) VALUES (?, ?, ?, 0, ?, ?) RETURNING "+goalColumns,
		ownerID, in.Name, core.Cents(in.TargetAmount), in.IsDumpBin, s.timestamp())
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	return g, nil
}

func (s *Store) ListGoals(ctx context.Context, ownerID string) ([]core.Goal, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE owner_id = ? ORDER BY id", ownerID)
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
	row := s.db.QueryRowContext(ctx,
		"SELECT "+goalColumns+" FROM goals WHERE id = ? AND owner_id = ?", id, ownerID)
	g, err := scanGoal(row)
	if err != nil {
		return core.Goal{}, notFound(err, "get goal")
	}
	return g, nil
}

func (s *Store) UpdateGoal(ctx context.Context, ownerID string, id int64, u core.GoalUpdate) (core.Goal, error) {
	var g core.Goal
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `UPDATE goals SET
			name = COALESCE(?, name),
			target_cents = COALESCE(?, target_cents),
			current_cents = COALESCE(?, current_cents),
			is_dump_bin = COALESCE(?, is_dump_bin)
			WHERE id = ? AND owner_id = ? AND claimed_at IS NULL
			RETURNING `+goalColumns,
			u.Name, nullCents(u.TargetAmount), nullCents(u.CurrentAmount), u.IsDumpBin, id, ownerID)
		var err error
		g, err = scanGoal(row)
		if errors.Is(err, sql.ErrNoRows) {
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
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"UPDATE goals SET current_cents = current_cents + ? WHERE id = ? AND owner_id = ? AND claimed_at IS NULL AND current_cents + ? < ? RETURNING "+goalColumns,
			core.Cents(amount), id, ownerID, core.Cents(amount), core.Cents(core.MaxAmount))
		var err error
		g, err = scanGoal(row)
		if errors.Is(err, sql.ErrNoRows) {
			return classifyGoal(ctx, tx, ownerID, id, core.ErrBalanceTooLarge)
		}
		if err != nil {
			return fmt.Errorf("contribute to goal: %w", err)
		}

		if record == nil {
			return nil
		}
		in := record.WithDefaultDescription("Contribution to " + g.Name)
		t, err := s.insertTransaction(ctx, tx, ownerID, in)
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
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"UPDATE goals SET claimed_at = ? WHERE id = ? AND owner_id = ? AND claimed_at IS NULL AND current_cents >= target_cents RETURNING "+goalColumns,
			at.UTC().Format(timeLayout), id, ownerID)
		var err error
		g, err = scanGoal(row)
		if errors.Is(err, sql.ErrNoRows) {
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
func classifyGoal(ctx context.Context, q queryer, ownerID string, id int64, fallback error) error {
	var claimed sql.NullString
	err := q.QueryRowContext(ctx, "SELECT claimed_at FROM goals WHERE id = ? AND owner_id = ?", id, ownerID).Scan(&claimed)
	if err != nil {
		return notFound(err, "classify goal")
	}
	if claimed.Valid {
		return core.ErrGoalClaimed
	}
	return fallback
}

func nullCents(d *decimal.Decimal) sql.NullInt64 {
	if d == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: core.Cents(*d), Valid: true}
}
