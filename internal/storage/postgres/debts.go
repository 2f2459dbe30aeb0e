package postgres

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const debtColumns = "id, owner_id, name, total_amount::text, remaining_amount::text, created_at"

func scanDebt(r pgx.Row) (core.Debt, error) {
	var (
		d                core.Debt
		total, remaining string
	)
	if err := r.Scan(&d.ID, &d.OwnerID, &d.Name, &total, &remaining, &d.CreatedAt); err != nil {
		return core.Debt{}, err
	}
	var err error
	if d.TotalAmount, err = parseAmount(total); err != nil {
		return core.Debt{}, err
	}
	if d.RemainingAmount, err = parseAmount(remaining); err != nil {
		return core.Debt{}, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.ResolvePaidOff()
	return d, nil
}

func (s *Store) CreateDebt(ctx context.Context, ownerID string, in core.NewDebt) (core.Debt, error) {
	total := in.TotalAmount.StringFixed(2)
	row := s.db.QueryRow(ctx,
		"INSERT INTO debts (owner_id, name, total_amount, remaining_amount) VALUES ($1, $2, $3::text::numeric, $3::text::numeric) RETURNING "+debtColumns,
		ownerID, in.Name, total)
	d, err := scanDebt(row)
	if err != nil {
		return core.Debt{}, fmt.Errorf("insert debt: %w", err)
	}
	return d, nil
}

func (s *Store) ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error) {
	rows, err := s.db.Query(ctx, "SELECT "+debtColumns+" FROM debts WHERE owner_id = $1 ORDER BY id", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	debts := []core.Debt{}
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	return debts, nil
}

func (s *Store) GetDebt(ctx context.Context, ownerID string, id int64) (core.Debt, error) {
	row := s.db.QueryRow(ctx, "SELECT "+debtColumns+" FROM debts WHERE id = $1 AND owner_id = $2", id, ownerID)
	d, err := scanDebt(row)
	if err != nil {
		return core.Debt{}, notFound(err, "get debt")
	}
	return d, nil
}

func (s *Store) DeleteDebt(ctx context.Context, ownerID string, id int64) error {
	return deleteOwned(ctx, s.db, "debts", ownerID, id)
}

func (s *Store) PayDebt(ctx context.Context, ownerID string, id int64, amount decimal.Decimal, record *core.NewTransaction) (core.Debt, *core.Transaction, error) {
	var (
		d       core.Debt
		written *core.Transaction
	)
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx,
			"UPDATE debts SET remaining_amount = GREATEST(0, remaining_amount - $1::text::numeric) WHERE id = $2 AND owner_id = $3 RETURNING "+debtColumns,
			amount.StringFixed(2), id, ownerID)
		var err error
		d, err = scanDebt(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("pay debt: %w", err)
		}

		if record == nil {
			return nil
		}
		t, err := insertTransaction(ctx, tx, ownerID, record.WithDefaultDescription("Payment on "+d.Name))
		if err != nil {
			return err
		}
		written = &t
		return nil
	})
	if err != nil {
		return core.Debt{}, nil, err
	}
	return d, written, nil
}
