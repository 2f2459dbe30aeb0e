package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"dompet/internal/core"

	"github.com/shopspring/decimal"
)

const debtColumns = "id, owner_id, name, total_cents, remaining_cents, created_at"

func scanDebt(r rowScanner) (core.Debt, error) {
	var (
		d                core.Debt
		total, remaining int64
		created          string
	)
	if err := r.Scan(&d.ID, &d.OwnerID, &d.Name, &total, &remaining, &created); err != nil {
		return core.Debt{}, err
	}
	d.TotalAmount = core.FromCents(total)
	d.RemainingAmount = core.FromCents(remaining)
	var err error
	if d.CreatedAt, err = parseTime(created); err != nil {
		return core.Debt{}, err
	}
	d.ResolvePaidOff()
	return d, nil
}

func (s *Store) CreateDebt(ctx context.Context, ownerID string, in core.NewDebt) (core.Debt, error) {
	cents := core.Cents(in.TotalAmount)
	row := s.db.QueryRowContext(ctx,
		"INSERT INTO debts (owner_id, name, total_cents, remaining_cents, created_at) VALUES (?, ?, ?, ?, ?) RETURNING "+debtColumns,
		ownerID, in.Name, cents, cents, s.timestamp())
	d, err := scanDebt(row)
	if err != nil {
		return core.Debt{}, fmt.Errorf("insert debt: %w", err)
	}
	return d, nil
}

func (s *Store) ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE owner_id = ? ORDER BY id", ownerID)
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
	row := s.db.QueryRowContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE id = ? AND owner_id = ?", id, ownerID)
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
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			"UPDATE debts SET remaining_cents = MAX(0, remaining_cents - ?) WHERE id = ? AND owner_id = ? RETURNING "+debtColumns,
			core.Cents(amount), id, ownerID)
		var err error
		d, err = scanDebt(row)
		if errors.Is(err, sql.ErrNoRows) {
			return core.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("pay debt: %w", err)
		}

		if record == nil {
			return nil
		}
		in := record.WithDefaultDescription("Payment on " + d.Name)
		t, err := s.insertTransaction(ctx, tx, ownerID, in)
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
