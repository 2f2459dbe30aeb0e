package sqlite

import (
	"context"
	"fmt"

	"dompet/internal/core"
)

const transactionColumns = "id, owner_id, amount_cents, type, category, description, created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(r rowScanner) (core.Transaction, error) {
	var (
		t       core.Transaction
		cents   int64
		created string
	)
	if err := r.Scan(&t.ID, &t.OwnerID, &cents, &t.Type, &t.Category, &t.Description, &created); err != nil {
		return core.Transaction{}, err
	}
	t.Amount = core.FromCents(cents)
	date, err := parseTime(created)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = date
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, ownerID string, in core.NewTransaction) (core.Transaction, error) {
	return s.insertTransaction(ctx, s.db, ownerID, in)
}

func (s *Store) insertTransaction(ctx context.Context, q queryer, ownerID string, in core.NewTransaction) (core.Transaction, error) {
	row := q.QueryRowContext(ctx,
		"INSERT INTO transactions (owner_id, amount_cents, type, category, description, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING "+transactionColumns,
		ownerID, core.Cents(in.Amount), in.Type, in.Category, in.Description, s.timestamp())
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE owner_id = ? ORDER BY created_at DESC, id DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *Store) GetTransaction(ctx context.Context, ownerID string, id int64) (core.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ? AND owner_id = ?", id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, "get transaction")
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID string, id int64) error {
	return deleteOwned(ctx, s.db, "transactions", ownerID, id)
}
