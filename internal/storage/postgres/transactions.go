package postgres

import (
	"context"
	"fmt"

	"dompet/internal/core"

	"github.com/jackc/pgx/v5"
)

const transactionColumns = "id, owner_id, amount::text, type, category, description, created_at"

func scanTransaction(r pgx.Row) (core.Transaction, error) {
	var (
		t      core.Transaction
		amount string
		typ    string
		cat    string
	)
	if err := r.Scan(&t.ID, &t.OwnerID, &amount, &typ, &cat, &t.Description, &t.Date); err != nil {
		return core.Transaction{}, err
	}
	a, err := parseAmount(amount)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Amount = a
	t.Type = core.TransactionType(typ)
	t.Category = core.Category(cat)
	t.Date = t.Date.UTC()
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, ownerID string, in core.NewTransaction) (core.Transaction, error) {
	return insertTransaction(ctx, s.db, ownerID, in)
}

func insertTransaction(ctx context.Context, q querier, ownerID string, in core.NewTransaction) (core.Transaction, error) {
	row := q.QueryRow(ctx,
		"INSERT INTO transactions (owner_id, amount, type, category, description) VALUES ($1, $2::text::numeric, $3, $4, $5) RETURNING "+transactionColumns,
		ownerID, in.Amount.StringFixed(2), string(in.Type), string(in.Category), in.Description)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE owner_id = $1 ORDER BY created_at DESC, id DESC", ownerID)
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
	row := s.db.QueryRow(ctx,
		"SELECT "+transactionColumns+" FROM transactions WHERE id = $1 AND owner_id = $2", id, ownerID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, "get transaction")
	}
	return t, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, ownerID string, id int64) error {
	return deleteOwned(ctx, s.db, "transactions", ownerID, id)
}
