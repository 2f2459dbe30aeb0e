// Package memory is a process-local storage.Store. Data is lost on restart;
// it backs local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dompet/internal/core"
	"dompet/internal/storage"

	"github.com/shopspring/decimal"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	mu     sync.Mutex
	nextID int64
	txs    map[int64]core.Transaction
	goals  map[int64]core.Goal
	debts  map[int64]core.Debt
	now    func() time.Time
}

func New() *Store {
	return &Store{
		txs:   make(map[int64]core.Transaction),
		goals: make(map[int64]core.Goal),
		debts: make(map[int64]core.Debt),
		now:   time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }

// id hands out one sequence shared by every table. Callers hold mu.
func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateTransaction(_ context.Context, ownerID string, in core.NewTransaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertTransaction(ownerID, in), nil
}

func (s *Store) insertTransaction(ownerID string, in core.NewTransaction) core.Transaction {
	t := core.Transaction{
		ID:          s.id(),
		OwnerID:     ownerID,
		Amount:      in.Amount,
		Type:        in.Type,
		Category:    in.Category,
		Description: in.Description,
		Date:        s.now().UTC(),
	}
	s.txs[t.ID] = t
	return t
}

func (s *Store) ListTransactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Transaction{}
	for _, t := range s.txs {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, ownerID string, id int64) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.txs[id]
	if !ok || t.OwnerID != ownerID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.txs[id]; !ok || t.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.txs, id)
	return nil
}

func (s *Store) CreateGoal(_ context.Context, ownerID string, in core.NewGoal) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := core.Goal{
		ID:            s.id(),
		OwnerID:       ownerID,
		Name:          in.Name,
		TargetAmount:  in.TargetAmount,
		CurrentAmount: decimal.Zero,
		IsDumpBin:     in.IsDumpBin,
		CreatedAt:     s.now().UTC(),
	}
	g.ResolveStatus()
	s.goals[g.ID] = g
	return g, nil
}

func (s *Store) ListGoals(_ context.Context, ownerID string) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Goal{}
	for _, g := range s.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetGoal(_ context.Context, ownerID string, id int64) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownedGoal(ownerID, id)
}

func (s *Store) ownedGoal(ownerID string, id int64) (core.Goal, error) {
	g, ok := s.goals[id]
	if !ok || g.OwnerID != ownerID {
		return core.Goal{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) UpdateGoal(_ context.Context, ownerID string, id int64, u core.GoalUpdate) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.ownedGoal(ownerID, id)
	if err != nil {
		return core.Goal{}, err
	}
	if g.ClaimedAt != nil {
		return core.Goal{}, core.ErrGoalClaimed
	}
	if u.Name != nil {
		g.Name = *u.Name
	}
	if u.TargetAmount != nil {
		g.TargetAmount = *u.TargetAmount
	}
	if u.CurrentAmount != nil {
		g.CurrentAmount = *u.CurrentAmount
	}
	if u.IsDumpBin != nil {
		g.IsDumpBin = *u.IsDumpBin
	}
	g.ResolveStatus()
	s.goals[id] = g
	return g, nil
}

func (s *Store) DeleteGoal(_ context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.ownedGoal(ownerID, id); err != nil {
		return err
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) ContributeToGoal(_ context.Context, ownerID string, id int64, amount decimal.Decimal, record *core.NewTransaction) (core.Goal, *core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.ownedGoal(ownerID, id)
	if err != nil {
		return core.Goal{}, nil, err
	}
	if g.ClaimedAt != nil {
		return core.Goal{}, nil, core.ErrGoalClaimed
	}
	if g.CurrentAmount.Add(amount).GreaterThanOrEqual(core.MaxAmount) {
		return core.Goal{}, nil, core.ErrBalanceTooLarge
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.ResolveStatus()
	s.goals[id] = g

	if record == nil {
		return g, nil, nil
	}
	t := s.insertTransaction(ownerID, record.WithDefaultDescription("Contribution to "+g.Name))
	return g, &t, nil
}

func (s *Store) ClaimGoal(_ context.Context, ownerID string, id int64, at time.Time) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, err := s.ownedGoal(ownerID, id)
	if err != nil {
		return core.Goal{}, err
	}
	if g.ClaimedAt != nil {
		return core.Goal{}, core.ErrGoalClaimed
	}
	if !g.Funded() {
		return core.Goal{}, core.ErrGoalNotFunded
	}
	claimed := at.UTC()
	g.ClaimedAt = &claimed
	g.ResolveStatus()
	s.goals[id] = g
	return g, nil
}

func (s *Store) CreateDebt(_ context.Context, ownerID string, in core.NewDebt) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := core.Debt{
		ID:              s.id(),
		OwnerID:         ownerID,
		Name:            in.Name,
		TotalAmount:     in.TotalAmount,
		RemainingAmount: in.TotalAmount,
		CreatedAt:       s.now().UTC(),
	}
	d.ResolvePaidOff()
	s.debts[d.ID] = d
	return d, nil
}

func (s *Store) ListDebts(_ context.Context, ownerID string) ([]core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Debt{}
	for _, d := range s.debts {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetDebt(_ context.Context, ownerID string, id int64) (core.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debts[id]
	if !ok || d.OwnerID != ownerID {
		return core.Debt{}, core.ErrNotFound
	}
	return d, nil
}

func (s *Store) DeleteDebt(_ context.Context, ownerID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.debts[id]; !ok || d.OwnerID != ownerID {
		return core.ErrNotFound
	}
	delete(s.debts, id)
	return nil
}

func (s *Store) PayDebt(_ context.Context, ownerID string, id int64, amount decimal.Decimal, record *core.NewTransaction) (core.Debt, *core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.debts[id]
	if !ok || d.OwnerID != ownerID {
		return core.Debt{}, nil, core.ErrNotFound
	}
	d.RemainingAmount = decimal.Max(decimal.Zero, d.RemainingAmount.Sub(amount))
	d.ResolvePaidOff()
	s.debts[id] = d

	if record == nil {
		return d, nil, nil
	}
	t := s.insertTransaction(ownerID, record.WithDefaultDescription("Payment on "+d.Name))
	return d, &t, nil
}
