package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Kind)
	}
	return out
}

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func newService(t *testing.T) (*LedgerService, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	return NewLedgerService(memory.New(), pub), pub
}

func TestNetWorthEmpty(t *testing.T) {
	svc, _ := newService(t)
	nw, err := svc.NetWorth(context.Background(), "alice")
	require.NoError(t, err)
	for _, v := range []decimal.Decimal{nw.Wallet, nw.Savings, nw.Debt, nw.TotalAssets, nw.NetWorth} {
		assert.True(t, v.IsZero())
	}
}

func TestNetWorthScenario(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.CreateTransaction(ctx, "alice", core.NewTransaction{Amount: amt(720000), Type: core.Income, Category: core.CategoryNeeds, Description: "salary"})
	require.NoError(t, err)
	_, err = svc.CreateTransaction(ctx, "alice", core.NewTransaction{Amount: amt(100000), Type: core.Expense, Category: core.CategoryPlaying, Description: "concert"})
	require.NoError(t, err)
	g, err := svc.CreateGoal(ctx, "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(500000)})
	require.NoError(t, err)
	_, _, err = svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(50000)})
	require.NoError(t, err)
	d, err := svc.CreateDebt(ctx, "alice", core.NewDebt{Name: "Card", TotalAmount: amt(30000)})
	require.NoError(t, err)
	_, _, err = svc.PayDebt(ctx, "alice", d.ID, Movement{Amount: amt(10000)})
	require.NoError(t, err)

	// another owner's data never leaks in
	_, err = svc.CreateTransaction(ctx, "bob", core.NewTransaction{Amount: amt(1), Type: core.Income, Category: core.CategoryNeeds, Description: "x"})
	require.NoError(t, err)

	nw, err := svc.NetWorth(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, nw.Wallet.Equal(amt(620000)), "wallet = %s", nw.Wallet)
	assert.True(t, nw.Savings.Equal(amt(50000)))
	assert.True(t, nw.Debt.Equal(amt(20000)))
	assert.True(t, nw.TotalAssets.Equal(amt(670000)))
	assert.True(t, nw.NetWorth.Equal(amt(650000)))
}

func TestGoalContributionScenario(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)

	g, err := svc.CreateGoal(ctx, "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(500000)})
	require.NoError(t, err)
	_, _, err = svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(200000)})
	require.NoError(t, err)
	g, written, err := svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(20000)})
	require.NoError(t, err)

	assert.Nil(t, written)
	assert.True(t, g.CurrentAmount.Equal(amt(220000)))
	assert.False(t, g.Funded())
	assert.Equal(t, []amqp.EventKind{amqp.GoalCreated, amqp.GoalContributed, amqp.GoalContributed}, pub.kinds())
}

func TestContributeRejectsNonPositive(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	g, err := svc.CreateGoal(ctx, "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(10)})
	require.NoError(t, err)

	for _, v := range []int64{0, -5} {
		_, _, err := svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(v)})
		verr, ok := core.AsValidationError(err)
		require.True(t, ok, "amount %d: %v", v, err)
		assert.Equal(t, "amount", verr.Field)
	}
	_, _, err = svc.PayDebt(ctx, "alice", 1, Movement{Amount: decimal.Zero})
	_, ok := core.AsValidationError(err)
	assert.True(t, ok, "validation runs before the store lookup")
}

func TestCreateTransactionDoesNotTouchBalances(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	d, err := svc.CreateDebt(ctx, "alice", core.NewDebt{Name: "Card", TotalAmount: amt(1000)})
	require.NoError(t, err)

	_, err = svc.CreateTransaction(ctx, "alice", core.NewTransaction{Amount: amt(400), Type: core.Expense, Category: core.CategoryDebtPayment, Description: "card"})
	require.NoError(t, err)

	d, err = svc.GetDebt(ctx, "alice", d.ID)
	require.NoError(t, err)
	assert.True(t, d.RemainingAmount.Equal(amt(1000)))
}

func TestRecordedMovements(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)
	d, err := svc.CreateDebt(ctx, "alice", core.NewDebt{Name: "Card", TotalAmount: amt(1000)})
	require.NoError(t, err)

	d, written, err := svc.PayDebt(ctx, "alice", d.ID, Movement{Amount: amt(400), Record: true})
	require.NoError(t, err)
	require.NotNil(t, written)
	assert.Equal(t, core.CategoryDebtPayment, written.Category)
	assert.True(t, d.RemainingAmount.Equal(amt(600)))
	assert.Contains(t, pub.kinds(), amqp.TransactionCreated)

	nw, err := svc.NetWorth(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, nw.Wallet.Equal(amt(-400)))
	assert.True(t, nw.Debt.Equal(amt(600)))
}

func TestRecordedMovementValidatesDescription(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	d, err := svc.CreateDebt(ctx, "alice", core.NewDebt{Name: "Card", TotalAmount: amt(1000)})
	require.NoError(t, err)
	g, err := svc.CreateGoal(ctx, "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(1000)})
	require.NoError(t, err)
	long := strings.Repeat("x", 5000)

	_, _, err = svc.PayDebt(ctx, "alice", d.ID, Movement{Amount: amt(100), Record: true, Description: long})
	verr, ok := core.AsValidationError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "description", verr.Field)

	_, _, err = svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(100), Record: true, Description: long})
	verr, ok = core.AsValidationError(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "description", verr.Field)

	// nothing was applied
	d, err = svc.GetDebt(ctx, "alice", d.ID)
	require.NoError(t, err)
	assert.True(t, d.RemainingAmount.Equal(amt(1000)))
	g, err = svc.GetGoal(ctx, "alice", g.ID)
	require.NoError(t, err)
	assert.True(t, g.CurrentAmount.IsZero())
	txs, err := svc.ListTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, txs)

	// without a record the description is not used
	_, written, err := svc.PayDebt(ctx, "alice", d.ID, Movement{Amount: amt(100), Description: long})
	require.NoError(t, err)
	assert.Nil(t, written)
}

func TestMutationsAreLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Format: "json", Output: &buf})
	ctx := context.WithValue(context.Background(), log.LoggerContextKey, logger)
	svc, _ := newService(t)

	g, err := svc.CreateGoal(ctx, "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(500)})
	require.NoError(t, err)
	buf.Reset()

	_, _, err = svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: decimal.RequireFromString("20.50")})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.SplitN(buf.Bytes(), []byte("\n"), 2)[0], &line), buf.String())
	assert.Equal(t, "Ledger updated", line["msg"])
	assert.Equal(t, log.OpContribute, line[log.FieldOperation])
	assert.Equal(t, "goal", line[log.FieldEntity])
	assert.Equal(t, "alice", line[log.FieldOwnerID])
	assert.EqualValues(t, g.ID, line[log.FieldEntityID])
	assert.Equal(t, "20.5", line[log.FieldAmount])
	assert.Equal(t, log.ComponentLedger, line[log.FieldComponent])
}

func TestPayDebtUntilZero(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	d, err := svc.CreateDebt(ctx, "alice", core.NewDebt{Name: "Loan", TotalAmount: amt(100)})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		d, _, err = svc.PayDebt(ctx, "alice", d.ID, Movement{Amount: amt(30)})
		require.NoError(t, err)
		assert.False(t, d.RemainingAmount.IsNegative())
	}
	assert.True(t, d.RemainingAmount.IsZero())
	assert.True(t, d.PaidOff)
}

func TestClaimGoal(t *testing.T) {
	ctx := context.Background()
	svc, pub := newService(t)
	g, err := svc.CreateGoal(ctx, "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(100)})
	require.NoError(t, err)

	_, err = svc.ClaimGoal(ctx, "alice", g.ID)
	assert.ErrorIs(t, err, core.ErrGoalNotFunded)

	_, _, err = svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(100)})
	require.NoError(t, err)
	g, err = svc.ClaimGoal(ctx, "alice", g.ID)
	require.NoError(t, err)
	assert.Equal(t, core.GoalClaimed, g.Status)
	assert.Contains(t, pub.kinds(), amqp.GoalClaimed)

	nw, err := svc.NetWorth(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, nw.Savings.Equal(amt(100)), "claimed goals still count toward savings")
}

func TestCrossOwnerNotFound(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	g, err := svc.CreateGoal(ctx, "bob", core.NewGoal{Name: "Bike", TargetAmount: amt(100)})
	require.NoError(t, err)
	d, err := svc.CreateDebt(ctx, "bob", core.NewDebt{Name: "Loan", TotalAmount: amt(100)})
	require.NoError(t, err)

	_, _, err = svc.ContributeToGoal(ctx, "alice", g.ID, Movement{Amount: amt(1)})
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, _, err = svc.PayDebt(ctx, "alice", d.ID, Movement{Amount: amt(1)})
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteGoal(ctx, "alice", g.ID), core.ErrNotFound)
	_, err = svc.GetDebt(ctx, "alice", d.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMissingOwner(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.ListGoals(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoOwner)
	_, err = svc.NetWorth(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoOwner)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := NewLedgerService(memory.New(), pub)

	g, err := svc.CreateGoal(context.Background(), "alice", core.NewGoal{Name: "Bike", TargetAmount: amt(10)})
	require.NoError(t, err)
	assert.NotZero(t, g.ID)
}

func TestNilPublisher(t *testing.T) {
	svc := NewLedgerService(memory.New(), nil)
	_, err := svc.CreateDebt(context.Background(), "alice", core.NewDebt{Name: "Card", TotalAmount: amt(10)})
	require.NoError(t, err)
	require.NoError(t, svc.Close())
}

// failingStore breaks one list call to check that net worth reports no
// partial snapshot.
type failingStore struct {
	*memory.Store
	failDebts bool
}

func (f *failingStore) ListDebts(ctx context.Context, ownerID string) ([]core.Debt, error) {
	if f.failDebts {
		return nil, errors.New("connection reset")
	}
	return f.Store.ListDebts(ctx, ownerID)
}

func TestNetWorthFailsWhole(t *testing.T) {
	svc := NewLedgerService(&failingStore{Store: memory.New(), failDebts: true}, nil)
	_, err := svc.CreateTransaction(context.Background(), "alice", core.NewTransaction{Amount: amt(5), Type: core.Income, Category: core.CategoryNeeds, Description: "x"})
	require.NoError(t, err)

	nw, err := svc.NetWorth(context.Background(), "alice")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load debts")
	assert.Equal(t, core.NetWorth{}, nw)
}

func TestAllocate(t *testing.T) {
	svc, _ := newService(t)
	a, err := svc.Allocate(amt(720000))
	require.NoError(t, err)
	assert.True(t, a.Needs.Equal(amt(417600)))
	assert.True(t, a.Living.Equal(amt(93600)))
	assert.True(t, a.Playing.Equal(amt(122400)))
	assert.True(t, a.Booster.Equal(amt(86400)))
}
