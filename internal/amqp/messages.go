package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventKind names a ledger change.
type EventKind string

const (
	TransactionCreated EventKind = "transaction.created"
	TransactionDeleted EventKind = "transaction.deleted"
	GoalCreated        EventKind = "goal.created"
	GoalUpdated        EventKind = "goal.updated"
	GoalContributed    EventKind = "goal.contributed"
	GoalClaimed        EventKind = "goal.claimed"
	GoalDeleted        EventKind = "goal.deleted"
	DebtCreated        EventKind = "debt.created"
	DebtPaid           EventKind = "debt.paid"
	DebtDeleted        EventKind = "debt.deleted"
)

// LedgerEvent is published after a mutation commits. It is informational:
// consumers never feed it back into balances.
type LedgerEvent struct {
	ID        string           `json:"id"`
	Kind      EventKind        `json:"kind"`
	OwnerID   string           `json:"ownerId"`
	EntityID  int64            `json:"entityId"`
	Label     string           `json:"label,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewLedgerEvent creates an event with a fresh id and the current time.
func NewLedgerEvent(kind EventKind, ownerID string, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ownerID,
		EntityID:  entityID,
		Timestamp: time.Now().UTC(),
	}
}

// WithAmounts sets the moved amount and the resulting balance.
func (e *LedgerEvent) WithAmounts(amount, balance decimal.Decimal) *LedgerEvent {
	e.Amount = &amount
	e.Balance = &balance
	return e
}

// WithLabel sets a human readable name for the entity.
func (e *LedgerEvent) WithLabel(label string) *LedgerEvent {
	e.Label = label
	return e
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
