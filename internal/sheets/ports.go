// Package sheets exports ledger activity to spreadsheet-like sinks.
package sheets

import (
	"context"
	"time"
)

// ActivityRow is one line of the activity log.
type ActivityRow struct {
	EventID  string
	At       time.Time
	OwnerID  string
	Kind     string
	EntityID int64
	Label    string
	Amount   string
	Balance  string
}

// ActivityWriter appends rows to an activity log.
type ActivityWriter interface {
	AppendActivity(ctx context.Context, rows ...ActivityRow) (ref string, err error)
}

// Header is the column order every writer uses.
var Header = []string{"Event", "Time", "Owner", "Kind", "Entity", "Label", "Amount", "Balance"}

// Values renders a row in Header order.
func (r ActivityRow) Values() []any {
	return []any{
		r.EventID,
		r.At.UTC().Format(time.RFC3339),
		r.OwnerID,
		r.Kind,
		r.EntityID,
		r.Label,
		r.Amount,
		r.Balance,
	}
}
