package sheets

import (
	"context"
	"log/slog"
)

// LogWriter writes activity to the structured log. The worker falls back to
// it when no spreadsheet is configured.
type LogWriter struct {
	Logger *slog.Logger
}

var _ ActivityWriter = LogWriter{}

func (w LogWriter) AppendActivity(ctx context.Context, rows ...ActivityRow) (string, error) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, r := range rows {
		logger.InfoContext(ctx, "Ledger activity",
			"event_id", r.EventID,
			"owner_id", r.OwnerID,
			"kind", r.Kind,
			"entity_id", r.EntityID,
			"label", r.Label,
			"amount", r.Amount,
			"balance", r.Balance)
	}
	return "log", nil
}
