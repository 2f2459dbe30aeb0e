// Package worker turns ledger events into activity log rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/cache"
	"dompet/internal/log"
	"dompet/internal/sheets"

	"golang.org/x/sync/errgroup"
)

// Consumer is satisfied by *amqp.Client.
type Consumer interface {
	ConsumeEvents(ctx context.Context, prefetch int, handler func(context.Context, *amqp.LedgerEvent) error) error
}

type Config struct {
	Prefetch        int
	DedupeSize      int
	DedupeTTL       time.Duration
	CleanupInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Prefetch:        10,
		DedupeSize:      10000,
		DedupeTTL:       time.Hour,
		CleanupInterval: 5 * time.Minute,
	}
}

type ActivityWorker struct {
	writer sheets.ActivityWriter
	recent *cache.Recent
	config Config
}

func NewActivityWorker(writer sheets.ActivityWriter, config Config) *ActivityWorker {
	return &ActivityWorker{
		writer: writer,
		recent: cache.NewRecent(config.DedupeSize, config.DedupeTTL),
		config: config,
	}
}

// HandleEvent appends one row per event. Redeliveries of an event already
// written are acknowledged without writing again.
func (w *ActivityWorker) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	if w.recent.Seen(event.ID) {
		slog.DebugContext(ctx, "Skipping duplicate event", "event_id", event.ID, log.FieldEventKind, event.Kind)
		return nil
	}

	ref, err := w.writer.AppendActivity(ctx, RowFromEvent(event))
	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	w.recent.Add(event.ID)

	slog.InfoContext(ctx, "Recorded ledger activity",
		"event_id", event.ID,
		log.FieldEventKind, event.Kind,
		log.FieldEntityID, event.EntityID,
		log.FieldSheetsRef, ref)
	return nil
}

// Run consumes events until ctx is cancelled or the consumer fails.
func (w *ActivityWorker) Run(ctx context.Context, consumer Consumer) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return consumer.ConsumeEvents(gctx, w.config.Prefetch, w.HandleEvent)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := w.recent.CleanExpired(); n > 0 {
					slog.DebugContext(gctx, "Expired dedupe entries", "count", n)
				}
			}
		}
	})

	return g.Wait()
}

// RowFromEvent renders an event as an activity row.
func RowFromEvent(e *amqp.LedgerEvent) sheets.ActivityRow {
	row := sheets.ActivityRow{
		EventID:  e.ID,
		At:       e.Timestamp,
		OwnerID:  e.OwnerID,
		Kind:     string(e.Kind),
		EntityID: e.EntityID,
		Label:    e.Label,
	}
	if e.Amount != nil {
		row.Amount = e.Amount.StringFixed(2)
	}
	if e.Balance != nil {
		row.Balance = e.Balance.StringFixed(2)
	}
	return row
}
