package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/sheets"
	"finboard/internal/store"
)

// SnapshotSource loads one scope's records. *services.LedgerService satisfies it.
type SnapshotSource interface {
	Snapshot(ctx context.Context, scope core.UserScope) (services.Snapshot, error)
}

// MirrorWorker keeps the spreadsheet mirror in step with the record store.
type MirrorWorker struct {
	source SnapshotSource
	scopes store.ScopeLister
	mirror sheets.Mirror
	logger *log.Logger
	now    func() time.Time
}

func NewMirrorWorker(source SnapshotSource, scopes store.ScopeLister, mirror sheets.Mirror, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Wrap(slog.Default(), log.ComponentWorker)
	}
	return &MirrorWorker{
		source: source,
		scopes: scopes,
		mirror: mirror,
		logger: logger,
		now:    time.Now,
	}
}

// HandleLedgerChanged re-mirrors the scope named in msg. Its signature
// matches amqp.Handler; a returned error makes the consumer requeue.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldUserScope, msg.UserScope,
		log.FieldEventKind, msg.Kind,
		log.FieldTransactionID, msg.TransactionID)

	if err := w.MirrorScope(ctx, msg.UserScope); err != nil {
		return fmt.Errorf("mirror after %s: %w", msg.Kind, err)
	}
	return nil
}

// MirrorScope derives the scope's summary and alerts from a fresh snapshot
// and writes them to the mirror.
func (w *MirrorWorker) MirrorScope(ctx context.Context, scope core.UserScope) error {
	start := time.Now()
	snap, err := w.source.Snapshot(ctx, scope)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}

	dash := services.BuildDashboard(snap)
	err = w.mirror.Mirror(ctx, sheets.Snapshot{
		Scope:        scope,
		Transactions: snap.Transactions,
		Budgets:      snap.Budgets,
		Summary:      dash.Summary,
		Alerts:       dash.Alerts,
		GeneratedAt:  w.now(),
	})
	if err != nil {
		return fmt.Errorf("write mirror: %w", err)
	}

	w.logger.InfoContext(ctx, "Scope mirrored",
		log.FieldUserScope, scope,
		log.FieldAlertCount, len(dash.Alerts),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// MirrorAll re-mirrors every scope that owns records. One scope failing does
// not stop the others; all failures are returned joined.
func (w *MirrorWorker) MirrorAll(ctx context.Context) error {
	scopes, err := w.scopes.ListScopes(ctx)
	if err != nil {
		return fmt.Errorf("list scopes: %w", err)
	}

	var errs []error
	for _, scope := range scopes {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if err := w.MirrorScope(ctx, scope); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror scope",
				log.FieldUserScope, scope,
				log.FieldOperation, log.OpMirror,
				log.FieldError, err)
			errs = append(errs, fmt.Errorf("%s: %w", scope, err))
		}
	}

	w.logger.InfoContext(ctx, "Full mirror pass completed",
		"scopes", len(scopes),
		"failures", len(errs))
	return errors.Join(errs...)
}

// RunPeriodic calls MirrorAll every interval until ctx is done.
func (w *MirrorWorker) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.MirrorAll(ctx); err != nil && ctx.Err() == nil {
				w.logger.WarnContext(ctx, "Periodic mirror pass had failures", log.FieldError, err)
			}
		}
	}
}
