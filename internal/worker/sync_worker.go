package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"litfunds/internal/amqp"
	"litfunds/internal/core"
	"litfunds/internal/ports"
	"litfunds/internal/services"
	"litfunds/internal/sheets"
)

// EventSource delivers transaction events to a handler until ctx is done.
type EventSource interface {
	ConsumeTransactionEvents(ctx context.Context, handler func(context.Context, amqp.TransactionEvent) error) error
}

// SyncWorker mirrors stored transactions into a spreadsheet.
type SyncWorker struct {
	store     ports.TransactionReader
	mirror    sheets.TransactionMirror
	batchSize int
}

func NewSyncWorker(store ports.TransactionReader, mirror sheets.TransactionMirror, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 1
	}
	return &SyncWorker{store: store, mirror: mirror, batchSize: batchSize}
}

// Run consumes events from src until ctx is cancelled.
func (w *SyncWorker) Run(ctx context.Context, src EventSource) error {
	err := src.ConsumeTransactionEvents(ctx, w.HandleEvent)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// HandleEvent applies one event. Created and updated events re-read the
// transaction so the sheet always reflects the stored state; a transaction
// that no longer exists is removed.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"action", ev.Action,
		"transaction_id", ev.TransactionID)

	switch ev.Action {
	case amqp.ActionCreated, amqp.ActionUpdated:
		tx, err := w.store.GetTransaction(ctx, ev.UserID, ev.TransactionID)
		if errors.Is(err, ports.ErrNotFound) {
			return w.remove(ctx, ev.UserID, ev.TransactionID)
		}
		if err != nil {
			return fmt.Errorf("get transaction from storage: %w", err)
		}
		if err := w.mirror.Upsert(ctx, tx); err != nil {
			return fmt.Errorf("upsert row: %w", err)
		}
		slog.InfoContext(ctx, "Synced transaction to sheet", "transaction_id", tx.ID)
		return nil
	case amqp.ActionDeleted:
		return w.remove(ctx, ev.UserID, ev.TransactionID)
	default:
		return fmt.Errorf("unknown action %q", ev.Action)
	}
}

func (w *SyncWorker) remove(ctx context.Context, userID, txID string) error {
	if err := w.mirror.Remove(ctx, userID, txID); err != nil {
		return fmt.Errorf("remove row: %w", err)
	}
	slog.InfoContext(ctx, "Removed transaction from sheet", "transaction_id", txID)
	return nil
}

// Reconcile writes every stored transaction of userID to the mirror. It is
// the backup path for events lost while the broker was unreachable.
func (w *SyncWorker) Reconcile(ctx context.Context, userID string) (int, error) {
	txs, err := w.store.ListTransactions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	if len(txs) == 0 {
		return 0, nil
	}

	// The sheet client looks up rows by ID, so writes for distinct
	// transactions can run in parallel.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.batchSize)
	for _, tx := range txs {
		g.Go(func() error {
			if err := w.mirror.Upsert(gctx, tx); err != nil {
				return fmt.Errorf("upsert %s: %w", tx.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Reconciled transactions", "user_id", userID, "count", len(txs))
	return len(txs), nil
}

// ReconcileAll reconciles every user that owns transactions. A failure for
// one user is logged and the rest still run.
func (w *SyncWorker) ReconcileAll(ctx context.Context, owners ports.OwnerLister) (int, error) {
	ids, err := owners.ListTransactionOwners(ctx)
	if err != nil {
		return 0, fmt.Errorf("list owners: %w", err)
	}
	total := 0
	var errs []error
	for _, id := range ids {
		n, err := w.Reconcile(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to reconcile transactions", "user_id", id, "error", err)
			errs = append(errs, err)
			continue
		}
		total += n
	}
	return total, errors.Join(errs...)
}

// RunReconciler calls ReconcileAll every interval until ctx is done.
func (w *SyncWorker) RunReconciler(ctx context.Context, owners ports.OwnerLister, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.reconcileTick(ctx, owners)
		}
	}
}

func (w *SyncWorker) reconcileTick(ctx context.Context, owners ports.OwnerLister) {
	n, err := w.ReconcileAll(ctx, owners)
	if err != nil {
		slog.ErrorContext(ctx, "Periodic reconcile failed", "count", n, "error", err)
		return
	}
	slog.InfoContext(ctx, "Periodic reconcile finished", "count", n)
}

// Importer stores records read back from the sheet.
type Importer interface {
	Import(ctx context.Context, userID string, records []core.RawRecord) (services.ImportResult, error)
}

// Backfill imports the user's sheet rows into the store. Rows missing fields
// are counted as skipped and rows already stored as duplicates.
func Backfill(ctx context.Context, src sheets.RecordLister, dst Importer, userID string) (services.ImportResult, error) {
	records, err := src.ListRecords(ctx, userID)
	if err != nil {
		return services.ImportResult{}, fmt.Errorf("list sheet records: %w", err)
	}
	return dst.Import(ctx, userID, records)
}
