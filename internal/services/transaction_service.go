package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"litfunds/internal/amqp"
	"litfunds/internal/analytics"
	"litfunds/internal/cache"
	"litfunds/internal/core"
	"litfunds/internal/ports"
)

// Publisher announces transaction changes to the sync worker.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, ev amqp.TransactionEvent) error
}

type TransactionStore interface {
	ports.TransactionWriter
	ports.TransactionReader
}

// TransactionService orchestrates transaction writes across the store, the
// snapshot cache and the event publisher.
type TransactionService struct {
	store     TransactionStore
	publisher Publisher
	snapshots *cache.LRUCache[[]core.Transaction]
	now       func() time.Time

	// gens counts writes per user so a snapshot read that raced a write
	// is not cached.
	mu   sync.Mutex
	gens map[string]uint64
}

// NewTransactionService wires the service. publisher and snapshots may be
// nil, which disables event publishing and caching respectively.
func NewTransactionService(store TransactionStore, publisher Publisher, snapshots *cache.LRUCache[[]core.Transaction]) *TransactionService {
	return &TransactionService{
		store:     store,
		publisher: publisher,
		snapshots: snapshots,
		now:       time.Now,
		gens:      map[string]uint64{},
	}
}

// ImportResult reports the outcome of a bulk import.
type ImportResult struct {
	Imported   int
	Skipped    int
	Duplicates int
}

// Create assigns an ID and creation time to tx, stores it for userID and
// publishes a created event.
func (s *TransactionService) Create(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	tx.ID = uuid.NewString()
	tx.UserID = userID
	tx.CreatedAt = s.now().UTC()
	tx.Amount = core.Signed(tx.Type, tx.Amount.Cents)
	tx.Date = core.CalendarDay(tx.Date)

	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	saved, err := s.store.CreateTransaction(ctx, tx)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate(userID)

	slog.InfoContext(ctx, "Transaction created",
		"user_id", userID,
		"transaction_id", saved.ID,
		"type", saved.Type,
		"amount_cents", saved.Amount.Cents)

	s.publish(ctx, amqp.ActionCreated, userID, saved.ID)
	return saved, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// Update replaces the editable fields of an existing transaction. The sign
// is recomputed from the new type.
func (s *TransactionService) Update(ctx context.Context, userID, id string, changes core.Transaction) (core.Transaction, error) {
	cur, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.Transaction{}, err
	}

	cur.Type = changes.Type
	cur.Amount = core.Signed(changes.Type, changes.Amount.Cents)
	cur.Description = changes.Description
	cur.Category = changes.Category
	cur.Date = core.CalendarDay(changes.Date)

	if err := cur.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}
	if err := s.store.UpdateTransaction(ctx, cur); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.invalidate(userID)

	slog.InfoContext(ctx, "Transaction updated", "user_id", userID, "transaction_id", id)
	s.publish(ctx, amqp.ActionUpdated, userID, id)
	return cur, nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.invalidate(userID)

	slog.InfoContext(ctx, "Transaction deleted", "user_id", userID, "transaction_id", id)
	s.publish(ctx, amqp.ActionDeleted, userID, id)
	return nil
}

// Snapshot returns all of the user's transactions, newest first. The
// returned slice is a copy the caller may modify.
func (s *TransactionService) Snapshot(ctx context.Context, userID string) ([]core.Transaction, error) {
	if s.snapshots != nil {
		if txs, ok := s.snapshots.Get(snapshotKey(userID)); ok {
			return append([]core.Transaction(nil), txs...), nil
		}
	}

	gen := s.generation(userID)
	txs, err := s.store.ListTransactions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	s.storeSnapshot(userID, gen, txs)
	return txs, nil
}

// CacheStats reports snapshot cache hits and misses.
func (s *TransactionService) CacheStats() (hits, misses uint64) {
	if s.snapshots == nil {
		return 0, 0
	}
	return s.snapshots.Stats()
}

// Summary aggregates the user's transactions over the period containing now.
func (s *TransactionService) Summary(ctx context.Context, userID string, period analytics.Period, budgets []core.Budget) (analytics.Summary, error) {
	txs, err := s.Snapshot(ctx, userID)
	if err != nil {
		return analytics.Summary{}, err
	}
	start, end := analytics.PeriodRange(period, s.now())
	return analytics.Summarize(txs, start, end, budgets), nil
}

// Import stores loosely shaped records for userID. Records missing fields
// that aggregation needs are skipped; records whose ID already exists are
// counted as duplicates.
func (s *TransactionService) Import(ctx context.Context, userID string, records []core.RawRecord) (ImportResult, error) {
	txs, skipped := core.Normalize(records)
	res := ImportResult{Skipped: skipped}

	for _, tx := range txs {
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		tx.UserID = userID
		tx.Date = core.CalendarDay(tx.Date)
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = s.now().UTC()
		}
		if tx.Category == "" {
			tx.Category = string(tx.Type)
		}
		if tx.Description == "" {
			tx.Description = tx.Category
		}
		if err := tx.Validate(); err != nil {
			res.Skipped++
			continue
		}

		if _, err := s.store.CreateTransaction(ctx, tx); err != nil {
			if errors.Is(err, ports.ErrDuplicate) {
				res.Duplicates++
				continue
			}
			return res, fmt.Errorf("import transaction %s: %w", tx.ID, err)
		}
		res.Imported++
	}

	if res.Imported > 0 {
		s.invalidate(userID)
	}
	slog.InfoContext(ctx, "Import finished",
		"user_id", userID,
		"imported", res.Imported,
		"skipped", res.Skipped,
		"duplicates", res.Duplicates)
	return res, nil
}

func (s *TransactionService) generation(userID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[userID]
}

// storeSnapshot caches txs unless userID's data changed since gen was read.
func (s *TransactionService) storeSnapshot(userID string, gen uint64, txs []core.Transaction) {
	if s.snapshots == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[userID] != gen {
		return
	}
	s.snapshots.Set(snapshotKey(userID), append([]core.Transaction(nil), txs...))
}

func (s *TransactionService) invalidate(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[userID]++
	if s.snapshots != nil {
		s.snapshots.Delete(snapshotKey(userID))
	}
}

// publish logs failures instead of returning them since the local write
// already succeeded.
func (s *TransactionService) publish(ctx context.Context, action amqp.Action, userID, id string) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(action, userID, id)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event",
			"action", action,
			"transaction_id", id,
			"error", err)
	}
}

func snapshotKey(userID string) string {
	return userID + ":snapshot"
}
