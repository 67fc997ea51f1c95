package memory

import (
	"context"
	"sync"

	"litfunds/internal/core"
	ports "litfunds/internal/sheets"
)

// Mirror is an in-process stand-in for the spreadsheet, used when no
// spreadsheet is configured and in tests.
type Mirror struct {
	mu    sync.Mutex
	order []string
	rows  map[string]core.Transaction
}

var _ ports.Mirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{rows: map[string]core.Transaction{}}
}

func (m *Mirror) Upsert(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[tx.ID]; !ok {
		m.order = append(m.order, tx.ID)
	}
	m.rows[tx.ID] = tx
	return nil
}

func (m *Mirror) Remove(_ context.Context, _ string, txID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[txID]; !ok {
		return nil
	}
	delete(m.rows, txID)
	for i, id := range m.order {
		if id == txID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// ListRecords returns the user's rows in insertion order.
func (m *Mirror) ListRecords(_ context.Context, userID string) ([]core.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.RawRecord
	for _, id := range m.order {
		tx := m.rows[id]
		if tx.UserID != userID {
			continue
		}
		out = append(out, toRecord(tx))
	}
	return out, nil
}

// Len reports how many rows the mirror holds.
func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

func toRecord(tx core.Transaction) core.RawRecord {
	amount := tx.Amount.Cents
	typ := string(tx.Type)
	cat := tx.Category
	date := tx.Date
	created := tx.CreatedAt
	return core.RawRecord{
		ID:          tx.ID,
		UserID:      tx.UserID,
		AmountCents: &amount,
		Description: tx.Description,
		Category:    &cat,
		Type:        &typ,
		Date:        &date,
		CreatedAt:   &created,
	}
}
