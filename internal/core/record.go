package core

import (
	"strings"
	"time"
)

// RawRecord is a transaction as it comes back from a loosely shaped source
// (spreadsheet rows, rows written by older revisions). Any field may be absent.
// Amount may be either a signed value or a magnitude paired with Type.
type RawRecord struct {
	ID          string
	UserID      string
	AmountCents *int64
	Description string
	Category    *string
	Type        *string
	Date        *time.Time
	CreatedAt   *time.Time
}

// NormalizeRecord converts one raw record, applying the sign convention once.
// It reports false when the record lacks a field aggregation depends on.
func NormalizeRecord(r RawRecord) (Transaction, bool) {
	if r.AmountCents == nil || r.Date == nil || r.Date.IsZero() || r.Type == nil {
		return Transaction{}, false
	}
	t, err := ParseTransactionType(*r.Type)
	if err != nil {
		return Transaction{}, false
	}
	var category string
	if r.Category != nil {
		category = strings.TrimSpace(*r.Category)
	}
	if t == Expense && category == "" {
		return Transaction{}, false
	}
	tx := Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      Signed(t, *r.AmountCents),
		Description: strings.TrimSpace(r.Description),
		Category:    category,
		Type:        t,
		Date:        *r.Date,
	}
	if r.CreatedAt != nil {
		tx.CreatedAt = *r.CreatedAt
	}
	return tx, true
}

// Normalize converts raw records, skipping malformed ones.
// It returns the usable transactions and how many records were dropped.
func Normalize(records []RawRecord) ([]Transaction, int) {
	out := make([]Transaction, 0, len(records))
	skipped := 0
	for _, r := range records {
		tx, ok := NormalizeRecord(r)
		if !ok {
			skipped++
			continue
		}
		out = append(out, tx)
	}
	return out, skipped
}
