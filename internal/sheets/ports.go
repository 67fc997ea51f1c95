package sheets

import (
	"context"

	"litfunds/internal/core"
)

// Ports for the spreadsheet mirror of a user's transactions.
type (
	// TransactionMirror keeps one row per transaction, keyed by transaction ID.
	TransactionMirror interface {
		// Upsert writes tx, replacing the row with the same ID if present.
		Upsert(ctx context.Context, tx core.Transaction) error
		// Remove deletes the row of the given transaction. Removing a
		// missing row is not an error.
		Remove(ctx context.Context, userID, txID string) error
	}

	// RecordLister reads rows back as loosely typed records; rows edited by
	// hand may be missing cells.
	RecordLister interface {
		ListRecords(ctx context.Context, userID string) ([]core.RawRecord, error)
	}

	Mirror interface {
		TransactionMirror
		RecordLister
	}
)
