package ports

import (
	"context"
	"errors"
	"time"

	"litfunds/internal/core"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("already exists")
)

// Ports for outbound adapters. Every transaction operation is scoped to the
// owning user; a record of another user behaves as if it did not exist.
type (
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, userID, id string) error
	}

	TransactionReader interface {
		GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
		// ListTransactions returns all of the user's transactions ordered by
		// date then creation time, newest first.
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	}

	// OwnerLister enumerates users that own at least one transaction.
	OwnerLister interface {
		ListTransactionOwners(ctx context.Context) ([]string, error)
	}

	UserStore interface {
		CreateUser(ctx context.Context, u core.User) error
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
	}

	SessionStore interface {
		CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error
		// GetSession returns the owning user of an unexpired session.
		GetSession(ctx context.Context, token string, now time.Time) (string, error)
		DeleteSession(ctx context.Context, token string) error
	}

	ProfileStore interface {
		GetProfile(ctx context.Context, userID string) (core.Profile, error)
		SaveProfile(ctx context.Context, p core.Profile) error
		ListBudgets(ctx context.Context, userID string) ([]core.Budget, error)
		SaveBudget(ctx context.Context, b core.Budget) error
	}

	// Store is everything a backend provides.
	Store interface {
		TransactionWriter
		TransactionReader
		OwnerLister
		UserStore
		SessionStore
		ProfileStore
		Close() error
	}
)
