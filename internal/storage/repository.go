package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"litfunds/internal/core"
	"litfunds/internal/ports"

	_ "modernc.org/sqlite"
)

// timeLayout sorts lexicographically in chronological order for UTC values.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db *sql.DB
}

var _ ports.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY under concurrent requests.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// CreateTransaction implements ports.TransactionWriter
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, description, category, type, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.UserID, tx.Amount.Cents, tx.Description, tx.Category, string(tx.Type),
		formatTime(tx.Date), formatTime(tx.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return core.Transaction{}, ports.ErrDuplicate
		}
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"user_id", tx.UserID,
		"type", tx.Type,
		"amount_cents", tx.Amount.Cents)

	return tx, nil
}

// UpdateTransaction implements ports.TransactionWriter
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET amount_cents = ?, description = ?, category = ?, type = ?, date = ?
		WHERE id = ? AND user_id = ?`,
		tx.Amount.Cents, tx.Description, tx.Category, string(tx.Type), formatTime(tx.Date),
		tx.ID, tx.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireOneRow(res)
}

// DeleteTransaction implements ports.TransactionWriter
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireOneRow(res)
}

const selectTransaction = `
	SELECT id, user_id, amount_cents, description, category, type, date, created_at
	FROM transactions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (core.RawRecord, error) {
	var (
		rec       core.RawRecord
		amount    sql.NullInt64
		category  sql.NullString
		typ       sql.NullString
		date      sql.NullString
		createdAt string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &amount, &rec.Description, &category, &typ, &date, &createdAt); err != nil {
		return rec, err
	}
	if amount.Valid {
		rec.AmountCents = &amount.Int64
	}
	if category.Valid {
		rec.Category = &category.String
	}
	if typ.Valid {
		rec.Type = &typ.String
	}
	if date.Valid {
		if d, err := parseTime(date.String); err == nil {
			rec.Date = &d
		}
	}
	if c, err := parseTime(createdAt); err == nil {
		rec.CreatedAt = &c
	}
	return rec, nil
}

// GetTransaction implements ports.TransactionReader
func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ? AND user_id = ?`, id, userID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	tx, ok := core.NormalizeRecord(rec)
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %s is malformed: %w", id, ports.ErrNotFound)
	}
	return tx, nil
}

// ListTransactions implements ports.TransactionReader. Rows missing fields
// required for aggregation are skipped.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+`
		WHERE user_id = ?
		ORDER BY date DESC, created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var records []core.RawRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}

	txs, skipped := core.Normalize(records)
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped malformed transaction rows", "user_id", userID, "skipped", skipped)
	}
	return txs, nil
}

// ListTransactionOwners implements ports.OwnerLister
func (r *SQLiteRepository) ListTransactionOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM transactions ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list transaction owners: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CreateUser implements ports.UserStore
func (r *SQLiteRepository) CreateUser(ctx context.Context, u core.User) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, strings.TrimSpace(u.Email), u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return ports.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByEmail implements ports.UserStore
func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	var (
		u         core.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.TrimSpace(email)).Scan(&u.ID, &u.Email, &u.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ports.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, _ = parseTime(createdAt)
	return u, nil
}

// CreateSession implements ports.SessionStore
func (r *SQLiteRepository) CreateSession(ctx context.Context, token, userID string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		token, userID, formatTime(expiresAt))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession implements ports.SessionStore
func (r *SQLiteRepository) GetSession(ctx context.Context, token string, now time.Time) (string, error) {
	var userID string
	err := r.db.QueryRowContext(ctx, `SELECT user_id FROM sessions WHERE token = ? AND expires_at > ?`,
		token, formatTime(now)).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get session: %w", err)
	}
	return userID, nil
}

// DeleteSession implements ports.SessionStore
func (r *SQLiteRepository) DeleteSession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes sessions that expired before now.
func (r *SQLiteRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

// GetProfile implements ports.ProfileStore
func (r *SQLiteRepository) GetProfile(ctx context.Context, userID string) (core.Profile, error) {
	p := core.Profile{UserID: userID}
	err := r.db.QueryRowContext(ctx, `SELECT display_name, currency FROM profiles WHERE user_id = ?`, userID).
		Scan(&p.DisplayName, &p.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Profile{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	return p, nil
}

// SaveProfile implements ports.ProfileStore
func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, currency) VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET display_name = excluded.display_name, currency = excluded.currency`,
		p.UserID, p.DisplayName, p.Currency)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// ListBudgets implements ports.ProfileStore
func (r *SQLiteRepository) ListBudgets(ctx context.Context, userID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, limit_cents FROM budgets WHERE user_id = ? ORDER BY rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b := core.Budget{UserID: userID}
		if err := rows.Scan(&b.Category, &b.Limit.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SaveBudget implements ports.ProfileStore
func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category, limit_cents) VALUES (?, ?, ?)
		ON CONFLICT(user_id, category) DO UPDATE SET limit_cents = excluded.limit_cents`,
		b.UserID, core.NormalizeCategory(b.Category), b.Limit.Cents)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// InsertRawRecord stores a record as-is, keeping absent fields NULL.
// Used by imports from sources that may hold partial rows.
func (r *SQLiteRepository) InsertRawRecord(ctx context.Context, rec core.RawRecord, createdAt time.Time) error {
	var date any
	if rec.Date != nil {
		date = formatTime(*rec.Date)
	}
	var amount, category, typ any
	if rec.AmountCents != nil {
		amount = *rec.AmountCents
	}
	if rec.Category != nil {
		category = *rec.Category
	}
	if rec.Type != nil {
		typ = *rec.Type
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, amount_cents, description, category, type, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, amount, rec.Description, category, typ, date, formatTime(createdAt))
	if err != nil {
		return fmt.Errorf("insert raw record: %w", err)
	}
	return nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
