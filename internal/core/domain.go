package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

const (
	CurrencyGHS = "GHS"
	CurrencyUSD = "USD"
)

type (
	TransactionType string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense owned by one user.
	// Amount is signed to agree with Type: income positive, expense negative.
	Transaction struct {
		ID          string
		UserID      string
		Amount      Money
		Description string
		Category    string
		Type        TransactionType
		Date        time.Time
		CreatedAt   time.Time
	}

	User struct {
		ID           string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Profile struct {
		UserID      string
		DisplayName string
		Currency    string
	}

	// Budget is a spending limit for one category of one user.
	Budget struct {
		UserID   string
		Category string
		Limit    Money
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrSignMismatch     = errors.New("amount sign does not match transaction type")
	ErrInvalidEmail     = errors.New("invalid email")
	ErrWeakPassword     = errors.New("password must be at least 6 characters")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrNameTooLong      = errors.New("display name too long (max 100 characters)")
)

// DefaultBudgets seeds new accounts; users can change them from the profile page.
var DefaultBudgets = map[string]int64{
	"food":           500_00,
	"transportation": 300_00,
}

// ParseTransactionType accepts "income" or "expense" in any case.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", ErrInvalidType
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// NormalizeCategory returns the grouping key for a category label.
// CalendarDay returns midnight UTC of the date t falls on in its own
// location. Transaction dates are stored in this form.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NormalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}

// Signed applies the sign convention to a magnitude. It is the only place
// where the sign of a stored amount is derived.
func Signed(t TransactionType, cents int64) Money {
	if cents < 0 {
		cents = -cents
	}
	if t == Expense {
		return Money{Cents: -cents}
	}
	return Money{Cents: cents}
}

// NewTransaction builds a transaction from a user-entered magnitude.
func NewTransaction(t TransactionType, cents int64, description, category string, date time.Time) Transaction {
	return Transaction{
		Amount:      Signed(t, cents),
		Description: strings.TrimSpace(description),
		Category:    strings.TrimSpace(category),
		Type:        t,
		Date:        date,
	}
}

// Magnitude is the absolute amount, used for display and aggregation.
func (m Money) Magnitude() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

func (m Money) Validate() error {
	if m.Cents == 0 {
		return ErrInvalidAmount
	}
	return nil
}

// CategoryKey is the case-normalized category.
func (t Transaction) CategoryKey() string {
	return NormalizeCategory(t.Category)
}

func (t Transaction) IsExpense() bool { return t.Type == Expense }

func (t Transaction) IsIncome() bool { return t.Type == Income }

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if (t.Type == Expense) != (t.Amount.Cents < 0) {
		return ErrSignMismatch
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// ValidateCredentials checks sign-up input.
func ValidateCredentials(email, password string) error {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Address != strings.TrimSpace(email) {
		return ErrInvalidEmail
	}
	if len(password) < 6 {
		return ErrWeakPassword
	}
	return nil
}

func (p Profile) Validate() error {
	switch p.Currency {
	case CurrencyGHS, CurrencyUSD:
	default:
		return ErrInvalidCurrency
	}
	if len(p.DisplayName) > 100 {
		return ErrNameTooLong
	}
	return nil
}

func (b Budget) Validate() error {
	if NormalizeCategory(b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Limit.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}
