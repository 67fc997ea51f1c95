package http

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"litfunds/internal/core"
)

// FormErrors maps a form field name to a message shown next to it.
type FormErrors map[string]string

func (e FormErrors) Any() bool { return len(e) > 0 }

// TransactionForm keeps the submitted values so a rejected form can be
// shown again as typed.
type TransactionForm struct {
	Type        string
	Amount      string
	Description string
	Category    string
	Date        string
}

// TransactionFormFrom fills the form with an existing transaction.
func TransactionFormFrom(tx core.Transaction) TransactionForm {
	return TransactionForm{
		Type:        tx.Type.String(),
		Amount:      core.FormatCents(tx.Amount.Magnitude()),
		Description: tx.Description,
		Category:    tx.Category,
		Date:        tx.Date.Format(dateLayout),
	}
}

// ParseTransactionForm validates the transaction fields of form. The
// amount is a positive magnitude; the sign comes from the type. An empty
// date means today.
func ParseTransactionForm(form url.Values, today time.Time) (core.Transaction, TransactionForm, FormErrors) {
	f := TransactionForm{
		Type:        strings.TrimSpace(form.Get("type")),
		Amount:      strings.TrimSpace(form.Get("amount")),
		Description: sanitizeInput(form.Get("description")),
		Category:    sanitizeInput(form.Get("category")),
		Date:        strings.TrimSpace(form.Get("date")),
	}
	errs := FormErrors{}

	txType, err := core.ParseTransactionType(f.Type)
	if err != nil {
		errs["type"] = "Choose income or expense."
	}

	cents, err := core.ParseDecimalToCents(f.Amount)
	if err != nil || cents <= 0 {
		errs["amount"] = "Enter an amount greater than zero."
	}

	if f.Description == "" {
		errs["description"] = "Description is required."
	} else if len(f.Description) > 200 {
		errs["description"] = "Description must be at most 200 characters."
	}

	if f.Category == "" {
		errs["category"] = "Category is required."
	}

	date := core.CalendarDay(today)
	if f.Date != "" {
		parsed, err := time.Parse(dateLayout, f.Date)
		if err != nil {
			errs["date"] = "Use the YYYY-MM-DD format."
		} else {
			date = parsed
		}
	}
	f.Date = date.Format(dateLayout)

	if errs.Any() {
		return core.Transaction{}, f, errs
	}
	return core.NewTransaction(txType, cents, f.Description, f.Category, date), f, nil
}

// ParseBudgetForm reads a category and a positive limit.
func ParseBudgetForm(form url.Values) (string, int64, FormErrors) {
	category := core.NormalizeCategory(sanitizeInput(form.Get("category")))
	errs := FormErrors{}
	if category == "" {
		errs["category"] = "Category is required."
	}
	cents, err := core.ParseDecimalToCents(strings.TrimSpace(form.Get("limit")))
	if err != nil || cents <= 0 {
		errs["limit"] = "Enter a limit greater than zero."
	}
	if errs.Any() {
		return "", 0, errs
	}
	return category, cents, nil
}

// ParseFormOrFail parses the request form and returns an error response
// on failure, or nil.
func ParseFormOrFail(r *http.Request) *ResponseBuilder {
	if err := r.ParseForm(); err != nil {
		return BadRequestError("Invalid request format")
	}
	return nil
}
