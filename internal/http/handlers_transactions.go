package http

import (
	"errors"
	"net/http"

	"litfunds/internal/core"
	applog "litfunds/internal/log"
	"litfunds/internal/ports"
)

var validationErrors = map[error]string{
	core.ErrInvalidAmount:    "Enter an amount greater than zero.",
	core.ErrInvalidType:      "Choose income or expense.",
	core.ErrInvalidDate:      "Enter a valid date.",
	core.ErrEmptyDescription: "Description is required.",
	core.ErrEmptyCategory:    "Category is required.",
	core.ErrSignMismatch:     "Amount does not match the transaction type.",
	core.ErrInvalidCurrency:  "Choose a supported currency.",
	core.ErrNameTooLong:      "Display name must be at most 100 characters.",
}

func isValidationError(err error) bool {
	for target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// validationMessage returns the user-facing text for a validation error,
// or fallback for anything else.
func validationMessage(err error, fallback string) string {
	for target, msg := range validationErrors {
		if errors.Is(err, target) {
			return msg
		}
	}
	return fallback
}

type transactionPage struct {
	layout
	ID     string
	Form   TransactionForm
	Errors FormErrors
}

func (s *Server) renderTransactionForm(w http.ResponseWriter, r *http.Request, status int, id string, form TransactionForm, errs FormErrors) {
	ctx := r.Context()
	profile, err := s.profiles.Profile(ctx, userIDFrom(ctx))
	if err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to load profile for form", "error", err)
	}
	title := "Add Transaction"
	if id != "" {
		title = "Edit Transaction"
	}
	if errs == nil {
		errs = FormErrors{}
	}
	s.render(w, r, status, "transaction_form.html", transactionPage{
		layout: s.layoutFor(profile, title, "transactions"),
		ID:     id,
		Form:   form,
		Errors: errs,
	})
}

func (s *Server) handleNewTransactionPage(w http.ResponseWriter, r *http.Request) {
	form := TransactionForm{Type: core.Expense.String(), Date: s.now().Format(dateLayout)}
	s.renderTransactionForm(w, r, http.StatusOK, "", form, nil)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	userID := userIDFrom(ctx)

	tx, form, errs := ParseTransactionForm(r.PostForm, s.now())
	if errs.Any() {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, "", form, errs)
		return
	}

	saved, err := s.transactions.Create(ctx, userID, tx)
	if err != nil {
		if isValidationError(err) {
			s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, "", form,
				FormErrors{"form": validationMessage(err, "")})
			return
		}
		s.structLog.LogError(ctx, "Failed to save transaction", err, applog.OpCreate,
			applog.NewFields().WithTransaction("", tx.Type.String(), tx.Amount.Magnitude(), tx.CategoryKey()))
		s.renderTransactionForm(w, r, http.StatusInternalServerError, "", form,
			FormErrors{"form": "Failed to save the transaction. Please try again."})
		return
	}

	s.structLog.LogTransaction(ctx, applog.OpCreate, userID, saved.ID, saved.Type.String(), saved.Amount.Magnitude(), saved.CategoryKey())
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleEditTransactionPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	tx, err := s.transactions.Get(ctx, userIDFrom(ctx), id)
	if err != nil {
		s.transactionLookupFailed(w, r, id, err)
		return
	}
	s.renderTransactionForm(w, r, http.StatusOK, tx.ID, TransactionFormFrom(tx), nil)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	userID := userIDFrom(ctx)
	id := r.PathValue("id")

	changes, form, errs := ParseTransactionForm(r.PostForm, s.now())
	if errs.Any() {
		s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, id, form, errs)
		return
	}

	saved, err := s.transactions.Update(ctx, userID, id, changes)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			s.transactionLookupFailed(w, r, id, err)
			return
		}
		if isValidationError(err) {
			s.renderTransactionForm(w, r, http.StatusUnprocessableEntity, id, form,
				FormErrors{"form": validationMessage(err, "")})
			return
		}
		s.structLog.LogError(ctx, "Failed to update transaction", err, applog.OpUpdate,
			applog.NewFields().WithTransaction(id, changes.Type.String(), changes.Amount.Magnitude(), changes.CategoryKey()))
		s.renderTransactionForm(w, r, http.StatusInternalServerError, id, form,
			FormErrors{"form": "Failed to update the transaction. Please try again."})
		return
	}

	s.structLog.LogTransaction(ctx, applog.OpUpdate, userID, saved.ID, saved.Type.String(), saved.Amount.Magnitude(), saved.CategoryKey())
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")

	if err := s.transactions.Delete(ctx, userIDFrom(ctx), id); err != nil {
		s.transactionLookupFailed(w, r, id, err)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "Transaction deleted",
		applog.FieldTxID, id,
		applog.FieldOperation, applog.OpDelete)
	http.Redirect(w, r, "/home", http.StatusSeeOther)
}

// transactionLookupFailed answers 404 for missing or foreign transactions
// and 500 for anything else.
func (s *Server) transactionLookupFailed(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, ports.ErrNotFound) {
		s.renderError(w, r, http.StatusNotFound, "Transaction not found.")
		return
	}
	applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction lookup failed", "error", err, applog.FieldTxID, id)
	s.renderError(w, r, http.StatusInternalServerError, "Failed to load the transaction.")
}
